package model

import (
	"time"
)

// RelationState 边的生命周期状态（存储值）。
// 拉黑不占用生命周期状态，由方向标志位单独表达，见 RelationEdge。
type RelationState int8

const (
	RelationStatePending  RelationState = 0 // 请求已发出，等待处理
	RelationStateAccepted RelationState = 1 // 双方好友
	RelationStateRejected RelationState = 2 // 已拒绝
	RelationStateDeleted  RelationState = 3 // 单方删除，另一方保留墓碑
)

// RelationView 单侧视角下的关系状态（派生值，不存储）。
type RelationView int8

const (
	ViewNone            RelationView = 0 // 无关系
	ViewOutgoingRequest RelationView = 1 // 我发出的请求
	ViewIncomingRequest RelationView = 2 // 我收到的请求
	ViewAccepted        RelationView = 3 // 好友
	ViewBlocked         RelationView = 4 // 我已拉黑对方
	ViewRejected        RelationView = 5 // 已拒绝
	ViewDeleted         RelationView = 6 // 对方已删除（墓碑）
)

// String 视图的线上表示（接口返回值）。
func (v RelationView) String() string {
	switch v {
	case ViewOutgoingRequest:
		return "outgoing_request"
	case ViewIncomingRequest:
		return "incoming_request"
	case ViewAccepted:
		return "accepted"
	case ViewBlocked:
		return "blocked"
	case ViewRejected:
		return "rejected"
	case ViewDeleted:
		return "deleted"
	default:
		return "none"
	}
}

// ParseRelationView 把线上表示还原为 RelationView（缓存反序列化用）。
// 未知字符串按 none 处理。
func ParseRelationView(s string) RelationView {
	switch s {
	case "outgoing_request":
		return ViewOutgoingRequest
	case "incoming_request":
		return ViewIncomingRequest
	case "accepted":
		return ViewAccepted
	case "blocked":
		return ViewBlocked
	case "rejected":
		return ViewRejected
	case "deleted":
		return ViewDeleted
	default:
		return ViewNone
	}
}

// RelationEdge 维护一对用户之间的关系边。
// 一对用户只存一行：user_low < user_high（按字典序），两侧视角由 ViewFor 派生，
// 因此两侧永远不会漂移出合法状态组合。
// 约束：uniqueIndex:uidx_pair 确保同一对用户不重复。
type RelationEdge struct {
	Id             int64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增id"`
	UserLow        string        `gorm:"column:user_low;type:char(36);not null;uniqueIndex:uidx_pair,priority:1;index:idx_low_state,priority:1;comment:uuid较小一方"`
	UserHigh       string        `gorm:"column:user_high;type:char(36);not null;uniqueIndex:uidx_pair,priority:2;index:idx_high_state,priority:1;comment:uuid较大一方"`
	State          RelationState `gorm:"column:state;not null;default:0;index:idx_low_state,priority:2;index:idx_high_state,priority:2;comment:生命周期状态 0.待处理 1.好友 2.已拒绝 3.已删除"`
	InitiatorUuid  string        `gorm:"column:initiator_uuid;type:char(36);not null;comment:请求发起方uuid"`
	RemovedBy      string        `gorm:"column:removed_by;type:char(36);comment:单方删除操作方uuid（state=3 时有效）"`
	LowBlockedHigh bool          `gorm:"column:low_blocked_high;not null;default:0;comment:low 方是否拉黑 high 方"`
	HighBlockedLow bool          `gorm:"column:high_blocked_low;not null;default:0;comment:high 方是否拉黑 low 方"`
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (RelationEdge) TableName() string { return "relation_edge" }

// PairKey 归一化一对 uuid 的存储顺序。
func PairKey(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Counterpart 返回 owner 的对端 uuid。owner 不在边上时返回空串。
func (e *RelationEdge) Counterpart(owner string) string {
	switch owner {
	case e.UserLow:
		return e.UserHigh
	case e.UserHigh:
		return e.UserLow
	default:
		return ""
	}
}

// BlockedBy 判断 owner 是否拉黑了对端。
func (e *RelationEdge) BlockedBy(owner string) bool {
	if owner == e.UserLow {
		return e.LowBlockedHigh
	}
	if owner == e.UserHigh {
		return e.HighBlockedLow
	}
	return false
}

// SetBlockFlag 设置 owner 侧的拉黑标志。owner 不在边上时为空操作。
func (e *RelationEdge) SetBlockFlag(owner string, blocked bool) {
	if owner == e.UserLow {
		e.LowBlockedHigh = blocked
	} else if owner == e.UserHigh {
		e.HighBlockedLow = blocked
	}
}

// ViewFor 派生 owner 视角下的关系状态。
// 拉黑是静默的：owner 自己的标志位只影响 owner 的视图，对端视图保持 accepted。
// 单方删除后操作方视角为 none（行对其不可见），另一方保留 deleted 墓碑。
func (e *RelationEdge) ViewFor(owner string) RelationView {
	if e == nil || e.Counterpart(owner) == "" {
		return ViewNone
	}
	switch e.State {
	case RelationStatePending:
		if e.InitiatorUuid == owner {
			return ViewOutgoingRequest
		}
		return ViewIncomingRequest
	case RelationStateAccepted:
		if e.BlockedBy(owner) {
			return ViewBlocked
		}
		return ViewAccepted
	case RelationStateRejected:
		return ViewRejected
	case RelationStateDeleted:
		if e.RemovedBy == owner {
			return ViewNone
		}
		return ViewDeleted
	default:
		return ViewNone
	}
}

// CanSend 判断 sender 当前能否向对端投递消息。
// 仅当边为 accepted 且双向都未拉黑时允许：拉黑方的视图变为 blocked，
// 被拉黑方的视图虽仍为 accepted，发送也会被拒绝（业务语义，见关系服务）。
func (e *RelationEdge) CanSend(sender string) bool {
	if e == nil || e.Counterpart(sender) == "" {
		return false
	}
	return e.State == RelationStateAccepted && !e.LowBlockedHigh && !e.HighBlockedLow
}
