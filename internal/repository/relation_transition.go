package repository

import (
	"CipherChat/model"
)

// ==================== 状态迁移判定（纯函数） ====================
//
// 事务闭包只负责锁边和落库，迁移方向由这里的纯函数判定，
// 各分支可以脱离数据库直接测试。

// requestTransition 判定在已有边上能否发起新请求。
// pending/accepted 属进行中状态，返回 ErrEdgeConflict；
// rejected/deleted 属终态，可复用为新请求（返回 nil）。
func requestTransition(edge *model.RelationEdge) error {
	switch edge.State {
	case model.RelationStatePending, model.RelationStateAccepted:
		return ErrEdgeConflict
	}
	return nil
}

// recycleToPending 把终态边复用为 owner 发起的全新 pending 边：
// 清空拉黑标志与删除墓碑，历史状态不留痕迹。
func recycleToPending(edge model.RelationEdge, owner string) model.RelationEdge {
	edge.State = model.RelationStatePending
	edge.InitiatorUuid = owner
	edge.RemovedBy = ""
	edge.LowBlockedHigh = false
	edge.HighBlockedLow = false
	return edge
}

// removeAction RemoveEdge 的迁移动作
type removeAction int8

const (
	// removeNoop 无需变更（边不存在或已是 owner 删的墓碑），幂等成功
	removeNoop removeAction = iota
	// removeDeleteRow 整行删除（请求撤回 / 互删坍缩），双方回到无关系
	removeDeleteRow
	// removeTombstone 置墓碑：state=deleted + removed_by=owner，对方仍可见
	removeTombstone
)

// removeTransition 判定 owner 删除关系时的动作。
// 产生变更的动作（deleteRow/tombstone）都伴随这对用户待取消息的清空。
func removeTransition(edge *model.RelationEdge, owner string) removeAction {
	if edge == nil {
		return removeNoop
	}

	switch edge.State {
	case model.RelationStatePending:
		return removeDeleteRow

	case model.RelationStateAccepted, model.RelationStateRejected:
		return removeTombstone

	case model.RelationStateDeleted:
		if edge.RemovedBy == owner {
			return removeNoop
		}
		return removeDeleteRow
	}

	return removeNoop
}

// blockTransition 判定 owner 侧拉黑标志的切换。
// 返回 apply 表示需要落库；返回错误表示拉黑前置条件不满足。
//   - 边不存在：解除拉黑幂等成功，拉黑返回 ErrEdgeNotAccepted
//   - 拉黑要求边处于 accepted
//   - 目标状态已满足时幂等成功（apply=false）
func blockTransition(edge *model.RelationEdge, owner string, blocked bool) (bool, error) {
	if edge == nil {
		if !blocked {
			return false, nil
		}
		return false, ErrEdgeNotAccepted
	}

	if blocked && edge.State != model.RelationStateAccepted {
		return false, ErrEdgeNotAccepted
	}
	if edge.BlockedBy(owner) == blocked {
		return false, nil
	}
	return true, nil
}
