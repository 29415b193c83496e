package dto

import (
	"CipherChat/model"
)

// ==================== 联系人相关 DTO ====================

// ContactTargetRequest 联系人操作请求 DTO（请求/接受/拒绝/删除共用）
type ContactTargetRequest struct {
	TargetUuid string `json:"targetUuid" binding:"required,uuid"` // 目标账号UUID
}

// RelationViewResponse 关系视图响应 DTO
type RelationViewResponse struct {
	TargetUuid string `json:"targetUuid"` // 目标账号UUID
	View       string `json:"view"`       // 本侧视角(none/outgoing_request/incoming_request/accepted/blocked/rejected/deleted)
}

// ListContactsRequest 联系人列表请求 DTO
// view 为空时返回全部边，指定时只返回该视角的边（如只看 incoming_request）
type ListContactsRequest struct {
	View string `form:"view" binding:"omitempty,oneof=outgoing_request incoming_request accepted blocked rejected deleted"` // 视角过滤（可选）
}

// ContactItem 联系人列表项 DTO
type ContactItem struct {
	PeerUuid  string `json:"peerUuid"`  // 对端账号UUID
	View      string `json:"view"`      // 本侧视角
	UpdatedAt int64  `json:"updatedAt"` // 最近变更时间（毫秒时间戳）
}

// ContactListResponse 联系人列表响应 DTO
type ContactListResponse struct {
	Items []*ContactItem `json:"items"` // 联系人列表
	Total int            `json:"total"` // 总数
}

// SetBlockedResponse 拉黑/解除拉黑响应 DTO
type SetBlockedResponse struct {
	Changed bool `json:"changed"` // 本次操作是否产生了状态变化（幂等重放为 false）
}

// ==================== 联系人 DTO 转换函数 ====================

// ConvertContactItem 将关系边模型转换为 owner 视角的列表项 DTO
func ConvertContactItem(edge *model.RelationEdge, owner string) *ContactItem {
	if edge == nil {
		return nil
	}
	return &ContactItem{
		PeerUuid:  edge.Counterpart(owner),
		View:      edge.ViewFor(owner).String(),
		UpdatedAt: edge.UpdatedAt.UnixMilli(),
	}
}
