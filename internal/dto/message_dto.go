package dto

import (
	"strconv"

	"CipherChat/model"
)

// ==================== 消息中转相关 DTO ====================

// SendMessageRequest 发送消息请求 DTO。
// ciphertext 为端到端加密密文的 base64，服务端只校验大小不解读内容。
type SendMessageRequest struct {
	ReceiverUuid string `json:"receiverUuid" binding:"required,uuid"` // 接收方UUID
	Ciphertext   []byte `json:"ciphertext" binding:"required"`        // 密文（base64 编解码由 json 层完成）
}

// SendMessageResponse 发送消息响应 DTO
type SendMessageResponse struct {
	MessageId string `json:"messageId"` // 消息ID（雪花ID，字符串避免前端精度丢失）
	CreatedAt int64  `json:"createdAt"` // 入库时间（毫秒时间戳）
}

// FetchMessagesRequest 拉取消息请求 DTO
type FetchMessagesRequest struct {
	SenderUuid string `form:"senderUuid" binding:"omitempty,uuid"`     // 只拉取该发送方的消息（可选）
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"` // 单次拉取条数
}

// MessageItem 消息项 DTO
type MessageItem struct {
	Id         string `json:"id"`         // 消息ID
	SenderUuid string `json:"senderUuid"` // 发送方UUID
	Ciphertext []byte `json:"ciphertext"` // 密文
	CreatedAt  int64  `json:"createdAt"`  // 入库时间（毫秒时间戳）
}

// FetchMessagesResponse 拉取消息响应 DTO
type FetchMessagesResponse struct {
	Items []*MessageItem `json:"items"` // 消息列表，按投递顺序排列
	Count int            `json:"count"` // 本次条数
}

// AckMessagesRequest 确认取走请求 DTO
type AckMessagesRequest struct {
	Ids []string `json:"ids" binding:"required,min=1,max=500,dive,required"` // 已取走的消息ID列表
}

// AckMessagesResponse 确认取走响应 DTO
type AckMessagesResponse struct {
	Acked int64 `json:"acked"` // 实际删除条数（不属于本人的ID被静默跳过）
}

// UnreadCountResponse 待取消息数响应 DTO
type UnreadCountResponse struct {
	Count int64 `json:"count"` // 待取消息条数
}

// ==================== 消息 DTO 转换函数 ====================

// ConvertMessageItem 将待取消息模型转换为 DTO
func ConvertMessageItem(msg *model.PendingMessage) *MessageItem {
	if msg == nil {
		return nil
	}
	return &MessageItem{
		Id:         strconv.FormatInt(msg.Id, 10),
		SenderUuid: msg.SenderUuid,
		Ciphertext: msg.Ciphertext,
		CreatedAt:  msg.CreatedAt.UnixMilli(),
	}
}
