package model

import (
	"time"
)

// PendingMessage 待取消息。
// 服务端只是中转站：行在发送时写入，收件方确认取走后立即删除，永不归档。
// 密文不解读、不校验，仅受大小限制。
type PendingMessage struct {
	Id           int64     `gorm:"column:id;primaryKey;comment:雪花id，发送时生成，非自增"`
	SenderUuid   string    `gorm:"column:sender_uuid;type:char(36);not null;index:idx_sender;comment:发送方uuid"`
	ReceiverUuid string    `gorm:"column:receiver_uuid;type:char(36);not null;index:idx_receiver_created,priority:1;comment:接收方uuid"`
	Ciphertext   []byte    `gorm:"column:ciphertext;type:mediumblob;not null;comment:端到端加密密文，服务端不解读"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime;index:idx_receiver_created,priority:2"`
}

func (PendingMessage) TableName() string { return "pending_message" }
