package model

import (
	"time"
)

// UserAccount 账号记录。
// 注销采用就地脱敏（handle 替换为占位符、公钥/昵称清空），保留行本身，
// 避免破坏历史关系/消息行的引用完整性。
type UserAccount struct {
	Id                   int64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增id"`
	Uuid                 string    `gorm:"column:uuid;type:char(36);not null;uniqueIndex:uidx_uuid;comment:账号uuid，注册时生成，不可变"`
	Handle               string    `gorm:"column:handle;type:varchar(20);not null;uniqueIndex:uidx_handle;comment:用户名，3-20位字母数字下划线，可改"`
	PasswordHash         string    `gorm:"column:password_hash;type:varchar(60);not null;comment:bcrypt 密码散列"`
	PublicKey            string    `gorm:"column:public_key;type:text;comment:客户端上传的公钥，服务端不解读，注册后短暂为空"`
	Nickname             string    `gorm:"column:nickname;type:varchar(30);comment:展示昵称"`
	Shadowed             bool      `gorm:"column:shadowed;not null;default:0;comment:是否隐身（不出现在任何查找结果中）"`
	ExactHandleMatchOnly bool      `gorm:"column:exact_handle_match_only;not null;default:0;comment:仅允许用户名精确匹配查找"`
	Deleted              bool      `gorm:"column:deleted;not null;default:0;comment:是否已注销（脱敏保留行）"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserAccount) TableName() string { return "user_account" }
