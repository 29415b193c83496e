package dto

import (
	"CipherChat/model"
)

// ==================== 账号相关 DTO ====================

// AccountInfo 账号信息 DTO（本人视角，含可见性开关）
type AccountInfo struct {
	Uuid                 string `json:"uuid"`                 // 账号UUID
	Handle               string `json:"handle"`               // 用户名
	Nickname             string `json:"nickname"`             // 昵称
	PublicKey            string `json:"publicKey"`            // 公钥（原样透传）
	Shadowed             bool   `json:"shadowed"`             // 是否隐身
	ExactHandleMatchOnly bool   `json:"exactHandleMatchOnly"` // 仅精确匹配可查找
	CreatedAt            int64  `json:"createdAt"`            // 注册时间（毫秒时间戳）
}

// PublicAccountInfo 账号信息 DTO（他人视角，只暴露建立会话所需的字段）
type PublicAccountInfo struct {
	Uuid      string `json:"uuid"`      // 账号UUID
	Handle    string `json:"handle"`    // 用户名
	Nickname  string `json:"nickname"`  // 昵称
	PublicKey string `json:"publicKey"` // 公钥
}

// LookupAccountRequest 查找账号请求 DTO
type LookupAccountRequest struct {
	Handle string `form:"handle" binding:"required,min=3,max=20"` // 用户名（精确匹配）
}

// UpdateHandleRequest 修改用户名请求 DTO
type UpdateHandleRequest struct {
	Handle string `json:"handle" binding:"required,min=3,max=20"` // 新用户名
}

// UploadPublicKeyRequest 上传公钥请求 DTO
type UploadPublicKeyRequest struct {
	PublicKey string `json:"publicKey" binding:"required,min=1,max=8192"` // 公钥内容，服务端不解读
}

// UpdateVisibilityRequest 更新可见性请求 DTO
type UpdateVisibilityRequest struct {
	Shadowed             *bool `json:"shadowed" binding:"required"`             // 是否隐身
	ExactHandleMatchOnly *bool `json:"exactHandleMatchOnly" binding:"required"` // 仅精确匹配可查找
}

// DeleteAccountRequest 注销账号请求 DTO
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required,min=8,max=64"` // 密码二次确认
}

// ==================== 账号 DTO 转换函数 ====================

// ConvertAccountInfo 将账号模型转换为本人视角 DTO
func ConvertAccountInfo(account *model.UserAccount) *AccountInfo {
	if account == nil {
		return nil
	}
	return &AccountInfo{
		Uuid:                 account.Uuid,
		Handle:               account.Handle,
		Nickname:             account.Nickname,
		PublicKey:            account.PublicKey,
		Shadowed:             account.Shadowed,
		ExactHandleMatchOnly: account.ExactHandleMatchOnly,
		CreatedAt:            account.CreatedAt.UnixMilli(),
	}
}

// ConvertPublicAccountInfo 将账号模型转换为他人视角 DTO
func ConvertPublicAccountInfo(account *model.UserAccount) *PublicAccountInfo {
	if account == nil {
		return nil
	}
	return &PublicAccountInfo{
		Uuid:      account.Uuid,
		Handle:    account.Handle,
		Nickname:  account.Nickname,
		PublicKey: account.PublicKey,
	}
}
