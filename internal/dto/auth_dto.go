package dto

import (
	"CipherChat/model"
)

// ==================== 认证相关 DTO ====================

// RegisterRequest 注册请求 DTO
type RegisterRequest struct {
	Handle   string `json:"handle" binding:"required,min=3,max=20"`    // 用户名（3-20位字母数字下划线）
	Password string `json:"password" binding:"required,min=8,max=64"`  // 密码
	Nickname string `json:"nickname" binding:"omitempty,min=1,max=30"` // 昵称（可选）
}

// RegisterResponse 注册响应 DTO
type RegisterResponse struct {
	Uuid     string `json:"uuid"`     // 账号UUID（不可变）
	Handle   string `json:"handle"`   // 用户名
	Nickname string `json:"nickname"` // 昵称
}

// LoginRequest 登录请求 DTO
type LoginRequest struct {
	Handle   string `json:"handle" binding:"required,min=3,max=20"`   // 用户名
	Password string `json:"password" binding:"required,min=8,max=64"` // 密码
}

// LoginResponse 登录响应 DTO
type LoginResponse struct {
	AccessToken string       `json:"accessToken"` // 访问令牌
	TokenType   string       `json:"tokenType"`   // 令牌类型
	ExpiresIn   int64        `json:"expiresIn"`   // 过期时间(秒)
	Account     *AccountInfo `json:"account"`     // 账号信息
}

// ==================== 认证 DTO 转换函数 ====================

// ConvertRegisterResponse 将账号模型转换为注册响应 DTO
func ConvertRegisterResponse(account *model.UserAccount) *RegisterResponse {
	if account == nil {
		return nil
	}
	return &RegisterResponse{
		Uuid:     account.Uuid,
		Handle:   account.Handle,
		Nickname: account.Nickname,
	}
}
