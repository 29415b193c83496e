package service

import (
	"context"

	"CipherChat/internal/dto"
)

// AccountService 账号服务接口（注册/登录/资料/注销）
type AccountService interface {
	// Register 注册账号
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)

	// Login 密码登录，签发访问令牌
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)

	// GetSelf 获取本人账号信息
	GetSelf(ctx context.Context, userUUID string) (*dto.AccountInfo, error)

	// LookupByHandle 按用户名精确查找账号（隐身账号不可见）
	LookupByHandle(ctx context.Context, viewerUUID, handle string) (*dto.PublicAccountInfo, error)

	// UpdateHandle 修改用户名
	UpdateHandle(ctx context.Context, userUUID string, req *dto.UpdateHandleRequest) error

	// UploadPublicKey 上传/更换公钥
	UploadPublicKey(ctx context.Context, userUUID string, req *dto.UploadPublicKeyRequest) error

	// UpdateVisibility 更新可见性开关
	UpdateVisibility(ctx context.Context, userUUID string, req *dto.UpdateVisibilityRequest) error

	// DeleteAccount 注销账号（密码二次确认，就地脱敏）
	DeleteAccount(ctx context.Context, userUUID string, req *dto.DeleteAccountRequest) error
}

// ContactService 联系人服务接口（关系状态机）
type ContactService interface {
	// RequestContact 发起联系人请求
	RequestContact(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) (*dto.RelationViewResponse, error)

	// AcceptRequest 接受收到的请求
	AcceptRequest(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) (*dto.RelationViewResponse, error)

	// RejectRequest 拒绝收到的请求
	RejectRequest(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) (*dto.RelationViewResponse, error)

	// RemoveContact 删除关系（请求撤回/好友删除/墓碑清理），幂等
	RemoveContact(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) error

	// SetBlocked 拉黑/解除拉黑，幂等
	SetBlocked(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest, blocked bool) (*dto.SetBlockedResponse, error)

	// GetRelationView 查询与目标账号的关系视图
	GetRelationView(ctx context.Context, ownerUUID, targetUUID string) (*dto.RelationViewResponse, error)

	// ListContacts 列出联系人（含请求与墓碑），可按视角过滤
	ListContacts(ctx context.Context, ownerUUID string, req *dto.ListContactsRequest) (*dto.ContactListResponse, error)

	// GetPeerAccount 获取好友的公开信息（公钥在此获取，仅限 accepted 关系）
	GetPeerAccount(ctx context.Context, ownerUUID, targetUUID string) (*dto.PublicAccountInfo, error)
}

// MessageService 消息中转服务接口
type MessageService interface {
	// Send 投递一条密文
	Send(ctx context.Context, senderUUID string, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)

	// Fetch 拉取待取消息（不删除，可重复拉取）
	Fetch(ctx context.Context, receiverUUID string, req *dto.FetchMessagesRequest) (*dto.FetchMessagesResponse, error)

	// Acknowledge 确认取走，删除对应消息行
	Acknowledge(ctx context.Context, receiverUUID string, req *dto.AckMessagesRequest) (*dto.AckMessagesResponse, error)

	// UnreadCount 查询待取消息条数
	UnreadCount(ctx context.Context, receiverUUID string) (*dto.UnreadCountResponse, error)
}
