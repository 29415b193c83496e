package repository

import (
	"context"

	"CipherChat/model"
)

// ==================== 账号 Repository ====================

// IAccountRepository 账号数据访问接口（身份存储）
type IAccountRepository interface {
	// Create 创建账号，handle 冲突时返回 ErrDuplicateKey
	Create(ctx context.Context, account *model.UserAccount) (*model.UserAccount, error)

	// GetByUUID 根据 uuid 查询账号，不存在时返回 (nil, nil)。
	// 注销账号（deleted=1）同样返回 (nil, nil)，脱敏行对业务不可见。
	GetByUUID(ctx context.Context, uuid string) (*model.UserAccount, error)

	// GetByHandle 根据用户名查询账号，不存在/已注销时返回 (nil, nil)
	GetByHandle(ctx context.Context, handle string) (*model.UserAccount, error)

	// Exists 判断账号是否存在且未注销
	Exists(ctx context.Context, uuid string) (bool, error)

	// UpdateHandle 修改用户名，冲突时返回 ErrDuplicateKey，账号不存在返回 ErrRecordNotFound
	UpdateHandle(ctx context.Context, uuid, handle string) error

	// UpdatePublicKey 上传/更换公钥（服务端不解读内容）
	UpdatePublicKey(ctx context.Context, uuid, publicKey string) error

	// UpdateVisibility 更新可见性开关
	UpdateVisibility(ctx context.Context, uuid string, shadowed, exactHandleMatchOnly bool) error

	// ScrubDelete 就地脱敏注销：handle 替换为占位符、公钥昵称清空、置 deleted。
	// 行保留，维持历史关系/消息行的引用完整性。已注销时返回 ErrRecordNotFound。
	ScrubDelete(ctx context.Context, uuid, placeholderHandle string) error
}

// ==================== 关系边 Repository ====================

// IRelationRepository 关系边数据访问接口。
// 一对用户只存一行（user_low < user_high），双方视角由 model.RelationEdge.ViewFor 派生。
// 所有变更都在单个事务内完成，并发读永远看不到半更新状态。
type IRelationRepository interface {
	// GetEdge 查询一对用户之间的边，不存在时返回 (nil, nil)
	GetEdge(ctx context.Context, a, b string) (*model.RelationEdge, error)

	// CreateRequest 创建好友请求边。
	// 已存在 pending/accepted 边时返回 ErrEdgeConflict；
	// rejected/deleted 属终态，原子地复用为新的 pending 边（清空拉黑标志与墓碑）。
	CreateRequest(ctx context.Context, owner, target string) (*model.RelationEdge, error)

	// AcceptRequest 接受请求：事务内 CAS（state=pending 且 initiator=target），
	// 落空返回 ErrRequestNotFound（并发双接受只有一方成功）。
	AcceptRequest(ctx context.Context, owner, target string) error

	// RejectRequest 拒绝请求，守卫条件与 AcceptRequest 相同
	RejectRequest(ctx context.Context, owner, target string) error

	// SetBlocked 切换 owner 侧拉黑标志，幂等：目标状态已满足时返回 (false, nil)。
	// 拉黑要求边处于 accepted，否则返回 ErrEdgeNotAccepted；
	// 解除拉黑对不存在的边返回 (false, nil)。
	// 拉黑成功时在同一事务内清空这对用户双向的待取消息（不可投递即不再保留）。
	SetBlocked(ctx context.Context, owner, target string, blocked bool) (bool, error)

	// RemoveEdge 删除 owner 视角的关系：
	//   pending        -> 整行删除（完全撤回，双方回到无关系）
	//   accepted/rejected -> state=deleted + removed_by=owner（对方保留墓碑）
	//   deleted 且对方删的 -> 整行删除（互删坍缩为无关系）
	//   边不存在/已是 owner 删的 -> 幂等成功
	// 发生状态变化时同一事务内清空这对用户双向的待取消息。
	RemoveEdge(ctx context.Context, owner, target string) error

	// ListEdges 列出 owner 参与的全部边
	ListEdges(ctx context.Context, owner string) ([]*model.RelationEdge, error)

	// GetRelationView 读取 owner 视角的关系视图（Cache-Aside：优先 Redis，未命中回源重建）
	GetRelationView(ctx context.Context, owner, target string) (model.RelationView, error)
}

// ==================== 待取消息 Repository ====================

// IMessageRepository 待取消息数据访问接口（消息中转站）
type IMessageRepository interface {
	// CreateGated 投递一条密文：权限检查与写入在同一事务内完成，
	// 避免"检查通过后关系被撤销"的竞态。被关系状态拦截时返回 ErrSendForbidden。
	CreateGated(ctx context.Context, sender, receiver string, ciphertext []byte) (*model.PendingMessage, error)

	// ListPending 拉取 receiver 的待取消息（可按发送方过滤），
	// 按 (created_at, id) 升序——投递顺序与发送顺序一致。不删除，可重复拉取。
	ListPending(ctx context.Context, receiver, sender string, limit int) ([]*model.PendingMessage, error)

	// DeleteAcked 删除确认取走的消息，只删 receiver 自己的行；
	// 不属于 receiver 的 id 静默跳过（匹配零行，不报错）。返回实际删除条数。
	DeleteAcked(ctx context.Context, receiver string, ids []int64) (int64, error)

	// CountPending 统计 receiver 的待取消息条数（优先 Redis 计数器，未命中回源）
	CountPending(ctx context.Context, receiver string) (int64, error)
}
