package rediskey

import (
	"fmt"
	"time"
)

// ==================== TTL 常量 ====================

const (
	// AccountInfoTTL 账号信息缓存 TTL
	AccountInfoTTL = 1 * time.Hour
	// AccountInfoEmptyTTL 账号信息空值缓存 TTL
	AccountInfoEmptyTTL = 5 * time.Minute

	// RelationViewTTL 关系视图缓存 TTL
	RelationViewTTL = 24 * time.Hour
	// RelationViewEmptyTTL 关系视图空值缓存 TTL
	RelationViewEmptyTTL = 5 * time.Minute

	// PendingUnreadTTL 待取消息未读计数 TTL
	PendingUnreadTTL = 7 * 24 * time.Hour
)

// ==================== Key 构造函数 ====================

// AccountInfoKey 生成账号信息缓存 Key: account:info:{uuid}
func AccountInfoKey(uuid string) string {
	return fmt.Sprintf("account:info:%s", uuid)
}

// RelationViewKey 生成关系视图缓存 Key: relation:view:{owner_uuid}
// Hash: field=对端uuid, value=视图 json
func RelationViewKey(ownerUUID string) string {
	return fmt.Sprintf("relation:view:%s", ownerUUID)
}

// PendingUnreadKey 生成待取消息未读计数 Key: relay:pending:unread:{receiver_uuid}
func PendingUnreadKey(receiverUUID string) string {
	return fmt.Sprintf("relay:pending:unread:%s", receiverUUID)
}

// IPRateLimitKey 生成 IP 限流 Key: rate:limit:ip:{ip}
func IPRateLimitKey(ip string) string {
	return fmt.Sprintf("rate:limit:ip:%s", ip)
}

// UserRateLimitKey 生成用户限流 Key: rate:limit:user:{user_uuid}
func UserRateLimitKey(userUUID string) string {
	return fmt.Sprintf("rate:limit:user:%s", userUUID)
}
