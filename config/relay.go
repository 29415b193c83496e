package config

// RelayConfig 消息中转配置。
// 服务端只暂存密文，不解密、不校验内容，仅做大小限制。
type RelayConfig struct {
	MaxCiphertextBytes int   `json:"maxCiphertextBytes" yaml:"maxCiphertextBytes"` // 单条密文最大字节数
	FetchLimit         int   `json:"fetchLimit" yaml:"fetchLimit"`                 // 单次拉取的最大条数
	SnowflakeNode      int64 `json:"snowflakeNode" yaml:"snowflakeNode"`           // 消息ID生成节点编号（多实例时每实例唯一）
}

// DefaultRelayConfig 返回本地开发的默认配置
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxCiphertextBytes: 64 * 1024,
		FetchLimit:         200,
		SnowflakeNode:      1,
	}
}
