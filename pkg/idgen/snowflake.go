package idgen

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	global   *snowflake.Node
	globalMu sync.Mutex
)

// ErrNotInitialized 表示 ID 生成器尚未初始化。
var ErrNotInitialized = errors.New("idgen not initialized")

// Init 初始化全局雪花节点（仅需在进程启动时调用一次）。
// node 为实例编号，多实例部署时每个实例必须唯一，否则 ID 会冲突。
func Init(node int64) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return nil
	}

	n, err := snowflake.NewNode(node)
	if err != nil {
		return err
	}
	global = n
	return nil
}

// NextID 生成一个递增趋势的全局唯一 ID。
// 雪花 ID 按生成时间递增，消息按 (created_at, id) 排序即可保证投递顺序与发送顺序一致。
func NextID() (int64, error) {
	if global == nil {
		return 0, ErrNotInitialized
	}
	return global.Generate().Int64(), nil
}
