package repository

import (
	"encoding/json"
	"math/rand"
	"strings"
	"time"
)

// cacheEmptyPlaceholder 空值缓存占位符，防止缓存穿透
const cacheEmptyPlaceholder = "__EMPTY__"

// relationViewMeta 关系视图缓存的 Hash value
type relationViewMeta struct {
	View      string `json:"view"`
	UpdatedAt int64  `json:"updated_at"`
}

func buildRelationViewJSON(view string, updatedAt int64) string {
	meta := relationViewMeta{
		View:      view,
		UpdatedAt: updatedAt,
	}
	data, err := json.Marshal(&meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func parseRelationViewJSON(raw string) (*relationViewMeta, error) {
	var meta relationViewMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func isRedisWrongType(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "WRONGTYPE")
}

// getRandomExpireTime 生成带随机抖动的过期时间（基础时间 ± 10%），防止缓存雪崩
func getRandomExpireTime(baseExpire time.Duration) time.Duration {
	jitterRange := float64(baseExpire) * 0.1
	jitter := time.Duration(rand.Float64()*float64(jitterRange)*2 - float64(jitterRange))

	return baseExpire + jitter
}

// getRandomBool 以给定概率返回 true
func getRandomBool(probability float64) bool {
	return rand.Float64() < probability
}
