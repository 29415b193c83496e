package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRedisWrongType(t *testing.T) {
	assert.False(t, isRedisWrongType(nil))
	assert.False(t, isRedisWrongType(errors.New("connection refused")))
	// go-redis 原样透出服务端错误文本
	assert.True(t, isRedisWrongType(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")))
}

func TestGetRandomExpireTimeJitterBounds(t *testing.T) {
	base := time.Hour
	for i := 0; i < 100; i++ {
		got := getRandomExpireTime(base)
		assert.GreaterOrEqual(t, got, base-base/10)
		assert.LessOrEqual(t, got, base+base/10)
	}
}
