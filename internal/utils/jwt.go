package utils

import (
	"errors"
	"time"

	"CipherChat/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken Token 无效（签名不对、格式错误、声明缺失）
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired Token 已过期
	ErrTokenExpired = errors.New("token expired")
)

// Claims 访问令牌声明，user_uuid 是唯一的业务身份字段
type Claims struct {
	UserUUID string `json:"user_uuid"`
	jwt.RegisteredClaims
}

// GenerateToken 签发访问令牌（HS256）
func GenerateToken(cfg config.JWTConfig, userUUID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserUUID: userUUID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userUUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expire)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseToken 解析并校验访问令牌
func ParseToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserUUID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
