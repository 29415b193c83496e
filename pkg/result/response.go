package result

import (
	"net/http"

	"CipherChat/consts"

	"github.com/gin-gonic/gin"
)

// Response 统一响应封套。
// statusCode 为 HTTP 风格状态码（200/201/400/403/404/409/...），HTTP 层原样透出；
// error 仅在失败时出现，不携带任何存储层内部细节。
type Response struct {
	StatusCode int32       `json:"statusCode"`
	Data       interface{} `json:"data"`
	Error      string      `json:"error,omitempty"`
	TraceId    string      `json:"traceId,omitempty"`
}

// Success 返回 200 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: http.StatusOK,
		Data:       data,
		TraceId:    c.GetString("trace_id"),
	})
}

// Created 返回 201 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		StatusCode: http.StatusCreated,
		Data:       data,
		TraceId:    c.GetString("trace_id"),
	})
}

// Fail 按业务错误码返回失败响应
func Fail(c *gin.Context, code int32) {
	FailWithMessage(c, code, "")
}

// FailWithMessage 按业务错误码返回失败响应并自定义消息
func FailWithMessage(c *gin.Context, code int32, message string) {
	if message == "" {
		message = consts.GetMessage(code)
	}
	status := consts.HTTPStatus(code)
	c.JSON(status, Response{
		StatusCode: int32(status),
		Data:       nil,
		Error:      message,
		TraceId:    c.GetString("trace_id"),
	})
}
