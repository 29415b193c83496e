package consts

import "net/http"

// 通用错误码
const (
	CodeSuccess = 0 // 成功
)

// 客户端错误 (1xxxx)
const (
	CodeParamError       = 10001 // 参数验证失败
	CodeBodyError        = 10002 // 请求体格式错误
	CodeResourceNotFound = 10003 // 资源不存在
	CodeTooManyRequests  = 10004 // 请求过于频繁
	CodeBodyTooLarge     = 10005 // 请求体过大
)

// 认证错误 (2xxxx)
const (
	CodeUnauthorized   = 20001 // 未认证
	CodeInvalidToken   = 20002 // Token 无效
	CodeTokenExpired   = 20003 // Token 已过期
	CodePermissionDeny = 20004 // 权限不足
)

// 账号模块错误 (11xxx)
const (
	CodeAccountNotFound  = 11001 // 账号不存在
	CodeHandleTaken      = 11002 // 用户名已被占用
	CodeHandleInvalid    = 11003 // 用户名格式错误
	CodePasswordError    = 11004 // 密码错误
	CodeAccountDeleted   = 11005 // 账号已注销
	CodePublicKeyMissing = 11006 // 未上传公钥
)

// 联系人模块错误 (12xxx)
const (
	CodeSelfTarget           = 12001 // 不能对自己操作
	CodeRelationConflict     = 12002 // 已存在进行中的关系
	CodeRequestNotFound      = 12003 // 待处理请求不存在或已被处理
	CodeRelationNotFound     = 12004 // 关系不存在
	CodeBlockRequireAccepted = 12005 // 仅好友关系可拉黑
)

// 消息模块错误 (13xxx)
const (
	CodeSendForbidden      = 13001 // 当前关系不允许发送消息
	CodeCiphertextTooLarge = 13002 // 密文超过大小限制
	CodeCiphertextEmpty    = 13003 // 密文为空
)

// 服务端错误 (3xxxx)
const (
	CodeInternalError      = 30001 // 服务器内部错误
	CodeStorageUnavailable = 30002 // 存储暂不可用（可重试）
)

// 错误消息映射
var CodeMessage = map[int32]string{
	CodeSuccess: "success",

	// 客户端错误
	CodeParamError:       "参数验证失败",
	CodeBodyError:        "请求体格式错误",
	CodeResourceNotFound: "资源不存在",
	CodeTooManyRequests:  "请求过于频繁",
	CodeBodyTooLarge:     "请求体过大",

	// 认证错误
	CodeUnauthorized:   "未认证",
	CodeInvalidToken:   "Token 无效",
	CodeTokenExpired:   "Token 已过期",
	CodePermissionDeny: "权限不足",

	// 账号模块
	CodeAccountNotFound:  "账号不存在",
	CodeHandleTaken:      "用户名已被占用",
	CodeHandleInvalid:    "用户名格式错误",
	CodePasswordError:    "密码错误",
	CodeAccountDeleted:   "账号已注销",
	CodePublicKeyMissing: "未上传公钥",

	// 联系人模块
	CodeSelfTarget:           "不能对自己操作",
	CodeRelationConflict:     "已存在进行中的关系",
	CodeRequestNotFound:      "待处理请求不存在或已被处理",
	CodeRelationNotFound:     "关系不存在",
	CodeBlockRequireAccepted: "仅好友关系可拉黑",

	// 消息模块
	CodeSendForbidden:      "当前关系不允许发送消息",
	CodeCiphertextTooLarge: "密文超过大小限制",
	CodeCiphertextEmpty:    "密文为空",

	// 服务端错误
	CodeInternalError:      "服务器内部错误",
	CodeStorageUnavailable: "存储暂不可用",
}

// codeHTTPStatus 业务错误码到 HTTP 状态码的映射。
// 响应封套中的 statusCode 使用 HTTP 风格状态码，HTTP 层原样透出。
var codeHTTPStatus = map[int32]int{
	CodeSuccess: http.StatusOK,

	CodeParamError:       http.StatusBadRequest,
	CodeBodyError:        http.StatusBadRequest,
	CodeResourceNotFound: http.StatusNotFound,
	CodeTooManyRequests:  http.StatusTooManyRequests,
	CodeBodyTooLarge:     http.StatusRequestEntityTooLarge,

	CodeUnauthorized:   http.StatusUnauthorized,
	CodeInvalidToken:   http.StatusUnauthorized,
	CodeTokenExpired:   http.StatusUnauthorized,
	CodePermissionDeny: http.StatusForbidden,

	CodeAccountNotFound:  http.StatusNotFound,
	CodeHandleTaken:      http.StatusConflict,
	CodeHandleInvalid:    http.StatusBadRequest,
	CodePasswordError:    http.StatusUnauthorized,
	CodeAccountDeleted:   http.StatusNotFound,
	CodePublicKeyMissing: http.StatusConflict,

	CodeSelfTarget:           http.StatusBadRequest,
	CodeRelationConflict:     http.StatusConflict,
	CodeRequestNotFound:      http.StatusNotFound,
	CodeRelationNotFound:     http.StatusNotFound,
	CodeBlockRequireAccepted: http.StatusConflict,

	CodeSendForbidden:      http.StatusForbidden,
	CodeCiphertextTooLarge: http.StatusRequestEntityTooLarge,
	CodeCiphertextEmpty:    http.StatusBadRequest,

	CodeInternalError:      http.StatusInternalServerError,
	CodeStorageUnavailable: http.StatusInternalServerError,
}

// GetMessage 根据错误码获取错误消息
func GetMessage(code int32) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}

// HTTPStatus 根据业务错误码获取 HTTP 状态码
func HTTPStatus(code int32) int {
	if status, ok := codeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsNonServerError 判断是否为客户端/业务错误（非 5xx）。
// 业务错误属于正常流程，不记录 Error 级日志。
func IsNonServerError(code int32) bool {
	return HTTPStatus(code) < http.StatusInternalServerError
}
