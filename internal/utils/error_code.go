package utils

import (
	"errors"

	"CipherChat/consts"
	"CipherChat/internal/repository"
)

// BizError 携带业务错误码的错误。
// service 层把仓储哨兵错误翻译为 BizError，handler 只认错误码。
type BizError struct {
	Code int32
	Msg  string
}

func (e *BizError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return consts.GetMessage(e.Code)
}

// NewBizError 按错误码构造业务错误
func NewBizError(code int32) *BizError {
	return &BizError{Code: code}
}

// NewBizErrorWithMessage 按错误码构造业务错误并自定义消息
func NewBizErrorWithMessage(code int32, msg string) *BizError {
	return &BizError{Code: code, Msg: msg}
}

// ExtractErrorCode 提取业务错误码。
// 非 BizError 的仓储哨兵错误按约定映射，未识别的一律归为内部错误。
func ExtractErrorCode(err error) int32 {
	if err == nil {
		return consts.CodeSuccess
	}

	var bizErr *BizError
	if errors.As(err, &bizErr) {
		return bizErr.Code
	}

	switch {
	case errors.Is(err, repository.ErrEdgeConflict):
		return consts.CodeRelationConflict
	case errors.Is(err, repository.ErrRequestNotFound):
		return consts.CodeRequestNotFound
	case errors.Is(err, repository.ErrEdgeNotAccepted):
		return consts.CodeBlockRequireAccepted
	case errors.Is(err, repository.ErrEdgeNotFound):
		return consts.CodeRelationNotFound
	case errors.Is(err, repository.ErrSendForbidden):
		return consts.CodeSendForbidden
	case errors.Is(err, repository.ErrRecordNotFound):
		return consts.CodeResourceNotFound
	case errors.Is(err, repository.ErrDuplicateKey):
		return consts.CodeRelationConflict
	case errors.Is(err, repository.ErrDatabase), errors.Is(err, repository.ErrRedis):
		return consts.CodeStorageUnavailable
	default:
		return consts.CodeInternalError
	}
}
