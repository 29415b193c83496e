package handler

import (
	"CipherChat/consts"
	"CipherChat/internal/dto"
	"CipherChat/internal/middleware"
	"CipherChat/internal/service"
	"CipherChat/internal/utils"
	"CipherChat/pkg/logger"
	"CipherChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// AccountHandler 账号处理器
type AccountHandler struct {
	accountService service.AccountService
}

// NewAccountHandler 创建账号处理器
func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// GetSelf 获取本人账号信息接口
// @Summary 获取本人信息
// @Tags 账号接口
// @Produce json
// @Success 200 {object} dto.AccountInfo
// @Router /api/v1/account [get]
func (h *AccountHandler) GetSelf(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	resp, err := h.accountService.GetSelf(ctx, userUUID)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "获取账号信息服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// Lookup 查找账号接口
// @Summary 按用户名精确查找账号
// @Description 隐身账号不出现在结果中
// @Tags 账号接口
// @Produce json
// @Param handle query string true "用户名"
// @Success 200 {object} dto.PublicAccountInfo
// @Router /api/v1/account/lookup [get]
func (h *AccountHandler) Lookup(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.LookupAccountRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.accountService.LookupByHandle(ctx, userUUID, req.Handle)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "查找账号服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// UpdateHandle 修改用户名接口
// @Summary 修改用户名
// @Tags 账号接口
// @Accept json
// @Produce json
// @Param request body dto.UpdateHandleRequest true "修改用户名请求"
// @Router /api/v1/account/handle [put]
func (h *AccountHandler) UpdateHandle(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.UpdateHandleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	if err := h.accountService.UpdateHandle(ctx, userUUID, &req); err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "修改用户名服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, nil)
}

// UploadPublicKey 上传公钥接口
// @Summary 上传/更换公钥
// @Description 服务端不解读公钥内容，原样存储
// @Tags 账号接口
// @Accept json
// @Produce json
// @Param request body dto.UploadPublicKeyRequest true "上传公钥请求"
// @Router /api/v1/account/public-key [put]
func (h *AccountHandler) UploadPublicKey(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.UploadPublicKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	if err := h.accountService.UploadPublicKey(ctx, userUUID, &req); err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "上传公钥服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, nil)
}

// UpdateVisibility 更新可见性接口
// @Summary 更新可见性开关
// @Tags 账号接口
// @Accept json
// @Produce json
// @Param request body dto.UpdateVisibilityRequest true "更新可见性请求"
// @Router /api/v1/account/visibility [put]
func (h *AccountHandler) UpdateVisibility(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.UpdateVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	if err := h.accountService.UpdateVisibility(ctx, userUUID, &req); err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "更新可见性服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, nil)
}

// DeleteAccount 注销账号接口
// @Summary 注销账号
// @Description 密码二次确认后就地脱敏，uuid 保留但对外不可见
// @Tags 账号接口
// @Accept json
// @Produce json
// @Param request body dto.DeleteAccountRequest true "注销请求"
// @Router /api/v1/account [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	if err := h.accountService.DeleteAccount(ctx, userUUID, &req); err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "注销账号服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, nil)
}
