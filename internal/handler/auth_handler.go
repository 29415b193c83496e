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

// AuthHandler 认证处理器
type AuthHandler struct {
	accountService service.AccountService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(accountService service.AccountService) *AuthHandler {
	return &AuthHandler{
		accountService: accountService,
	}
}

// Register 注册接口
// @Summary 注册账号
// @Description 用用户名+密码创建账号，uuid 由服务端生成且不可变
// @Tags 认证接口
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册请求"
// @Success 201 {object} dto.RegisterResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.accountService.Register(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "注册服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Created(c, resp)
}

// Login 登录接口
// @Summary 密码登录
// @Description 校验用户名密码，签发访问令牌
// @Tags 认证接口
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录请求"
// @Success 200 {object} dto.LoginResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.accountService.Login(ctx, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "登录服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}
