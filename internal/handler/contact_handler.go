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

// ContactHandler 联系人处理器
type ContactHandler struct {
	contactService service.ContactService
}

// NewContactHandler 创建联系人处理器
func NewContactHandler(contactService service.ContactService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
	}
}

// Request 发起联系人请求接口
// @Summary 发起联系人请求
// @Description 对 rejected/deleted 的历史关系重新发起会复用为全新请求
// @Tags 联系人接口
// @Accept json
// @Produce json
// @Param request body dto.ContactTargetRequest true "目标账号"
// @Success 201 {object} dto.RelationViewResponse
// @Router /api/v1/contacts/requests [post]
func (h *ContactHandler) Request(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.ContactTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.contactService.RequestContact(ctx, userUUID, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "发起联系人请求服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Created(c, resp)
}

// Accept 接受请求接口
// @Summary 接受联系人请求
// @Tags 联系人接口
// @Accept json
// @Produce json
// @Param request body dto.ContactTargetRequest true "目标账号"
// @Success 200 {object} dto.RelationViewResponse
// @Router /api/v1/contacts/requests/accept [post]
func (h *ContactHandler) Accept(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.ContactTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.contactService.AcceptRequest(ctx, userUUID, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "接受联系人请求服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// Reject 拒绝请求接口
// @Summary 拒绝联系人请求
// @Tags 联系人接口
// @Accept json
// @Produce json
// @Param request body dto.ContactTargetRequest true "目标账号"
// @Success 200 {object} dto.RelationViewResponse
// @Router /api/v1/contacts/requests/reject [post]
func (h *ContactHandler) Reject(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.ContactTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.contactService.RejectRequest(ctx, userUUID, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "拒绝联系人请求服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// Remove 删除关系接口
// @Summary 删除联系人/撤回请求
// @Description 幂等操作：待处理请求被整体撤回，好友删除后对方保留墓碑
// @Tags 联系人接口
// @Produce json
// @Param targetUuid path string true "目标账号UUID"
// @Router /api/v1/contacts/{targetUuid} [delete]
func (h *ContactHandler) Remove(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	targetUuid := c.Param("targetUuid")
	if targetUuid == "" {
		result.Fail(c, consts.CodeParamError)
		return
	}

	req := &dto.ContactTargetRequest{TargetUuid: targetUuid}
	if err := h.contactService.RemoveContact(ctx, userUUID, req); err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "删除联系人服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, nil)
}

// Block 拉黑接口
// @Summary 拉黑联系人
// @Description 静默拉黑：对方视角不变，双向消息投递被拒绝，双方积压消息被清空
// @Tags 联系人接口
// @Accept json
// @Produce json
// @Param request body dto.ContactTargetRequest true "目标账号"
// @Success 200 {object} dto.SetBlockedResponse
// @Router /api/v1/contacts/block [post]
func (h *ContactHandler) Block(c *gin.Context) {
	h.setBlocked(c, true, "拉黑联系人服务内部错误")
}

// Unblock 解除拉黑接口
// @Summary 解除拉黑
// @Tags 联系人接口
// @Accept json
// @Produce json
// @Param request body dto.ContactTargetRequest true "目标账号"
// @Success 200 {object} dto.SetBlockedResponse
// @Router /api/v1/contacts/unblock [post]
func (h *ContactHandler) Unblock(c *gin.Context) {
	h.setBlocked(c, false, "解除拉黑服务内部错误")
}

func (h *ContactHandler) setBlocked(c *gin.Context, blocked bool, errMsg string) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.ContactTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.contactService.SetBlocked(ctx, userUUID, &req, blocked)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, errMsg,
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// GetView 查询关系视图接口
// @Summary 查询与目标账号的关系
// @Tags 联系人接口
// @Produce json
// @Param targetUuid path string true "目标账号UUID"
// @Success 200 {object} dto.RelationViewResponse
// @Router /api/v1/contacts/{targetUuid}/view [get]
func (h *ContactHandler) GetView(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	targetUuid := c.Param("targetUuid")
	if targetUuid == "" {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.contactService.GetRelationView(ctx, userUUID, targetUuid)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "查询关系视图服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// List 联系人列表接口
// @Summary 列出联系人
// @Description 可选 view 参数按视角过滤，如 view=incoming_request 只看收到的请求
// @Tags 联系人接口
// @Produce json
// @Param view query string false "视角过滤" Enums(outgoing_request, incoming_request, accepted, blocked, rejected, deleted)
// @Success 200 {object} dto.ContactListResponse
// @Router /api/v1/contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.ListContactsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.contactService.ListContacts(ctx, userUUID, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "获取联系人列表服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// GetPeer 获取好友公开信息接口
// @Summary 获取好友公开信息（含公钥）
// @Description 仅 accepted 关系可见
// @Tags 联系人接口
// @Produce json
// @Param targetUuid path string true "目标账号UUID"
// @Success 200 {object} dto.PublicAccountInfo
// @Router /api/v1/contacts/{targetUuid}/account [get]
func (h *ContactHandler) GetPeer(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	targetUuid := c.Param("targetUuid")
	if targetUuid == "" {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.contactService.GetPeerAccount(ctx, userUUID, targetUuid)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "获取好友信息服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}
