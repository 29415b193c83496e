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

// MessageHandler 消息中转处理器
type MessageHandler struct {
	messageService service.MessageService
}

// NewMessageHandler 创建消息中转处理器
func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// Send 发送消息接口
// @Summary 投递密文消息
// @Description 仅 accepted 且未被拉黑的关系可投递；服务端不解读密文
// @Tags 消息接口
// @Accept json
// @Produce json
// @Param request body dto.SendMessageRequest true "发送请求"
// @Success 201 {object} dto.SendMessageResponse
// @Router /api/v1/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.messageService.Send(ctx, userUUID, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "发送消息服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	middleware.ObserveCiphertextSize(len(req.Ciphertext))
	result.Created(c, resp)
}

// Fetch 拉取消息接口
// @Summary 拉取待取消息
// @Description 不删除，可重复拉取直到显式确认；按投递顺序返回
// @Tags 消息接口
// @Produce json
// @Param senderUuid query string false "只拉取该发送方的消息"
// @Param limit query int false "单次拉取条数"
// @Success 200 {object} dto.FetchMessagesResponse
// @Router /api/v1/messages [get]
func (h *MessageHandler) Fetch(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.FetchMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.messageService.Fetch(ctx, userUUID, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "拉取消息服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// Acknowledge 确认取走接口
// @Summary 确认取走消息
// @Description 删除对应消息行；不属于本人的 ID 被静默跳过
// @Tags 消息接口
// @Accept json
// @Produce json
// @Param request body dto.AckMessagesRequest true "确认请求"
// @Success 200 {object} dto.AckMessagesResponse
// @Router /api/v1/messages/ack [post]
func (h *MessageHandler) Acknowledge(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	var req dto.AckMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result.Fail(c, consts.CodeParamError)
		return
	}

	resp, err := h.messageService.Acknowledge(ctx, userUUID, &req)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "确认取走服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}

// UnreadCount 待取消息数接口
// @Summary 查询待取消息条数
// @Tags 消息接口
// @Produce json
// @Success 200 {object} dto.UnreadCountResponse
// @Router /api/v1/messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	ctx := middleware.NewContextWithGin(c)

	userUUID, ok := middleware.GetUserUUID(c)
	if !ok {
		result.Fail(c, consts.CodeUnauthorized)
		return
	}

	resp, err := h.messageService.UnreadCount(ctx, userUUID)
	if err != nil {
		if consts.IsNonServerError(utils.ExtractErrorCode(err)) {
			result.Fail(c, utils.ExtractErrorCode(err))
			return
		}

		logger.Error(ctx, "查询待取消息数服务内部错误",
			logger.ErrorField("error", err),
		)
		result.Fail(c, consts.CodeInternalError)
		return
	}

	result.Success(c, resp)
}
