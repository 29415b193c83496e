package service

import (
	"context"
	"strconv"

	"CipherChat/config"
	"CipherChat/consts"
	"CipherChat/internal/dto"
	"CipherChat/internal/repository"
	"CipherChat/internal/utils"
	"CipherChat/pkg/logger"
)

// messageServiceImpl 消息中转服务实现。
// 密文不解读不校验，仅做大小限制；投递权限判定在仓储事务内完成。
type messageServiceImpl struct {
	messageRepo repository.IMessageRepository
	relayCfg    config.RelayConfig
}

// NewMessageService 创建消息中转服务实例
func NewMessageService(messageRepo repository.IMessageRepository, relayCfg config.RelayConfig) MessageService {
	return &messageServiceImpl{
		messageRepo: messageRepo,
		relayCfg:    relayCfg,
	}
}

// Send 投递一条密文
func (s *messageServiceImpl) Send(ctx context.Context, senderUUID string, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	if senderUUID == req.ReceiverUuid {
		return nil, utils.NewBizError(consts.CodeSelfTarget)
	}
	if len(req.Ciphertext) == 0 {
		return nil, utils.NewBizError(consts.CodeCiphertextEmpty)
	}
	if len(req.Ciphertext) > s.relayCfg.MaxCiphertextBytes {
		return nil, utils.NewBizError(consts.CodeCiphertextTooLarge)
	}

	msg, err := s.messageRepo.CreateGated(ctx, senderUUID, req.ReceiverUuid, req.Ciphertext)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "消息已投递",
		logger.Int64("message_id", msg.Id),
		logger.String("sender", senderUUID),
		logger.String("receiver", req.ReceiverUuid),
		logger.Int("size", len(req.Ciphertext)),
	)
	return &dto.SendMessageResponse{
		MessageId: strconv.FormatInt(msg.Id, 10),
		CreatedAt: msg.CreatedAt.UnixMilli(),
	}, nil
}

// Fetch 拉取待取消息，不删除，可重复拉取
func (s *messageServiceImpl) Fetch(ctx context.Context, receiverUUID string, req *dto.FetchMessagesRequest) (*dto.FetchMessagesResponse, error) {
	msgs, err := s.messageRepo.ListPending(ctx, receiverUUID, req.SenderUuid, req.Limit)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.MessageItem, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, dto.ConvertMessageItem(msg))
	}

	return &dto.FetchMessagesResponse{
		Items: items,
		Count: len(items),
	}, nil
}

// Acknowledge 确认取走。
// 非法的 ID 按参数错误拒绝，不属于本人的 ID 匹配零行被静默跳过。
func (s *messageServiceImpl) Acknowledge(ctx context.Context, receiverUUID string, req *dto.AckMessagesRequest) (*dto.AckMessagesResponse, error) {
	ids := make([]int64, 0, len(req.Ids))
	for _, raw := range req.Ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, utils.NewBizError(consts.CodeParamError)
		}
		ids = append(ids, id)
	}

	acked, err := s.messageRepo.DeleteAcked(ctx, receiverUUID, ids)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "消息已确认取走",
		logger.String("receiver", receiverUUID),
		logger.Int("requested", len(ids)),
		logger.Int64("acked", acked),
	)
	return &dto.AckMessagesResponse{Acked: acked}, nil
}

// UnreadCount 查询待取消息条数
func (s *messageServiceImpl) UnreadCount(ctx context.Context, receiverUUID string) (*dto.UnreadCountResponse, error) {
	count, err := s.messageRepo.CountPending(ctx, receiverUUID)
	if err != nil {
		return nil, err
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}
