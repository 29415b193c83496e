package service

import (
	"context"

	"CipherChat/consts"
	"CipherChat/internal/dto"
	"CipherChat/internal/repository"
	"CipherChat/internal/utils"
	"CipherChat/model"
	"CipherChat/pkg/logger"
)

// contactServiceImpl 联系人服务实现。
// 状态迁移的原子性由仓储层事务保证，这里只做业务校验与错误翻译。
type contactServiceImpl struct {
	accountRepo  repository.IAccountRepository
	relationRepo repository.IRelationRepository
}

// NewContactService 创建联系人服务实例
func NewContactService(accountRepo repository.IAccountRepository, relationRepo repository.IRelationRepository) ContactService {
	return &contactServiceImpl{
		accountRepo:  accountRepo,
		relationRepo: relationRepo,
	}
}

// checkTarget 公共校验：不能对自己操作，目标账号必须存在且未注销
func (s *contactServiceImpl) checkTarget(ctx context.Context, ownerUUID, targetUUID string) error {
	if ownerUUID == targetUUID {
		return utils.NewBizError(consts.CodeSelfTarget)
	}

	exists, err := s.accountRepo.Exists(ctx, targetUUID)
	if err != nil {
		return err
	}
	if !exists {
		return utils.NewBizError(consts.CodeAccountNotFound)
	}
	return nil
}

// RequestContact 发起联系人请求。
// 发起方必须已上传公钥，否则对方接受后也无法建立加密会话。
// 对 rejected/deleted 的历史边重新发起会复用为全新请求。
func (s *contactServiceImpl) RequestContact(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) (*dto.RelationViewResponse, error) {
	if err := s.checkTarget(ctx, ownerUUID, req.TargetUuid); err != nil {
		return nil, err
	}

	owner, err := s.accountRepo.GetByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, utils.NewBizError(consts.CodeAccountNotFound)
	}
	if owner.PublicKey == "" {
		return nil, utils.NewBizError(consts.CodePublicKeyMissing)
	}

	edge, err := s.relationRepo.CreateRequest(ctx, ownerUUID, req.TargetUuid)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "联系人请求已发出",
		logger.String("owner", ownerUUID),
		logger.String("target", req.TargetUuid),
	)
	return &dto.RelationViewResponse{
		TargetUuid: req.TargetUuid,
		View:       edge.ViewFor(ownerUUID).String(),
	}, nil
}

// AcceptRequest 接受收到的请求
func (s *contactServiceImpl) AcceptRequest(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) (*dto.RelationViewResponse, error) {
	if err := s.checkTarget(ctx, ownerUUID, req.TargetUuid); err != nil {
		return nil, err
	}

	if err := s.relationRepo.AcceptRequest(ctx, ownerUUID, req.TargetUuid); err != nil {
		return nil, err
	}

	logger.Info(ctx, "联系人请求已接受",
		logger.String("owner", ownerUUID),
		logger.String("target", req.TargetUuid),
	)
	return &dto.RelationViewResponse{
		TargetUuid: req.TargetUuid,
		View:       model.ViewAccepted.String(),
	}, nil
}

// RejectRequest 拒绝收到的请求
func (s *contactServiceImpl) RejectRequest(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) (*dto.RelationViewResponse, error) {
	if err := s.checkTarget(ctx, ownerUUID, req.TargetUuid); err != nil {
		return nil, err
	}

	if err := s.relationRepo.RejectRequest(ctx, ownerUUID, req.TargetUuid); err != nil {
		return nil, err
	}

	return &dto.RelationViewResponse{
		TargetUuid: req.TargetUuid,
		View:       model.ViewRejected.String(),
	}, nil
}

// RemoveContact 删除关系，幂等。
// 待处理请求被整体撤回，好友关系留墓碑，互删坍缩为无关系。
func (s *contactServiceImpl) RemoveContact(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest) error {
	if err := s.checkTarget(ctx, ownerUUID, req.TargetUuid); err != nil {
		return err
	}

	return s.relationRepo.RemoveEdge(ctx, ownerUUID, req.TargetUuid)
}

// SetBlocked 拉黑/解除拉黑，幂等。
// 拉黑是静默的：对方视角不变，但双方消息投递都会被拒绝。
func (s *contactServiceImpl) SetBlocked(ctx context.Context, ownerUUID string, req *dto.ContactTargetRequest, blocked bool) (*dto.SetBlockedResponse, error) {
	if err := s.checkTarget(ctx, ownerUUID, req.TargetUuid); err != nil {
		return nil, err
	}

	changed, err := s.relationRepo.SetBlocked(ctx, ownerUUID, req.TargetUuid, blocked)
	if err != nil {
		return nil, err
	}

	if changed {
		logger.Info(ctx, "拉黑状态已变更",
			logger.String("owner", ownerUUID),
			logger.String("target", req.TargetUuid),
			logger.Bool("blocked", blocked),
		)
	}
	return &dto.SetBlockedResponse{Changed: changed}, nil
}

// GetRelationView 查询与目标账号的关系视图
func (s *contactServiceImpl) GetRelationView(ctx context.Context, ownerUUID, targetUUID string) (*dto.RelationViewResponse, error) {
	if ownerUUID == targetUUID {
		return nil, utils.NewBizError(consts.CodeSelfTarget)
	}

	view, err := s.relationRepo.GetRelationView(ctx, ownerUUID, targetUUID)
	if err != nil {
		return nil, err
	}

	return &dto.RelationViewResponse{
		TargetUuid: targetUUID,
		View:       view.String(),
	}, nil
}

// ListContacts 列出联系人，可按视角过滤（如只看 incoming_request / outgoing_request）。
// 本侧视角为 none 的边（自己删除的墓碑）不出现在列表里。
func (s *contactServiceImpl) ListContacts(ctx context.Context, ownerUUID string, req *dto.ListContactsRequest) (*dto.ContactListResponse, error) {
	edges, err := s.relationRepo.ListEdges(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}

	var filter model.RelationView
	hasFilter := false
	if req != nil && req.View != "" {
		filter = model.ParseRelationView(req.View)
		hasFilter = true
	}

	items := make([]*dto.ContactItem, 0, len(edges))
	for _, edge := range edges {
		view := edge.ViewFor(ownerUUID)
		if view == model.ViewNone {
			continue
		}
		if hasFilter && view != filter {
			continue
		}
		items = append(items, dto.ConvertContactItem(edge, ownerUUID))
	}

	return &dto.ContactListResponse{
		Items: items,
		Total: len(items),
	}, nil
}

// GetPeerAccount 获取好友的公开信息。
// 公钥只对 accepted 关系可见（拉黑对方后本侧视角不再是 accepted，同样拿不到）。
func (s *contactServiceImpl) GetPeerAccount(ctx context.Context, ownerUUID, targetUUID string) (*dto.PublicAccountInfo, error) {
	if ownerUUID == targetUUID {
		return nil, utils.NewBizError(consts.CodeSelfTarget)
	}

	view, err := s.relationRepo.GetRelationView(ctx, ownerUUID, targetUUID)
	if err != nil {
		return nil, err
	}
	if view != model.ViewAccepted {
		return nil, utils.NewBizError(consts.CodePermissionDeny)
	}

	account, err := s.accountRepo.GetByUUID(ctx, targetUUID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, utils.NewBizError(consts.CodeAccountNotFound)
	}

	return dto.ConvertPublicAccountInfo(account), nil
}
