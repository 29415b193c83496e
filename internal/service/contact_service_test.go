package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"CipherChat/consts"
	"CipherChat/internal/dto"
	"CipherChat/internal/repository"
	"CipherChat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelationRepoForService struct {
	getEdgeFn         func(context.Context, string, string) (*model.RelationEdge, error)
	createRequestFn   func(context.Context, string, string) (*model.RelationEdge, error)
	acceptRequestFn   func(context.Context, string, string) error
	rejectRequestFn   func(context.Context, string, string) error
	setBlockedFn      func(context.Context, string, string, bool) (bool, error)
	removeEdgeFn      func(context.Context, string, string) error
	listEdgesFn       func(context.Context, string) ([]*model.RelationEdge, error)
	getRelationViewFn func(context.Context, string, string) (model.RelationView, error)
}

func (f *fakeRelationRepoForService) GetEdge(ctx context.Context, a, b string) (*model.RelationEdge, error) {
	if f.getEdgeFn == nil {
		return nil, nil
	}
	return f.getEdgeFn(ctx, a, b)
}

func (f *fakeRelationRepoForService) CreateRequest(ctx context.Context, owner, target string) (*model.RelationEdge, error) {
	if f.createRequestFn == nil {
		low, high := model.PairKey(owner, target)
		return &model.RelationEdge{UserLow: low, UserHigh: high, State: model.RelationStatePending, InitiatorUuid: owner}, nil
	}
	return f.createRequestFn(ctx, owner, target)
}

func (f *fakeRelationRepoForService) AcceptRequest(ctx context.Context, owner, target string) error {
	if f.acceptRequestFn == nil {
		return nil
	}
	return f.acceptRequestFn(ctx, owner, target)
}

func (f *fakeRelationRepoForService) RejectRequest(ctx context.Context, owner, target string) error {
	if f.rejectRequestFn == nil {
		return nil
	}
	return f.rejectRequestFn(ctx, owner, target)
}

func (f *fakeRelationRepoForService) SetBlocked(ctx context.Context, owner, target string, blocked bool) (bool, error) {
	if f.setBlockedFn == nil {
		return false, nil
	}
	return f.setBlockedFn(ctx, owner, target, blocked)
}

func (f *fakeRelationRepoForService) RemoveEdge(ctx context.Context, owner, target string) error {
	if f.removeEdgeFn == nil {
		return nil
	}
	return f.removeEdgeFn(ctx, owner, target)
}

func (f *fakeRelationRepoForService) ListEdges(ctx context.Context, owner string) ([]*model.RelationEdge, error) {
	if f.listEdgesFn == nil {
		return nil, nil
	}
	return f.listEdgesFn(ctx, owner)
}

func (f *fakeRelationRepoForService) GetRelationView(ctx context.Context, owner, target string) (model.RelationView, error) {
	if f.getRelationViewFn == nil {
		return model.ViewNone, nil
	}
	return f.getRelationViewFn(ctx, owner, target)
}

// accountRepoWithKey 返回一个 owner 已上传公钥的账号仓储桩
func accountRepoWithKey() *fakeAccountRepoForService {
	return &fakeAccountRepoForService{
		getByUUIDFn: func(_ context.Context, uuid string) (*model.UserAccount, error) {
			return &model.UserAccount{Uuid: uuid, PublicKey: "pk"}, nil
		},
	}
}

func TestContactServiceRequestContact(t *testing.T) {
	initServiceTestLogger()

	t.Run("self_target", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{})
		resp, err := svc.RequestContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u1"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeSelfTarget)
	})

	t.Run("target_missing", func(t *testing.T) {
		svc := NewContactService(&fakeAccountRepoForService{
			existsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		}, &fakeRelationRepoForService{})
		resp, err := svc.RequestContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeAccountNotFound)
	})

	t.Run("public_key_missing", func(t *testing.T) {
		// 发起方没有公钥就不能发请求，否则对方接受后也建立不了加密会话
		svc := NewContactService(&fakeAccountRepoForService{
			getByUUIDFn: func(_ context.Context, uuid string) (*model.UserAccount, error) {
				return &model.UserAccount{Uuid: uuid}, nil
			},
		}, &fakeRelationRepoForService{})
		resp, err := svc.RequestContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodePublicKeyMissing)
	})

	t.Run("conflict_on_active_edge", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			createRequestFn: func(_ context.Context, _, _ string) (*model.RelationEdge, error) {
				return nil, repository.ErrEdgeConflict
			},
		})
		resp, err := svc.RequestContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeRelationConflict)
	})

	t.Run("success", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			createRequestFn: func(_ context.Context, owner, target string) (*model.RelationEdge, error) {
				assert.Equal(t, "u1", owner)
				assert.Equal(t, "u2", target)
				low, high := model.PairKey(owner, target)
				return &model.RelationEdge{UserLow: low, UserHigh: high, State: model.RelationStatePending, InitiatorUuid: owner}, nil
			},
		})
		resp, err := svc.RequestContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, "u2", resp.TargetUuid)
		assert.Equal(t, "outgoing_request", resp.View)
	})
}

func TestContactServiceAcceptReject(t *testing.T) {
	initServiceTestLogger()

	t.Run("self_target", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{})
		_, err := svc.AcceptRequest(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u1"})
		requireBizCode(t, err, consts.CodeSelfTarget)
		_, err = svc.RejectRequest(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u1"})
		requireBizCode(t, err, consts.CodeSelfTarget)
	})

	t.Run("target_missing", func(t *testing.T) {
		// 目标账号不存在/已注销时不触碰关系状态
		repo := &fakeRelationRepoForService{
			acceptRequestFn: func(_ context.Context, _, _ string) error {
				t.Fatal("目标账号不存在时不应访问关系仓储")
				return nil
			},
			rejectRequestFn: func(_ context.Context, _, _ string) error {
				t.Fatal("目标账号不存在时不应访问关系仓储")
				return nil
			},
		}
		svc := NewContactService(&fakeAccountRepoForService{
			existsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		}, repo)

		_, err := svc.AcceptRequest(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		requireBizCode(t, err, consts.CodeAccountNotFound)
		_, err = svc.RejectRequest(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		requireBizCode(t, err, consts.CodeAccountNotFound)
	})

	t.Run("request_gone", func(t *testing.T) {
		// 并发双接受/请求已被处理时 CAS 落空
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			acceptRequestFn: func(_ context.Context, _, _ string) error {
				return repository.ErrRequestNotFound
			},
		})
		resp, err := svc.AcceptRequest(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeRequestNotFound)
	})

	t.Run("accept_success", func(t *testing.T) {
		var gotOwner, gotTarget string
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			acceptRequestFn: func(_ context.Context, owner, target string) error {
				gotOwner, gotTarget = owner, target
				return nil
			},
		})
		resp, err := svc.AcceptRequest(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		require.NoError(t, err)
		assert.Equal(t, "u1", gotOwner)
		assert.Equal(t, "u2", gotTarget)
		assert.Equal(t, "accepted", resp.View)
	})

	t.Run("reject_success", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{})
		resp, err := svc.RejectRequest(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		require.NoError(t, err)
		assert.Equal(t, "rejected", resp.View)
	})
}

func TestContactServiceRemoveAndBlock(t *testing.T) {
	initServiceTestLogger()

	t.Run("remove_self_target", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{})
		requireBizCode(t, svc.RemoveContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u1"}), consts.CodeSelfTarget)
	})

	t.Run("remove_target_missing", func(t *testing.T) {
		// 删除不存在的账号不能幂等成功，必须返回账号不存在
		svc := NewContactService(&fakeAccountRepoForService{
			existsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		}, &fakeRelationRepoForService{
			removeEdgeFn: func(_ context.Context, _, _ string) error {
				t.Fatal("目标账号不存在时不应访问关系仓储")
				return nil
			},
		})
		err := svc.RemoveContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"})
		requireBizCode(t, err, consts.CodeAccountNotFound)
	})

	t.Run("block_target_missing", func(t *testing.T) {
		// 拉黑/解除拉黑不存在的账号都返回账号不存在，而不是关系状态类错误
		svc := NewContactService(&fakeAccountRepoForService{
			existsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		}, &fakeRelationRepoForService{
			setBlockedFn: func(_ context.Context, _, _ string, _ bool) (bool, error) {
				t.Fatal("目标账号不存在时不应访问关系仓储")
				return false, nil
			},
		})

		for _, blocked := range []bool{true, false} {
			resp, err := svc.SetBlocked(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"}, blocked)
			require.Nil(t, resp, "blocked=%v", blocked)
			requireBizCode(t, err, consts.CodeAccountNotFound)
		}
	})

	t.Run("remove_delegates", func(t *testing.T) {
		var called bool
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			removeEdgeFn: func(_ context.Context, owner, target string) error {
				called = true
				assert.Equal(t, "u1", owner)
				assert.Equal(t, "u2", target)
				return nil
			},
		})
		require.NoError(t, svc.RemoveContact(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"}))
		assert.True(t, called)
	})

	t.Run("block_requires_accepted", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			setBlockedFn: func(_ context.Context, _, _ string, _ bool) (bool, error) {
				return false, repository.ErrEdgeNotAccepted
			},
		})
		resp, err := svc.SetBlocked(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"}, true)
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeBlockRequireAccepted)
	})

	t.Run("block_idempotent", func(t *testing.T) {
		calls := 0
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			setBlockedFn: func(_ context.Context, owner, target string, blocked bool) (bool, error) {
				calls++
				assert.True(t, blocked)
				// 第二次调用目标状态已满足
				return calls == 1, nil
			},
		})

		resp, err := svc.SetBlocked(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"}, true)
		require.NoError(t, err)
		assert.True(t, resp.Changed)

		resp, err = svc.SetBlocked(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"}, true)
		require.NoError(t, err)
		assert.False(t, resp.Changed)
	})

	t.Run("unblock_missing_edge_noop", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			setBlockedFn: func(_ context.Context, _, _ string, blocked bool) (bool, error) {
				assert.False(t, blocked)
				return false, nil
			},
		})
		resp, err := svc.SetBlocked(context.Background(), "u1", &dto.ContactTargetRequest{TargetUuid: "u2"}, false)
		require.NoError(t, err)
		assert.False(t, resp.Changed)
	})
}

func TestContactServiceViewsAndList(t *testing.T) {
	initServiceTestLogger()

	t.Run("get_relation_view", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			getRelationViewFn: func(_ context.Context, owner, target string) (model.RelationView, error) {
				assert.Equal(t, "u1", owner)
				assert.Equal(t, "u2", target)
				return model.ViewIncomingRequest, nil
			},
		})
		resp, err := svc.GetRelationView(context.Background(), "u1", "u2")
		require.NoError(t, err)
		assert.Equal(t, "incoming_request", resp.View)

		_, err = svc.GetRelationView(context.Background(), "u1", "u1")
		requireBizCode(t, err, consts.CodeSelfTarget)
	})

	t.Run("list_filters_own_tombstones", func(t *testing.T) {
		now := time.Unix(1700000000, 0)
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			listEdgesFn: func(_ context.Context, owner string) ([]*model.RelationEdge, error) {
				assert.Equal(t, "u1", owner)
				return []*model.RelationEdge{
					{UserLow: "u1", UserHigh: "u2", State: model.RelationStateAccepted, UpdatedAt: now},
					// 自己删除的边，本侧视角为 none，不应出现在列表里
					{UserLow: "u1", UserHigh: "u3", State: model.RelationStateDeleted, RemovedBy: "u1", UpdatedAt: now},
					// 对方删除的边保留墓碑
					{UserLow: "u1", UserHigh: "u4", State: model.RelationStateDeleted, RemovedBy: "u4", UpdatedAt: now},
					{UserLow: "u0", UserHigh: "u1", State: model.RelationStatePending, InitiatorUuid: "u0", UpdatedAt: now},
				}, nil
			},
		})

		resp, err := svc.ListContacts(context.Background(), "u1", &dto.ListContactsRequest{})
		require.NoError(t, err)
		require.Len(t, resp.Items, 3)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, "u2", resp.Items[0].PeerUuid)
		assert.Equal(t, "accepted", resp.Items[0].View)
		assert.Equal(t, "u4", resp.Items[1].PeerUuid)
		assert.Equal(t, "deleted", resp.Items[1].View)
		assert.Equal(t, "u0", resp.Items[2].PeerUuid)
		assert.Equal(t, "incoming_request", resp.Items[2].View)
	})

	t.Run("list_with_view_filter", func(t *testing.T) {
		now := time.Unix(1700000000, 0)
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			listEdgesFn: func(_ context.Context, _ string) ([]*model.RelationEdge, error) {
				return []*model.RelationEdge{
					{UserLow: "u1", UserHigh: "u2", State: model.RelationStateAccepted, UpdatedAt: now},
					{UserLow: "u0", UserHigh: "u1", State: model.RelationStatePending, InitiatorUuid: "u0", UpdatedAt: now},
					{UserLow: "u1", UserHigh: "u5", State: model.RelationStatePending, InitiatorUuid: "u1", UpdatedAt: now},
				}, nil
			},
		})

		resp, err := svc.ListContacts(context.Background(), "u1", &dto.ListContactsRequest{View: "incoming_request"})
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "u0", resp.Items[0].PeerUuid)

		resp, err = svc.ListContacts(context.Background(), "u1", &dto.ListContactsRequest{View: "outgoing_request"})
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "u5", resp.Items[0].PeerUuid)
	})

	t.Run("list_repo_error", func(t *testing.T) {
		svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
			listEdgesFn: func(_ context.Context, _ string) ([]*model.RelationEdge, error) {
				return nil, errors.New("db failed")
			},
		})
		resp, err := svc.ListContacts(context.Background(), "u1", &dto.ListContactsRequest{})
		require.Nil(t, resp)
		require.Error(t, err)
	})
}

func TestContactServiceGetPeerAccount(t *testing.T) {
	initServiceTestLogger()

	t.Run("requires_accepted_view", func(t *testing.T) {
		// 拉黑对方后本侧视角是 blocked，同样拿不到对方公钥
		for _, view := range []model.RelationView{model.ViewNone, model.ViewOutgoingRequest, model.ViewBlocked, model.ViewDeleted} {
			svc := NewContactService(accountRepoWithKey(), &fakeRelationRepoForService{
				getRelationViewFn: func(_ context.Context, _, _ string) (model.RelationView, error) {
					return view, nil
				},
			})
			resp, err := svc.GetPeerAccount(context.Background(), "u1", "u2")
			require.Nil(t, resp, "view=%s", view.String())
			requireBizCode(t, err, consts.CodePermissionDeny)
		}
	})

	t.Run("accepted_returns_public_info", func(t *testing.T) {
		svc := NewContactService(&fakeAccountRepoForService{
			getByUUIDFn: func(_ context.Context, uuid string) (*model.UserAccount, error) {
				return &model.UserAccount{Uuid: uuid, Handle: "bob", Nickname: "B", PublicKey: "pk-bob", PasswordHash: "secret"}, nil
			},
		}, &fakeRelationRepoForService{
			getRelationViewFn: func(_ context.Context, _, _ string) (model.RelationView, error) {
				return model.ViewAccepted, nil
			},
		})

		resp, err := svc.GetPeerAccount(context.Background(), "u1", "u2")
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, "u2", resp.Uuid)
		assert.Equal(t, "pk-bob", resp.PublicKey)
	})
}
