package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CipherChat/config"
	"CipherChat/consts"
	"CipherChat/internal/dto"
	"CipherChat/internal/repository"
	"CipherChat/internal/utils"
	"CipherChat/model"
	"CipherChat/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var serviceLoggerOnce sync.Once

func initServiceTestLogger() {
	serviceLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
}

func requireBizCode(t *testing.T, err error, wantCode int32) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, wantCode, utils.ExtractErrorCode(err))
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret: "test-secret",
		Issuer: "test",
		Expire: time.Hour,
	}
}

// mustHash 生成测试用的 bcrypt 散列
func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

type fakeAccountRepoForService struct {
	createFn           func(context.Context, *model.UserAccount) (*model.UserAccount, error)
	getByUUIDFn        func(context.Context, string) (*model.UserAccount, error)
	getByHandleFn      func(context.Context, string) (*model.UserAccount, error)
	existsFn           func(context.Context, string) (bool, error)
	updateHandleFn     func(context.Context, string, string) error
	updatePublicKeyFn  func(context.Context, string, string) error
	updateVisibilityFn func(context.Context, string, bool, bool) error
	scrubDeleteFn      func(context.Context, string, string) error
}

func (f *fakeAccountRepoForService) Create(ctx context.Context, account *model.UserAccount) (*model.UserAccount, error) {
	if f.createFn == nil {
		return account, nil
	}
	return f.createFn(ctx, account)
}

func (f *fakeAccountRepoForService) GetByUUID(ctx context.Context, uuid string) (*model.UserAccount, error) {
	if f.getByUUIDFn == nil {
		return nil, nil
	}
	return f.getByUUIDFn(ctx, uuid)
}

func (f *fakeAccountRepoForService) GetByHandle(ctx context.Context, handle string) (*model.UserAccount, error) {
	if f.getByHandleFn == nil {
		return nil, nil
	}
	return f.getByHandleFn(ctx, handle)
}

func (f *fakeAccountRepoForService) Exists(ctx context.Context, uuid string) (bool, error) {
	if f.existsFn == nil {
		return true, nil
	}
	return f.existsFn(ctx, uuid)
}

func (f *fakeAccountRepoForService) UpdateHandle(ctx context.Context, uuid, handle string) error {
	if f.updateHandleFn == nil {
		return nil
	}
	return f.updateHandleFn(ctx, uuid, handle)
}

func (f *fakeAccountRepoForService) UpdatePublicKey(ctx context.Context, uuid, publicKey string) error {
	if f.updatePublicKeyFn == nil {
		return nil
	}
	return f.updatePublicKeyFn(ctx, uuid, publicKey)
}

func (f *fakeAccountRepoForService) UpdateVisibility(ctx context.Context, uuid string, shadowed, exactHandleMatchOnly bool) error {
	if f.updateVisibilityFn == nil {
		return nil
	}
	return f.updateVisibilityFn(ctx, uuid, shadowed, exactHandleMatchOnly)
}

func (f *fakeAccountRepoForService) ScrubDelete(ctx context.Context, uuid, placeholderHandle string) error {
	if f.scrubDeleteFn == nil {
		return nil
	}
	return f.scrubDeleteFn(ctx, uuid, placeholderHandle)
}

func TestAccountServiceRegister(t *testing.T) {
	initServiceTestLogger()

	t.Run("invalid_handle", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{}, testJWTConfig())
		for _, handle := range []string{"ab", "way_too_long_handle_exceeding", "bad name", "中文名", "dash-name", ""} {
			resp, err := svc.Register(context.Background(), &dto.RegisterRequest{Handle: handle, Password: "password1"})
			require.Nil(t, resp, "handle=%q", handle)
			requireBizCode(t, err, consts.CodeHandleInvalid)
		}
	})

	t.Run("handle_taken", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{
			createFn: func(_ context.Context, _ *model.UserAccount) (*model.UserAccount, error) {
				return nil, repository.ErrDuplicateKey
			},
		}, testJWTConfig())
		resp, err := svc.Register(context.Background(), &dto.RegisterRequest{Handle: "alice", Password: "password1"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeHandleTaken)
	})

	t.Run("success", func(t *testing.T) {
		var stored *model.UserAccount
		svc := NewAccountService(&fakeAccountRepoForService{
			createFn: func(_ context.Context, account *model.UserAccount) (*model.UserAccount, error) {
				stored = account
				return account, nil
			},
		}, testJWTConfig())

		resp, err := svc.Register(context.Background(), &dto.RegisterRequest{Handle: "alice_01", Password: "password1", Nickname: "Alice"})
		require.NoError(t, err)
		require.NotNil(t, resp)
		require.NotNil(t, stored)

		assert.NotEmpty(t, stored.Uuid)
		assert.Equal(t, stored.Uuid, resp.Uuid)
		assert.Equal(t, "alice_01", resp.Handle)
		assert.Equal(t, "Alice", resp.Nickname)
		// 密码以 bcrypt 散列存储，明文不落库
		assert.NotEqual(t, "password1", stored.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password1")))
	})
}

func TestAccountServiceLogin(t *testing.T) {
	initServiceTestLogger()

	t.Run("account_missing_and_wrong_password_same_code", func(t *testing.T) {
		// 账号不存在与密码错误返回同一个错误码，不暴露用户名是否注册
		svc := NewAccountService(&fakeAccountRepoForService{}, testJWTConfig())
		resp, err := svc.Login(context.Background(), &dto.LoginRequest{Handle: "ghost", Password: "password1"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodePasswordError)

		svc = NewAccountService(&fakeAccountRepoForService{
			getByHandleFn: func(_ context.Context, _ string) (*model.UserAccount, error) {
				return &model.UserAccount{Uuid: "u1", Handle: "alice", PasswordHash: mustHash(t, "password1")}, nil
			},
		}, testJWTConfig())
		resp, err = svc.Login(context.Background(), &dto.LoginRequest{Handle: "alice", Password: "wrong-password"})
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodePasswordError)
	})

	t.Run("success_issues_parseable_token", func(t *testing.T) {
		cfg := testJWTConfig()
		svc := NewAccountService(&fakeAccountRepoForService{
			getByHandleFn: func(_ context.Context, handle string) (*model.UserAccount, error) {
				assert.Equal(t, "alice", handle)
				return &model.UserAccount{Uuid: "u1", Handle: "alice", PasswordHash: mustHash(t, "password1")}, nil
			},
		}, cfg)

		resp, err := svc.Login(context.Background(), &dto.LoginRequest{Handle: "alice", Password: "password1"})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
		require.NotNil(t, resp.Account)
		assert.Equal(t, "u1", resp.Account.Uuid)

		claims, err := utils.ParseToken(cfg, resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.UserUUID)
	})

	t.Run("repo_error_passthrough", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{
			getByHandleFn: func(_ context.Context, _ string) (*model.UserAccount, error) {
				return nil, errors.New("db failed")
			},
		}, testJWTConfig())
		resp, err := svc.Login(context.Background(), &dto.LoginRequest{Handle: "alice", Password: "password1"})
		require.Nil(t, resp)
		require.Equal(t, consts.CodeInternalError, int(utils.ExtractErrorCode(err)))
	})
}

func TestAccountServiceLookupByHandle(t *testing.T) {
	initServiceTestLogger()

	accounts := map[string]*model.UserAccount{
		"alice":  {Uuid: "u1", Handle: "alice", Nickname: "A", PublicKey: "pk1"},
		"shadow": {Uuid: "u2", Handle: "shadow", Shadowed: true},
	}
	svc := NewAccountService(&fakeAccountRepoForService{
		getByHandleFn: func(_ context.Context, handle string) (*model.UserAccount, error) {
			return accounts[handle], nil
		},
	}, testJWTConfig())

	t.Run("invalid_handle", func(t *testing.T) {
		resp, err := svc.LookupByHandle(context.Background(), "viewer", "bad handle")
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeHandleInvalid)
	})

	t.Run("missing_and_shadowed_same_code", func(t *testing.T) {
		// 隐身账号与不存在返回同一个错误码，不暴露账号是否存在
		resp, err := svc.LookupByHandle(context.Background(), "viewer", "ghost")
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeAccountNotFound)

		resp, err = svc.LookupByHandle(context.Background(), "viewer", "shadow")
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeAccountNotFound)
	})

	t.Run("self_lookup_hidden", func(t *testing.T) {
		resp, err := svc.LookupByHandle(context.Background(), "u1", "alice")
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeAccountNotFound)
	})

	t.Run("success", func(t *testing.T) {
		resp, err := svc.LookupByHandle(context.Background(), "viewer", "alice")
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, "u1", resp.Uuid)
		assert.Equal(t, "pk1", resp.PublicKey)
	})
}

func TestAccountServiceUpdates(t *testing.T) {
	initServiceTestLogger()

	t.Run("update_handle", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{
			updateHandleFn: func(_ context.Context, uuid, handle string) error {
				assert.Equal(t, "u1", uuid)
				switch handle {
				case "taken_name":
					return repository.ErrDuplicateKey
				case "gone_name":
					return repository.ErrRecordNotFound
				}
				return nil
			},
		}, testJWTConfig())

		requireBizCode(t, svc.UpdateHandle(context.Background(), "u1", &dto.UpdateHandleRequest{Handle: "x"}), consts.CodeHandleInvalid)
		requireBizCode(t, svc.UpdateHandle(context.Background(), "u1", &dto.UpdateHandleRequest{Handle: "taken_name"}), consts.CodeHandleTaken)
		requireBizCode(t, svc.UpdateHandle(context.Background(), "u1", &dto.UpdateHandleRequest{Handle: "gone_name"}), consts.CodeAccountNotFound)
		require.NoError(t, svc.UpdateHandle(context.Background(), "u1", &dto.UpdateHandleRequest{Handle: "new_name"}))
	})

	t.Run("upload_public_key", func(t *testing.T) {
		var gotKey string
		svc := NewAccountService(&fakeAccountRepoForService{
			updatePublicKeyFn: func(_ context.Context, uuid, publicKey string) error {
				if uuid == "gone" {
					return repository.ErrRecordNotFound
				}
				gotKey = publicKey
				return nil
			},
		}, testJWTConfig())

		requireBizCode(t, svc.UploadPublicKey(context.Background(), "gone", &dto.UploadPublicKeyRequest{PublicKey: "pk"}), consts.CodeAccountNotFound)
		require.NoError(t, svc.UploadPublicKey(context.Background(), "u1", &dto.UploadPublicKeyRequest{PublicKey: "base64-opaque-key"}))
		// 公钥原样透传，不做解读
		assert.Equal(t, "base64-opaque-key", gotKey)
	})

	t.Run("update_visibility", func(t *testing.T) {
		var gotShadowed, gotExact bool
		svc := NewAccountService(&fakeAccountRepoForService{
			updateVisibilityFn: func(_ context.Context, _ string, shadowed, exact bool) error {
				gotShadowed, gotExact = shadowed, exact
				return nil
			},
		}, testJWTConfig())

		shadowed, exact := true, false
		require.NoError(t, svc.UpdateVisibility(context.Background(), "u1", &dto.UpdateVisibilityRequest{
			Shadowed:             &shadowed,
			ExactHandleMatchOnly: &exact,
		}))
		assert.True(t, gotShadowed)
		assert.False(t, gotExact)
	})
}

func TestAccountServiceDeleteAccount(t *testing.T) {
	initServiceTestLogger()

	const uuid = "0d4c8f0e-9a1b-4c3d-8e5f-6a7b8c9d0e1f"
	account := &model.UserAccount{Uuid: uuid, Handle: "alice", PasswordHash: mustHash(t, "password1")}

	t.Run("account_missing", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{}, testJWTConfig())
		requireBizCode(t, svc.DeleteAccount(context.Background(), uuid, &dto.DeleteAccountRequest{Password: "password1"}), consts.CodeAccountNotFound)
	})

	t.Run("wrong_password", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{
			getByUUIDFn: func(_ context.Context, _ string) (*model.UserAccount, error) { return account, nil },
		}, testJWTConfig())
		requireBizCode(t, svc.DeleteAccount(context.Background(), uuid, &dto.DeleteAccountRequest{Password: "wrong-password"}), consts.CodePasswordError)
	})

	t.Run("success_scrubs_with_placeholder", func(t *testing.T) {
		var gotPlaceholder string
		svc := NewAccountService(&fakeAccountRepoForService{
			getByUUIDFn: func(_ context.Context, _ string) (*model.UserAccount, error) { return account, nil },
			scrubDeleteFn: func(_ context.Context, gotUUID, placeholder string) error {
				assert.Equal(t, uuid, gotUUID)
				gotPlaceholder = placeholder
				return nil
			},
		}, testJWTConfig())

		require.NoError(t, svc.DeleteAccount(context.Background(), uuid, &dto.DeleteAccountRequest{Password: "password1"}))
		// 占位符取 uuid 前缀，长度不超过 handle 上限
		assert.Equal(t, "del_"+uuid[:16], gotPlaceholder)
		assert.LessOrEqual(t, len(gotPlaceholder), 20)
	})

	t.Run("already_deleted", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{
			getByUUIDFn: func(_ context.Context, _ string) (*model.UserAccount, error) { return account, nil },
			scrubDeleteFn: func(_ context.Context, _, _ string) error {
				return repository.ErrRecordNotFound
			},
		}, testJWTConfig())
		requireBizCode(t, svc.DeleteAccount(context.Background(), uuid, &dto.DeleteAccountRequest{Password: "password1"}), consts.CodeAccountDeleted)
	})
}

func TestAccountServiceGetSelf(t *testing.T) {
	initServiceTestLogger()

	t.Run("missing", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{}, testJWTConfig())
		resp, err := svc.GetSelf(context.Background(), "u1")
		require.Nil(t, resp)
		requireBizCode(t, err, consts.CodeAccountNotFound)
	})

	t.Run("success", func(t *testing.T) {
		svc := NewAccountService(&fakeAccountRepoForService{
			getByUUIDFn: func(_ context.Context, uuid string) (*model.UserAccount, error) {
				return &model.UserAccount{Uuid: uuid, Handle: "alice", Shadowed: true, CreatedAt: time.Unix(1700000000, 0)}, nil
			},
		}, testJWTConfig())
		resp, err := svc.GetSelf(context.Background(), "u1")
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, "u1", resp.Uuid)
		assert.True(t, resp.Shadowed)
		assert.Equal(t, time.Unix(1700000000, 0).UnixMilli(), resp.CreatedAt)
	})
}
