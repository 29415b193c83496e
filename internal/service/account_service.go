package service

import (
	"context"
	"errors"
	"regexp"

	"CipherChat/config"
	"CipherChat/consts"
	"CipherChat/internal/dto"
	"CipherChat/internal/repository"
	"CipherChat/internal/utils"
	"CipherChat/model"
	"CipherChat/pkg/logger"
	"CipherChat/pkg/util"

	"golang.org/x/crypto/bcrypt"
)

// handlePattern 用户名格式：3-20 位字母数字下划线
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// accountServiceImpl 账号服务实现
type accountServiceImpl struct {
	accountRepo repository.IAccountRepository
	jwtCfg      config.JWTConfig
}

// NewAccountService 创建账号服务实例
func NewAccountService(accountRepo repository.IAccountRepository, jwtCfg config.JWTConfig) AccountService {
	return &accountServiceImpl{
		accountRepo: accountRepo,
		jwtCfg:      jwtCfg,
	}
}

// Register 注册账号。
// uuid 在此生成且终身不变，handle 冲突直接翻译为业务错误。
func (s *accountServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if !handlePattern.MatchString(req.Handle) {
		return nil, utils.NewBizError(consts.CodeHandleInvalid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &model.UserAccount{
		Uuid:         util.NewUUID(),
		Handle:       req.Handle,
		PasswordHash: string(hash),
		Nickname:     req.Nickname,
	}

	created, err := s.accountRepo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// 唯一键冲突来自 handle
			return nil, utils.NewBizError(consts.CodeHandleTaken)
		}
		return nil, err
	}

	logger.Info(ctx, "账号注册成功",
		logger.String("uuid", created.Uuid),
		logger.String("handle", created.Handle),
	)
	return dto.ConvertRegisterResponse(created), nil
}

// Login 密码登录。
// 账号不存在与密码错误返回同一个错误码，不暴露用户名是否注册。
func (s *accountServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	account, err := s.accountRepo.GetByHandle(ctx, req.Handle)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, utils.NewBizError(consts.CodePasswordError)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, utils.NewBizError(consts.CodePasswordError)
	}

	token, err := utils.GenerateToken(s.jwtCfg, account.Uuid)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtCfg.Expire.Seconds()),
		Account:     dto.ConvertAccountInfo(account),
	}, nil
}

// GetSelf 获取本人账号信息
func (s *accountServiceImpl) GetSelf(ctx context.Context, userUUID string) (*dto.AccountInfo, error) {
	account, err := s.accountRepo.GetByUUID(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, utils.NewBizError(consts.CodeAccountNotFound)
	}
	return dto.ConvertAccountInfo(account), nil
}

// LookupByHandle 按用户名精确查找账号。
// 隐身账号与查不到返回同一个错误码，不暴露账号是否存在。
func (s *accountServiceImpl) LookupByHandle(ctx context.Context, viewerUUID, handle string) (*dto.PublicAccountInfo, error) {
	if !handlePattern.MatchString(handle) {
		return nil, utils.NewBizError(consts.CodeHandleInvalid)
	}

	account, err := s.accountRepo.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if account == nil || account.Shadowed {
		return nil, utils.NewBizError(consts.CodeAccountNotFound)
	}
	if account.Uuid == viewerUUID {
		// 查自己走 GetSelf，这里同样按未找到处理
		return nil, utils.NewBizError(consts.CodeAccountNotFound)
	}

	return dto.ConvertPublicAccountInfo(account), nil
}

// UpdateHandle 修改用户名
func (s *accountServiceImpl) UpdateHandle(ctx context.Context, userUUID string, req *dto.UpdateHandleRequest) error {
	if !handlePattern.MatchString(req.Handle) {
		return utils.NewBizError(consts.CodeHandleInvalid)
	}

	err := s.accountRepo.UpdateHandle(ctx, userUUID, req.Handle)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return utils.NewBizError(consts.CodeHandleTaken)
		}
		if errors.Is(err, repository.ErrRecordNotFound) {
			return utils.NewBizError(consts.CodeAccountNotFound)
		}
		return err
	}
	return nil
}

// UploadPublicKey 上传/更换公钥，内容不做任何解读
func (s *accountServiceImpl) UploadPublicKey(ctx context.Context, userUUID string, req *dto.UploadPublicKeyRequest) error {
	err := s.accountRepo.UpdatePublicKey(ctx, userUUID, req.PublicKey)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return utils.NewBizError(consts.CodeAccountNotFound)
		}
		return err
	}
	return nil
}

// UpdateVisibility 更新可见性开关
func (s *accountServiceImpl) UpdateVisibility(ctx context.Context, userUUID string, req *dto.UpdateVisibilityRequest) error {
	err := s.accountRepo.UpdateVisibility(ctx, userUUID, *req.Shadowed, *req.ExactHandleMatchOnly)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return utils.NewBizError(consts.CodeAccountNotFound)
		}
		return err
	}
	return nil
}

// DeleteAccount 注销账号。
// 密码二次确认通过后就地脱敏：行保留，handle 替换为不可碰撞的占位符。
func (s *accountServiceImpl) DeleteAccount(ctx context.Context, userUUID string, req *dto.DeleteAccountRequest) error {
	account, err := s.accountRepo.GetByUUID(ctx, userUUID)
	if err != nil {
		return err
	}
	if account == nil {
		return utils.NewBizError(consts.CodeAccountNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return utils.NewBizError(consts.CodePasswordError)
	}

	// 占位符取 uuid 前缀，长度对齐 handle 上限，uuid 唯一保证不碰撞
	placeholder := "del_" + account.Uuid[:16]
	err = s.accountRepo.ScrubDelete(ctx, userUUID, placeholder)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return utils.NewBizError(consts.CodeAccountDeleted)
		}
		return err
	}

	logger.Info(ctx, "账号已注销", logger.String("uuid", userUUID))
	return nil
}
