package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/domain/notification"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
	"github.com/xiebiao/supplestore/pkg/logger"
)

// TokenConfig 一次性令牌配置
type TokenConfig struct {
	PasswordResetTTL     time.Duration
	EmailVerificationTTL time.Duration
	FrontendURL          string
	StoreName            string
}

// TokenUseCase 一次性令牌：找回密码、邮箱验证
// 令牌按用途隔离，只保存哈希；邮件发送失败不影响请求结果
type TokenUseCase struct {
	txManager   shared.TxManager
	userRepo    user.Repository
	tokenRepo   user.TokenRepository
	userService user.Service
	sender      notification.Sender
	cfg         TokenConfig
	now         func() time.Time
}

// NewTokenUseCase 创建令牌用例
func NewTokenUseCase(
	txManager shared.TxManager,
	userRepo user.Repository,
	tokenRepo user.TokenRepository,
	userService user.Service,
	sender notification.Sender,
	cfg TokenConfig,
) *TokenUseCase {
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = 30 * time.Minute
	}
	if cfg.EmailVerificationTTL <= 0 {
		cfg.EmailVerificationTTL = 24 * time.Hour
	}
	return &TokenUseCase{
		txManager:   txManager,
		userRepo:    userRepo,
		tokenRepo:   tokenRepo,
		userService: userService,
		sender:      sender,
		cfg:         cfg,
		now:         time.Now,
	}
}

// RequestPasswordReset 发送找回密码邮件
// 邮箱未注册时同样返回成功，避免枚举邮箱
func (uc *TokenUseCase) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := uc.userRepo.FindByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			logger.FromContext(ctx).Info("找回密码：邮箱未注册")
			return nil
		}
		return err
	}

	plain, err := uc.issue(ctx, u.ID, user.PurposePasswordReset, uc.cfg.PasswordResetTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(uc.cfg.FrontendURL, "/"), plain)
	body := fmt.Sprintf(`<p>Hi %s,</p><p>Reset your password here: <a href="%s">%s</a></p><p>The link expires in %d minutes.</p>`,
		u.Name, link, link, int(uc.cfg.PasswordResetTTL.Minutes()))
	uc.send(ctx, u.Email, uc.cfg.StoreName+" password reset", body)
	return nil
}

// ResetPassword 用password_reset令牌设置新密码
// 其他用途的令牌、已过期或已使用的令牌统一返回ErrTokenInvalid
func (uc *TokenUseCase) ResetPassword(ctx context.Context, token, newPassword string) error {
	hashed, err := uc.userService.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		u, err := uc.consume(txCtx, token, user.PurposePasswordReset)
		if err != nil {
			return err
		}
		u.ChangePassword(hashed)
		return uc.userRepo.Update(txCtx, u)
	})
}

// RequestEmailVerification 发送邮箱验证邮件，已验证时直接返回
func (uc *TokenUseCase) RequestEmailVerification(ctx context.Context, userID uint) error {
	u, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return nil
	}

	plain, err := uc.issue(ctx, u.ID, user.PurposeEmailVerification, uc.cfg.EmailVerificationTTL)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(uc.cfg.FrontendURL, "/"), plain)
	uc.send(ctx, u.Email, "Verify your "+uc.cfg.StoreName+" account",
		fmt.Sprintf(`<p>Confirm your email: <a href="%s">%s</a></p>`, link, link))
	return nil
}

// VerifyEmail 用email_verification令牌标记邮箱已验证
func (uc *TokenUseCase) VerifyEmail(ctx context.Context, token string) error {
	return uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		u, err := uc.consume(txCtx, token, user.PurposeEmailVerification)
		if err != nil {
			return err
		}
		u.EmailVerified = true
		u.UpdatedAt = uc.now()
		return uc.userRepo.Update(txCtx, u)
	})
}

func (uc *TokenUseCase) issue(ctx context.Context, userID uint, purpose user.Purpose, ttl time.Duration) (string, error) {
	plain, t, err := user.NewPurposeToken(userID, purpose, ttl, uc.now())
	if err != nil {
		return "", apperrors.Wrap(err, "生成令牌失败")
	}
	if err := uc.tokenRepo.Create(ctx, t); err != nil {
		return "", err
	}
	return plain, nil
}

// consume 校验并消费令牌，返回令牌所属用户（必须在事务内调用）
func (uc *TokenUseCase) consume(ctx context.Context, plain string, purpose user.Purpose) (*user.User, error) {
	if strings.TrimSpace(plain) == "" {
		return nil, user.ErrTokenInvalid
	}
	t, err := uc.tokenRepo.FindByHash(ctx, purpose, user.HashToken(plain))
	if err != nil {
		return nil, err
	}
	now := uc.now()
	if !t.Usable(now) {
		return nil, user.ErrTokenInvalid
	}

	u, err := uc.userRepo.FindByID(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	t.Consume(now)
	if err := uc.tokenRepo.MarkConsumed(ctx, t); err != nil {
		return nil, err
	}
	return u, nil
}

func (uc *TokenUseCase) send(ctx context.Context, to, subject, body string) {
	if err := uc.sender.Send(ctx, to, subject, body); err != nil {
		logger.FromContext(ctx).Warn("发送邮件失败", zap.String("subject", subject), zap.Error(err))
	}
}
