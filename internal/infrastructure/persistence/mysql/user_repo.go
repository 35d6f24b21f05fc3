package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/xiebiao/supplestore/internal/domain/user"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// userRepository 用户仓储实现（MySQL）
// 1. 实现domain/user/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 处理数据库特定的错误（如邮箱重复），转换为业务错误
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
// 返回domain层的接口类型（依赖倒置）
func NewUserRepository(db *gorm.DB) user.Repository {
	return &userRepository{db: db}
}

// Create 创建用户
// 邮箱唯一性由数据库UNIQUE索引保证，捕获Duplicate Entry转换为ErrEmailDuplicate
func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	model := &UserModel{
		Email:         u.Email,
		Password:      u.Password,
		Name:          u.Name,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
	}

	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.ErrEmailDuplicate
		}
		return apperrors.Wrap(err, "创建用户失败")
	}

	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找用户
func (r *userRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var model UserModel
	err := dbFromContext(ctx, r.db).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "查询用户失败")
	}
	return toUserEntity(&model), nil
}

// FindByEmail 根据邮箱查找用户（邮箱统一小写存储）
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserModel
	err := dbFromContext(ctx, r.db).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "查询用户失败")
	}
	return toUserEntity(&model), nil
}

// Update 更新用户信息
func (r *userRepository) Update(ctx context.Context, u *user.User) error {
	result := dbFromContext(ctx, r.db).Model(&UserModel{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
		"password":       u.Password,
		"name":           u.Name,
		"role":           string(u.Role),
		"email_verified": u.EmailVerified,
		"updated_at":     u.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新用户失败")
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func toUserEntity(m *UserModel) *user.User {
	return &user.User{
		ID:            m.ID,
		Email:         m.Email,
		Password:      m.Password,
		Name:          m.Name,
		Role:          user.Role(m.Role),
		EmailVerified: m.EmailVerified,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// addressRepository 收货地址仓储
type addressRepository struct {
	db *gorm.DB
}

// NewAddressRepository 创建收货地址仓储
func NewAddressRepository(db *gorm.DB) user.AddressRepository {
	return &addressRepository{db: db}
}

// Create 新增地址；设为默认时清除该用户其他默认地址
func (r *addressRepository) Create(ctx context.Context, a *user.Address) error {
	db := dbFromContext(ctx, r.db)
	model := &AddressModel{
		UserID:     a.UserID,
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if a.IsDefault {
			if err := tx.Model(&AddressModel{}).
				Where("user_id = ? AND is_default = ?", a.UserID, true).
				Update("is_default", false).Error; err != nil {
				return apperrors.Wrap(err, "更新默认地址失败")
			}
		}
		if err := tx.Create(model).Error; err != nil {
			return apperrors.Wrap(err, "创建收货地址失败")
		}
		a.ID = model.ID
		a.CreatedAt = model.CreatedAt
		return nil
	})
}

func (r *addressRepository) FindByID(ctx context.Context, id uint) (*user.Address, error) {
	var model AddressModel
	if err := dbFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrAddressNotFound
		}
		return nil, apperrors.Wrap(err, "查询收货地址失败")
	}
	return toAddressEntity(&model), nil
}

// ListByUser 默认地址排在最前
func (r *addressRepository) ListByUser(ctx context.Context, userID uint) ([]*user.Address, error) {
	var models []AddressModel
	if err := dbFromContext(ctx, r.db).
		Where("user_id = ?", userID).
		Order("is_default DESC, id DESC").
		Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询收货地址失败")
	}
	out := make([]*user.Address, len(models))
	for i := range models {
		out[i] = toAddressEntity(&models[i])
	}
	return out, nil
}

func toAddressEntity(m *AddressModel) *user.Address {
	return &user.Address{
		ID:         m.ID,
		UserID:     m.UserID,
		FullName:   m.FullName,
		Phone:      m.Phone,
		Line1:      m.Line1,
		Line2:      m.Line2,
		City:       m.City,
		State:      m.State,
		PostalCode: m.PostalCode,
		Country:    m.Country,
		IsDefault:  m.IsDefault,
		CreatedAt:  m.CreatedAt,
	}
}

// tokenRepository 一次性令牌仓储
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository 创建令牌仓储
func NewTokenRepository(db *gorm.DB) user.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, t *user.PurposeToken) error {
	model := &PurposeTokenModel{
		UserID:    t.UserID,
		Purpose:   string(t.Purpose),
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "保存令牌失败")
	}
	t.ID = model.ID
	return nil
}

// FindByHash 用途不匹配视为不存在
func (r *tokenRepository) FindByHash(ctx context.Context, purpose user.Purpose, hash string) (*user.PurposeToken, error) {
	var model PurposeTokenModel
	err := dbFromContext(ctx, r.db).
		Where("purpose = ? AND token_hash = ?", string(purpose), hash).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrTokenInvalid
		}
		return nil, apperrors.Wrap(err, "查询令牌失败")
	}
	return &user.PurposeToken{
		ID:         model.ID,
		UserID:     model.UserID,
		Purpose:    user.Purpose(model.Purpose),
		TokenHash:  model.TokenHash,
		ExpiresAt:  model.ExpiresAt,
		ConsumedAt: model.ConsumedAt,
		CreatedAt:  model.CreatedAt,
	}, nil
}

// MarkConsumed 只更新尚未使用的令牌，并发重复使用时第二次返回ErrTokenInvalid
func (r *tokenRepository) MarkConsumed(ctx context.Context, t *user.PurposeToken) error {
	result := dbFromContext(ctx, r.db).Model(&PurposeTokenModel{}).
		Where("id = ? AND consumed_at IS NULL", t.ID).
		Update("consumed_at", t.ConsumedAt)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新令牌失败")
	}
	if result.RowsAffected == 0 {
		return user.ErrTokenInvalid
	}
	return nil
}
