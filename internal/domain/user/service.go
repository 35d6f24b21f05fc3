package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// Service 账户领域服务：密码规则、哈希与凭证校验
type Service interface {
	Register(ctx context.Context, email, password, name string) (*User, error)
	// Login 邮箱不存在与密码错误返回同一个错误
	Login(ctx context.Context, email, password string) (*User, error)
	ValidatePassword(hashedPassword, plainPassword string) error
	// HashPassword 校验强度并加密新密码（重置密码时使用）
	HashPassword(plainPassword string) (string, error)
}

// bcryptCost 约250ms
const bcryptCost = 12

const (
	minPasswordLen = 8
	maxPasswordLen = 20
	minNameLen     = 2
	maxNameLen     = 50
)

var (
	errInvalidEmail = apperrors.New(apperrors.ErrCodeInvalidParams, "邮箱格式不正确")
	errInvalidName  = apperrors.New(apperrors.ErrCodeInvalidParams, "姓名长度应为2-50个字符")
)

type service struct {
	repo Repository
}

// NewService 创建账户服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// NormalizeEmail 去空白并转小写，邮箱唯一索引基于该值
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, email, password, name string) (*User, error) {
	email = NormalizeEmail(email)
	if !isValidEmail(email) {
		return nil, errInvalidEmail
	}
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return nil, errInvalidName
	}

	hashed, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := NewUser(email, hashed, name)
	// 重复邮箱由唯一索引拒绝，Repository转换为ErrEmailDuplicate
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrInvalidPassword
		}
		return nil, err
	}
	if err := s.ValidatePassword(u.Password, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ValidatePassword(hashedPassword, plainPassword string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return apperrors.ErrInvalidPassword
	default:
		return apperrors.Wrap(err, "密码验证失败")
	}
}

func (s *service) HashPassword(plainPassword string) (string, error) {
	if !isStrongPassword(plainPassword) {
		return "", apperrors.ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcryptCost)
	if err != nil {
		return "", apperrors.Wrap(err, "密码加密失败")
	}
	return string(hashed), nil
}

// isValidEmail 只接受纯地址（不含显示名）且域名带点
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return strings.Contains(email[at+1:], ".")
}

// isStrongPassword 8-20位，同时包含字母和数字
func isStrongPassword(password string) bool {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return false
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case r <= unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
