package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// SessionStore 登录会话与Token黑名单
//
//	session:{user_id}        hash，登录IP/角色/时间，TTL与Refresh Token一致
//	token:revoked:{sha256}   登出或重置密码后吊销的Token，TTL为Token剩余有效期
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("session:%d", userID)
}

// revokedKey 只存Token摘要，Redis中不出现可用的JWT
func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "token:revoked:" + hex.EncodeToString(sum[:])
}

func (s *SessionStore) SaveSession(ctx context.Context, userID uint, data map[string]interface{}, ttl time.Duration) error {
	key := sessionKey(userID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisError(err, "保存会话失败")
	}
	return nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, userID uint) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return redisError(err, "删除会话失败")
	}
	return nil
}

// AddToBlacklist ttl<=0说明Token已过期，无需记录
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKey(token), 1, ttl).Err(); err != nil {
		return redisError(err, "吊销Token失败")
	}
	return nil
}

func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, redisError(err, "检查Token状态失败")
	}
	return n > 0, nil
}

func redisError(err error, msg string) error {
	return &apperrors.AppError{Code: apperrors.ErrCodeRedisError, Message: msg, Err: err}
}
