package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrimpsizemoose/kamrat/internal/models"
)

const (
	timeFormat  = "2006-01-02 15:04:05"
	authKeyTpl  = "auth:%s" // auth:${instructor}
	tokenPrefix = "sk-kamrat-"
)

// TokenManager issues and inspects instructor API tokens kept in redis.
type TokenManager struct {
	redis *redis.Client
}

func NewTokenManager(redis *redis.Client) *TokenManager {
	return &TokenManager{redis: redis}
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 12)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

// FetchOrCreateToken returns the instructor's token, minting one on first
// use, and bumps the request stats either way.
func (tm *TokenManager) FetchOrCreateToken(ctx context.Context, instructor string) (*models.TokenInfo, bool, error) {
	key := fmt.Sprintf(authKeyTpl, instructor)

	token, err := tm.redis.HGet(ctx, key, "token").Result()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("failed to check token: %w", err)
	}

	now := time.Now().UTC()
	isNewToken := false

	if err == redis.Nil {
		token, err = generateToken()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate token: %w", err)
		}

		pipe := tm.redis.Pipeline()
		pipe.HSet(ctx, key, map[string]interface{}{
			"token":                 token,
			"request_count":         1,
			"last_request_dttm_utc": now.Format(timeFormat),
			"created_dttm_utc":      now.Format(timeFormat),
		})

		if _, err := pipe.Exec(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to create token: %w", err)
		}

		isNewToken = true
	} else {
		pipe := tm.redis.Pipeline()
		pipe.HIncrBy(ctx, key, "request_count", 1)
		pipe.HSet(ctx, key, "last_request_dttm_utc", now.Format(timeFormat))

		if _, err := pipe.Exec(ctx); err != nil {
			return nil, false, fmt.Errorf("failed to update token stats: %w", err)
		}
	}

	values, err := tm.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get token info: %w", err)
	}

	lastReqTime, _ := time.Parse(timeFormat, values["last_request_dttm_utc"])
	createdTime, _ := time.Parse(timeFormat, values["created_dttm_utc"])
	reqCount, _ := strconv.Atoi(values["request_count"])

	return &models.TokenInfo{
		Instructor:      instructor,
		Token:           values["token"],
		RequestCount:    reqCount,
		LastRequestTime: lastReqTime,
		CreatedTime:     createdTime,
	}, isNewToken, nil
}

// RevokeToken drops the instructor's token so the next fetch mints a new one.
func (tm *TokenManager) RevokeToken(ctx context.Context, instructor string) error {
	key := fmt.Sprintf(authKeyTpl, instructor)
	if err := tm.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to revoke token for %s: %w", instructor, err)
	}
	return nil
}

func (tm *TokenManager) Close() error {
	if tm.redis != nil {
		return tm.redis.Close()
	}
	return nil
}
