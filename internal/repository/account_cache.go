package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/attendance-service/internal/domain"
)

const accountCachePrefix = "attendance:account:"

// cachedAccount is the identity subset kept in Redis; password hashes never leave Postgres.
type cachedAccount struct {
	ID        string      `json:"id"`
	DisplayID string      `json:"display_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
}

type cachedAccountRepository struct {
	AccountRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAccountRepository wraps next with a Redis read-through cache for GetByID,
// which serves identity and role lookups. A nil client disables caching.
func NewCachedAccountRepository(next AccountRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) AccountRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	return &cachedAccountRepository{AccountRepository: next, client: client, ttl: ttl, logger: logger}
}

func (r *cachedAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	key := accountCachePrefix + id

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached cachedAccount
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &domain.Account{
				ID:        cached.ID,
				DisplayID: cached.DisplayID,
				Name:      cached.Name,
				Email:     cached.Email,
				Role:      cached.Role,
			}, nil
		}
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("account cache read failed", zap.String("account_id", id), zap.Error(err))
	}

	account, err := r.AccountRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedAccount{
		ID:        account.ID,
		DisplayID: account.DisplayID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      account.Role,
	})
	if err == nil {
		if setErr := r.client.Set(ctx, key, payload, r.ttl).Err(); setErr != nil {
			r.logger.Warn("account cache write failed", zap.String("account_id", id), zap.Error(setErr))
		}
	}
	return account, nil
}

func (r *cachedAccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := r.AccountRepository.UpdatePasswordHash(ctx, id, hash); err != nil {
		return err
	}
	if err := r.client.Del(ctx, accountCachePrefix+id).Err(); err != nil {
		r.logger.Warn("account cache invalidation failed", zap.String("account_id", id), zap.Error(err))
	}
	return nil
}
