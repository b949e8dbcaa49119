package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

const (
	lookupKeyPrefix = "tax_lookup:"
	defaultCacheTTL = 15 * time.Minute
)

// RedisLookupStore implements LookupStore using Redis.
type RedisLookupStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisLookupStore creates a new Redis-based lookup store.
func NewRedisLookupStore(cfg config.RedisConfig) *RedisLookupStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisLookupStore{
		client: client,
		ttl:    ttl,
		logger: logging.NewLogger("lookup-store"),
	}
}

// Get retrieves a stored lookup result. A miss returns nil, nil.
func (s *RedisLookupStore) Get(ctx context.Context, key string) (*models.PackageResult, error) {
	data, err := s.client.Get(ctx, lookupKeyPrefix+key).Bytes()
	if err == redis.Nil {
		s.logger.Debug("Lookup cache miss", logging.Fields{"key": key})
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Lookup cache get error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return nil, err
	}

	var result models.PackageResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	s.logger.Debug("Lookup cache hit", logging.Fields{"key": key})
	return &result, nil
}

// Set stores a lookup result.
func (s *RedisLookupStore) Set(ctx context.Context, key string, result *models.PackageResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, lookupKeyPrefix+key, data, s.ttl).Err(); err != nil {
		s.logger.Error("Lookup cache set error", logging.Fields{
			"key":   key,
			"error": err.Error(),
		})
		return err
	}

	s.logger.Debug("Lookup result cached", logging.Fields{
		"key": key,
		"ttl": s.ttl.String(),
	})
	return nil
}

// Ping checks Redis connectivity for readiness probes.
func (s *RedisLookupStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemoryLookupStore is an in-process LookupStore. Used in tests and in
// single-instance deployments without Redis.
type MemoryLookupStore struct {
	mu   sync.RWMutex
	data map[string]*models.PackageResult
}

// NewMemoryLookupStore creates an empty in-memory store.
func NewMemoryLookupStore() *MemoryLookupStore {
	return &MemoryLookupStore{
		data: make(map[string]*models.PackageResult),
	}
}

// Get retrieves a stored result. A miss returns nil, nil.
func (s *MemoryLookupStore) Get(_ context.Context, key string) (*models.PackageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key], nil
}

// Set stores a result.
func (s *MemoryLookupStore) Set(_ context.Context, key string, result *models.PackageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = result
	return nil
}

// Len reports the number of stored entries.
func (s *MemoryLookupStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
