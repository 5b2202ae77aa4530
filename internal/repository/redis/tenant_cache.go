package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/repository"

	"github.com/go-redis/redis/v8"
)

// TenantCache реализация кэша резолюции тенантов для Redis
// Хранит результат поиска активного тенанта по FQDN с коротким TTL
type TenantCache struct {
	client *redis.Client
}

// NewTenantCache создает новый экземпляр TenantCache
func NewTenantCache(client *redis.Client) repository.TenantCache {
	return &TenantCache{client: client}
}

// cacheKey формирует ключ кэша для FQDN
func cacheKey(fqdn string) string {
	return fmt.Sprintf("tenant:fqdn:%s", fqdn)
}

// Get возвращает тенант из кэша или NotFound, если запись отсутствует
func (c *TenantCache) Get(ctx context.Context, fqdn string) (*domain.Tenant, error) {
	data, err := c.client.Get(ctx, cacheKey(fqdn)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("tenant not cached: %s", fqdn)
		}
		return nil, fmt.Errorf("failed to get tenant from cache: %w", err)
	}

	var tenant domain.Tenant
	if err := json.Unmarshal([]byte(data), &tenant); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached tenant: %w", err)
	}

	return &tenant, nil
}

// Set сохраняет тенант в кэше с заданным TTL
func (c *TenantCache) Set(ctx context.Context, tenant *domain.Tenant, ttl time.Duration) error {
	data, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(tenant.FQDN), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set tenant in cache: %w", err)
	}

	return nil
}

// Invalidate удаляет запись кэша для FQDN
// Вызывается при обновлении тенанта (например, деактивации)
func (c *TenantCache) Invalidate(ctx context.Context, fqdn string) error {
	if err := c.client.Del(ctx, cacheKey(fqdn)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tenant cache: %w", err)
	}

	return nil
}
