package redis

import (
	"context"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/repository"
	"PerfPulsePlatform/pkg/logger"
)

// InvalidatingTenantRepository оборачивает репозиторий тенантов и сбрасывает
// кэш резолюции при каждом обновлении. Без сброса деактивированный тенант
// продолжал бы резолвиться из кэша до истечения TTL
type InvalidatingTenantRepository struct {
	repo   repository.TenantRepository
	cache  repository.TenantCache
	logger logger.Logger
}

// NewInvalidatingTenantRepository создает репозиторий с инвалидацией кэша
func NewInvalidatingTenantRepository(
	repo repository.TenantRepository,
	cache repository.TenantCache,
	log logger.Logger,
) repository.TenantRepository {
	return &InvalidatingTenantRepository{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

func (r *InvalidatingTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	return r.repo.Create(ctx, tenant)
}

func (r *InvalidatingTenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.repo.FindByID(ctx, id)
}

func (r *InvalidatingTenantRepository) FindByFQDN(ctx context.Context, fqdn string) (*domain.Tenant, error) {
	return r.repo.FindByFQDN(ctx, fqdn)
}

func (r *InvalidatingTenantRepository) FindActiveByFQDN(ctx context.Context, fqdn string) (*domain.Tenant, error) {
	return r.repo.FindActiveByFQDN(ctx, fqdn)
}

// Update сохраняет тенант и сбрасывает его запись в кэше резолюции
// Сбой инвалидации не отменяет успешное обновление: запись доживет свой TTL
func (r *InvalidatingTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	if err := r.repo.Update(ctx, tenant); err != nil {
		return err
	}

	if err := r.cache.Invalidate(ctx, tenant.FQDN); err != nil {
		r.logger.Warn("Failed to invalidate tenant cache",
			logger.String("fqdn", tenant.FQDN),
			logger.Error(err))
	}

	return nil
}
