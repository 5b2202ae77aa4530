package postgres

import (
	"context"
	"errors"
	"fmt"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/repository"
	pkgerrors "PerfPulsePlatform/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantRepository реализация репозитория тенантов для PostgreSQL
type TenantRepository struct {
	*BaseRepository
}

// NewTenantRepository создает новый экземпляр TenantRepository
func NewTenantRepository(pool *pgxpool.Pool) repository.TenantRepository {
	return &TenantRepository{BaseRepository: NewBaseRepository(pool)}
}

// Create сохраняет новый тенант в базе данных
// Нарушение уникальности FQDN возвращается как CONFLICT,
// чтобы вызывающая сторона могла деградировать create в find
func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `INSERT INTO tenants (id, fqdn, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.Pool.Exec(ctx, query,
		tenant.ID,
		tenant.FQDN,
		tenant.Name,
		tenant.IsActive,
		tenant.CreatedAt,
		tenant.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.New(pkgerrors.ErrConflict, fmt.Sprintf("tenant %s already exists", tenant.FQDN))
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// FindByID возвращает тенант по его ID
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `SELECT id, fqdn, name, is_active, created_at, updated_at
		FROM tenants WHERE id = $1`

	return r.scanTenant(r.Pool.QueryRow(ctx, query, id))
}

// FindByFQDN возвращает тенант по его FQDN
func (r *TenantRepository) FindByFQDN(ctx context.Context, fqdn string) (*domain.Tenant, error) {
	query := `SELECT id, fqdn, name, is_active, created_at, updated_at
		FROM tenants WHERE fqdn = $1`

	return r.scanTenant(r.Pool.QueryRow(ctx, query, fqdn))
}

// FindActiveByFQDN возвращает активный тенант по его FQDN
// Деактивированные тенанты трактуются как не найденные
func (r *TenantRepository) FindActiveByFQDN(ctx context.Context, fqdn string) (*domain.Tenant, error) {
	query := `SELECT id, fqdn, name, is_active, created_at, updated_at
		FROM tenants WHERE fqdn = $1 AND is_active = true`

	return r.scanTenant(r.Pool.QueryRow(ctx, query, fqdn))
}

// Update обновляет существующий тенант
func (r *TenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `UPDATE tenants SET fqdn = $2, name = $3, is_active = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.Pool.Exec(ctx, query,
		tenant.ID,
		tenant.FQDN,
		tenant.Name,
		tenant.IsActive,
		tenant.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "tenant not found")
	}

	return nil
}

// scanTenant сканирует одну строку в доменную модель тенанта
func (r *TenantRepository) scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var tenant domain.Tenant

	err := row.Scan(
		&tenant.ID,
		&tenant.FQDN,
		&tenant.Name,
		&tenant.IsActive,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.New(pkgerrors.ErrNotFound, "tenant not found")
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &tenant, nil
}
