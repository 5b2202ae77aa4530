package postgres

import (
	"context"
	"fmt"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// KPIRepository реализация репозитория KPI для PostgreSQL
type KPIRepository struct {
	*BaseRepository
}

// NewKPIRepository создает новый экземпляр KPIRepository
func NewKPIRepository(pool *pgxpool.Pool) repository.KPIRepository {
	return &KPIRepository{BaseRepository: NewBaseRepository(pool)}
}

// Create сохраняет новый KPI в базе данных
func (r *KPIRepository) Create(ctx context.Context, kpi *domain.KPI) error {
	query := `INSERT INTO kpis (id, tenant_id, goal_id, name, completion_pct, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.Pool.Exec(ctx, query,
		kpi.ID,
		kpi.TenantID,
		kpi.GoalID,
		kpi.Name,
		kpi.CompletionPct,
		kpi.Status,
		kpi.CreatedAt,
		kpi.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create kpi: %w", err)
	}

	return nil
}

// CountByGoal возвращает количество KPI у цели
// Используется для проверки предусловия назначения цели
func (r *KPIRepository) CountByGoal(ctx context.Context, goalID, tenantID string) (int, error) {
	query := `SELECT COUNT(*) FROM kpis WHERE goal_id = $1 AND tenant_id = $2`

	var count int
	if err := r.Pool.QueryRow(ctx, query, goalID, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count kpis: %w", err)
	}

	return count, nil
}

// ListByGoal возвращает все KPI цели
func (r *KPIRepository) ListByGoal(ctx context.Context, goalID, tenantID string) ([]*domain.KPI, error) {
	query := `SELECT id, tenant_id, goal_id, name, completion_pct, status, created_at, updated_at
		FROM kpis WHERE goal_id = $1 AND tenant_id = $2`

	rows, err := r.Pool.Query(ctx, query, goalID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list kpis: %w", err)
	}
	defer rows.Close()

	var kpis []*domain.KPI
	for rows.Next() {
		var kpi domain.KPI
		if err := rows.Scan(
			&kpi.ID,
			&kpi.TenantID,
			&kpi.GoalID,
			&kpi.Name,
			&kpi.CompletionPct,
			&kpi.Status,
			&kpi.CreatedAt,
			&kpi.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan kpi: %w", err)
		}
		kpis = append(kpis, &kpi)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kpis: %w", err)
	}

	return kpis, nil
}
