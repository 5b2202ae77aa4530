package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/repository"
	pkgerrors "PerfPulsePlatform/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GoalRepository реализация репозитория целей для PostgreSQL
// Назначения хранятся в таблице goal_assignees (goal_id, user_id, tenant_id, assigned_at)
type GoalRepository struct {
	*BaseRepository
}

// NewGoalRepository создает новый экземпляр GoalRepository
func NewGoalRepository(pool *pgxpool.Pool) repository.GoalRepository {
	return &GoalRepository{BaseRepository: NewBaseRepository(pool)}
}

const goalColumns = `id, tenant_id, owner_id, parent_id, name, description, status, locked, confidential,
	target_date, completed_at, assigned_at, created_at, updated_at`

// Create сохраняет новую цель в базе данных
func (r *GoalRepository) Create(ctx context.Context, goal *domain.Goal) error {
	query := `INSERT INTO goals (id, tenant_id, owner_id, parent_id, name, description, status, locked, confidential,
		target_date, completed_at, assigned_at, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.Pool.Exec(ctx, query,
		goal.ID,
		goal.TenantID,
		goal.OwnerID,
		goal.ParentID,
		goal.Name,
		goal.Description,
		goal.Status,
		goal.Locked,
		goal.Confidential,
		goal.TargetDate,
		goal.CompletedAt,
		goal.AssignedAt,
		goal.CreatedAt,
		goal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

// FindByID возвращает цель по ее ID в рамках тенанта, включая назначения
func (r *GoalRepository) FindByID(ctx context.Context, id, tenantID string) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1 AND tenant_id = $2`

	goal, err := r.scanGoal(r.Pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		return nil, err
	}

	if err := r.loadAssignees(ctx, goal); err != nil {
		return nil, err
	}

	return goal, nil
}

// ListByTenant возвращает все цели тенанта
func (r *GoalRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE tenant_id = $1`

	return r.queryGoals(ctx, query, tenantID)
}

// ListByOwner возвращает цели по владельцу
func (r *GoalRepository) ListByOwner(ctx context.Context, ownerID, tenantID string) ([]*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE owner_id = $1 AND tenant_id = $2`

	return r.queryGoals(ctx, query, ownerID, tenantID)
}

// ListChildren возвращает дочерние цели
func (r *GoalRepository) ListChildren(ctx context.Context, parentID, tenantID string) ([]*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE parent_id = $1 AND tenant_id = $2`

	return r.queryGoals(ctx, query, parentID, tenantID)
}

// Assign добавляет назначение цели на пользователя
// Повторное назначение возвращается как CONFLICT
func (r *GoalRepository) Assign(ctx context.Context, goalID, userID, tenantID string, assignedAt time.Time) error {
	query := `INSERT INTO goal_assignees (goal_id, user_id, tenant_id, assigned_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.Pool.Exec(ctx, query, goalID, userID, tenantID, assignedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.New(pkgerrors.ErrConflict, "goal already assigned to user")
		}
		return fmt.Errorf("failed to assign goal: %w", err)
	}

	return nil
}

// Unassign снимает назначение цели с пользователя
func (r *GoalRepository) Unassign(ctx context.Context, goalID, userID, tenantID string) error {
	query := `DELETE FROM goal_assignees WHERE goal_id = $1 AND user_id = $2 AND tenant_id = $3`

	tag, err := r.Pool.Exec(ctx, query, goalID, userID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to unassign goal: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "goal assignment not found")
	}

	return nil
}

// Update обновляет существующую цель
func (r *GoalRepository) Update(ctx context.Context, goal *domain.Goal) error {
	query := `UPDATE goals SET parent_id = NULLIF($3, ''), name = $4, description = $5, status = $6,
		locked = $7, confidential = $8, target_date = $9, completed_at = $10, assigned_at = $11, updated_at = $12
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.Pool.Exec(ctx, query,
		goal.ID,
		goal.TenantID,
		goal.ParentID,
		goal.Name,
		goal.Description,
		goal.Status,
		goal.Locked,
		goal.Confidential,
		goal.TargetDate,
		goal.CompletedAt,
		goal.AssignedAt,
		goal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "goal not found")
	}

	return nil
}

// Delete удаляет цель в рамках тенанта
func (r *GoalRepository) Delete(ctx context.Context, id, tenantID string) error {
	query := `DELETE FROM goals WHERE id = $1 AND tenant_id = $2`

	tag, err := r.Pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "goal not found")
	}

	return nil
}

// queryGoals выполняет запрос списка целей и загружает назначения
func (r *GoalRepository) queryGoals(ctx context.Context, query string, args ...interface{}) ([]*domain.Goal, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*domain.Goal
	for rows.Next() {
		goal, err := r.scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}

	for _, goal := range goals {
		if err := r.loadAssignees(ctx, goal); err != nil {
			return nil, err
		}
	}

	return goals, nil
}

// loadAssignees загружает назначения цели
func (r *GoalRepository) loadAssignees(ctx context.Context, goal *domain.Goal) error {
	query := `SELECT user_id FROM goal_assignees WHERE goal_id = $1 AND tenant_id = $2`

	rows, err := r.Pool.Query(ctx, query, goal.ID, goal.TenantID)
	if err != nil {
		return fmt.Errorf("failed to load goal assignees: %w", err)
	}
	defer rows.Close()

	goal.AssigneeIDs = nil
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("failed to scan goal assignee: %w", err)
		}
		goal.AssigneeIDs = append(goal.AssigneeIDs, userID)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate goal assignees: %w", err)
	}

	return nil
}

// scanGoal сканирует одну строку в доменную модель цели
func (r *GoalRepository) scanGoal(row pgx.Row) (*domain.Goal, error) {
	var goal domain.Goal
	var parentID *string

	err := row.Scan(
		&goal.ID,
		&goal.TenantID,
		&goal.OwnerID,
		&parentID,
		&goal.Name,
		&goal.Description,
		&goal.Status,
		&goal.Locked,
		&goal.Confidential,
		&goal.TargetDate,
		&goal.CompletedAt,
		&goal.AssignedAt,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.New(pkgerrors.ErrNotFound, "goal not found")
		}
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}

	if parentID != nil {
		goal.ParentID = *parentID
	}

	return &goal, nil
}
