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

// TeamRepository реализация репозитория команд для PostgreSQL
type TeamRepository struct {
	*BaseRepository
}

// NewTeamRepository создает новый экземпляр TeamRepository
func NewTeamRepository(pool *pgxpool.Pool) repository.TeamRepository {
	return &TeamRepository{BaseRepository: NewBaseRepository(pool)}
}

const teamColumns = `id, tenant_id, department_id, name, lead_id, created_at, updated_at`

// Create сохраняет новую команду в базе данных
func (r *TeamRepository) Create(ctx context.Context, team *domain.Team) error {
	query := `INSERT INTO teams (` + teamColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.Pool.Exec(ctx, query,
		team.ID,
		team.TenantID,
		team.DepartmentID,
		team.Name,
		team.LeadID,
		team.CreatedAt,
		team.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	return nil
}

// FindByID возвращает команду по ее ID в рамках тенанта
func (r *TeamRepository) FindByID(ctx context.Context, id, tenantID string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1 AND tenant_id = $2`

	return r.scanTeam(r.Pool.QueryRow(ctx, query, id, tenantID))
}

// ListByDepartment возвращает команды отдела
func (r *TeamRepository) ListByDepartment(ctx context.Context, departmentID, tenantID string) ([]*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE department_id = $1 AND tenant_id = $2`

	rows, err := r.Pool.Query(ctx, query, departmentID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams by department: %w", err)
	}
	defer rows.Close()

	var teams []*domain.Team
	for rows.Next() {
		team, err := r.scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}

	return teams, nil
}

// Update обновляет существующую команду
func (r *TeamRepository) Update(ctx context.Context, team *domain.Team) error {
	query := `UPDATE teams SET department_id = $3, name = $4, lead_id = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.Pool.Exec(ctx, query,
		team.ID,
		team.TenantID,
		team.DepartmentID,
		team.Name,
		team.LeadID,
		team.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "team not found")
	}

	return nil
}

// Delete удаляет команду в рамках тенанта
func (r *TeamRepository) Delete(ctx context.Context, id, tenantID string) error {
	query := `DELETE FROM teams WHERE id = $1 AND tenant_id = $2`

	tag, err := r.Pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "team not found")
	}

	return nil
}

// scanTeam сканирует одну строку в доменную модель команды
func (r *TeamRepository) scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team

	err := row.Scan(
		&team.ID,
		&team.TenantID,
		&team.DepartmentID,
		&team.Name,
		&team.LeadID,
		&team.CreatedAt,
		&team.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.New(pkgerrors.ErrNotFound, "team not found")
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return &team, nil
}
