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

// UserRepository реализация репозитория пользователей для PostgreSQL
type UserRepository struct {
	*BaseRepository
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &UserRepository{BaseRepository: NewBaseRepository(pool)}
}

const userColumns = `id, tenant_id, email, first_name, last_name, role, department_id, team_id, manager_id, created_at, updated_at`

// Create сохраняет нового пользователя в базе данных
// Нарушение уникальности (email, tenant_id) возвращается как CONFLICT
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11)`

	_, err := r.Pool.Exec(ctx, query,
		user.ID,
		user.TenantID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.DepartmentID,
		user.TeamID,
		user.ManagerID,
		user.CreatedAt,
		user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.New(pkgerrors.ErrConflict, fmt.Sprintf("user %s already exists in tenant", user.Email))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// FindByID возвращает пользователя по его ID в рамках тенанта
func (r *UserRepository) FindByID(ctx context.Context, id, tenantID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND tenant_id = $2`

	return r.scanUser(r.Pool.QueryRow(ctx, query, id, tenantID))
}

// FindByEmailAndTenant возвращает пользователя по email в рамках тенанта
func (r *UserRepository) FindByEmailAndTenant(ctx context.Context, email, tenantID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND tenant_id = $2`

	return r.scanUser(r.Pool.QueryRow(ctx, query, email, tenantID))
}

// ListByDepartment возвращает пользователей отдела
func (r *UserRepository) ListByDepartment(ctx context.Context, departmentID, tenantID string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE department_id = $1 AND tenant_id = $2`

	rows, err := r.Pool.Query(ctx, query, departmentID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by department: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// ListByManager возвращает прямых подчиненных менеджера
func (r *UserRepository) ListByManager(ctx context.Context, managerID, tenantID string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE manager_id = $1 AND tenant_id = $2`

	rows, err := r.Pool.Query(ctx, query, managerID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by manager: %w", err)
	}
	defer rows.Close()

	return r.scanUsers(rows)
}

// Update обновляет существующего пользователя
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users SET email = $3, first_name = $4, last_name = $5, role = $6,
		department_id = NULLIF($7, ''), team_id = NULLIF($8, ''), manager_id = NULLIF($9, ''), updated_at = $10
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.Pool.Exec(ctx, query,
		user.ID,
		user.TenantID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.DepartmentID,
		user.TeamID,
		user.ManagerID,
		user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "user not found")
	}

	return nil
}

// scanUser сканирует одну строку в доменную модель пользователя
func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var departmentID, teamID, managerID *string

	err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&departmentID,
		&teamID,
		&managerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.New(pkgerrors.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if departmentID != nil {
		user.DepartmentID = *departmentID
	}
	if teamID != nil {
		user.TeamID = *teamID
	}
	if managerID != nil {
		user.ManagerID = *managerID
	}

	return &user, nil
}

// scanUsers сканирует все строки результата
func (r *UserRepository) scanUsers(rows pgx.Rows) ([]*domain.User, error) {
	var users []*domain.User

	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}
