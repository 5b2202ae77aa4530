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

// DepartmentRepository реализация репозитория отделов для PostgreSQL
type DepartmentRepository struct {
	*BaseRepository
}

// NewDepartmentRepository создает новый экземпляр DepartmentRepository
func NewDepartmentRepository(pool *pgxpool.Pool) repository.DepartmentRepository {
	return &DepartmentRepository{BaseRepository: NewBaseRepository(pool)}
}

const departmentColumns = `id, tenant_id, name, manager_id, assistant_id, co_owner_id, parent_id, created_at, updated_at`

// Create сохраняет новый отдел в базе данных
func (r *DepartmentRepository) Create(ctx context.Context, department *domain.Department) error {
	query := `INSERT INTO departments (` + departmentColumns + `)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)`

	_, err := r.Pool.Exec(ctx, query,
		department.ID,
		department.TenantID,
		department.Name,
		department.ManagerID,
		department.AssistantID,
		department.CoOwnerID,
		department.ParentID,
		department.CreatedAt,
		department.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}

	return nil
}

// FindByID возвращает отдел по его ID в рамках тенанта
func (r *DepartmentRepository) FindByID(ctx context.Context, id, tenantID string) (*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1 AND tenant_id = $2`

	return r.scanDepartment(r.Pool.QueryRow(ctx, query, id, tenantID))
}

// ListByTenant возвращает все отделы тенанта
func (r *DepartmentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE tenant_id = $1`

	rows, err := r.Pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	return r.scanDepartments(rows)
}

// ListByParent возвращает дочерние отделы
// Пустой parentID возвращает корневые отделы (parent_id IS NULL)
func (r *DepartmentRepository) ListByParent(ctx context.Context, parentID, tenantID string) ([]*domain.Department, error) {
	var rows pgx.Rows
	var err error

	if parentID == "" {
		query := `SELECT ` + departmentColumns + ` FROM departments WHERE parent_id IS NULL AND tenant_id = $1`
		rows, err = r.Pool.Query(ctx, query, tenantID)
	} else {
		query := `SELECT ` + departmentColumns + ` FROM departments WHERE parent_id = $1 AND tenant_id = $2`
		rows, err = r.Pool.Query(ctx, query, parentID, tenantID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list departments by parent: %w", err)
	}
	defer rows.Close()

	return r.scanDepartments(rows)
}

// Update обновляет существующий отдел
func (r *DepartmentRepository) Update(ctx context.Context, department *domain.Department) error {
	query := `UPDATE departments SET name = $3, manager_id = NULLIF($4, ''), assistant_id = NULLIF($5, ''),
		co_owner_id = NULLIF($6, ''), parent_id = NULLIF($7, ''), updated_at = $8
		WHERE id = $1 AND tenant_id = $2`

	tag, err := r.Pool.Exec(ctx, query,
		department.ID,
		department.TenantID,
		department.Name,
		department.ManagerID,
		department.AssistantID,
		department.CoOwnerID,
		department.ParentID,
		department.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "department not found")
	}

	return nil
}

// Delete удаляет отдел в рамках тенанта
func (r *DepartmentRepository) Delete(ctx context.Context, id, tenantID string) error {
	query := `DELETE FROM departments WHERE id = $1 AND tenant_id = $2`

	tag, err := r.Pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return pkgerrors.New(pkgerrors.ErrNotFound, "department not found")
	}

	return nil
}

// scanDepartment сканирует одну строку в доменную модель отдела
func (r *DepartmentRepository) scanDepartment(row pgx.Row) (*domain.Department, error) {
	var department domain.Department
	var managerID, assistantID, coOwnerID, parentID *string

	err := row.Scan(
		&department.ID,
		&department.TenantID,
		&department.Name,
		&managerID,
		&assistantID,
		&coOwnerID,
		&parentID,
		&department.CreatedAt,
		&department.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.New(pkgerrors.ErrNotFound, "department not found")
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	if managerID != nil {
		department.ManagerID = *managerID
	}
	if assistantID != nil {
		department.AssistantID = *assistantID
	}
	if coOwnerID != nil {
		department.CoOwnerID = *coOwnerID
	}
	if parentID != nil {
		department.ParentID = *parentID
	}

	return &department, nil
}

// scanDepartments сканирует все строки результата
func (r *DepartmentRepository) scanDepartments(rows pgx.Rows) ([]*domain.Department, error) {
	var departments []*domain.Department

	for rows.Next() {
		department, err := r.scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		departments = append(departments, department)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate departments: %w", err)
	}

	return departments, nil
}
