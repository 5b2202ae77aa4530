package repository

import (
	"context"
	"time"

	"PerfPulsePlatform/internal/domain"
)

// TenantRepository интерфейс для работы с тенантами
// FQDN нормализуется вызывающей стороной (trim, нижний регистр)
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
	FindByFQDN(ctx context.Context, fqdn string) (*domain.Tenant, error)
	FindActiveByFQDN(ctx context.Context, fqdn string) (*domain.Tenant, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
}

// UserRepository интерфейс для работы с пользователями
// Все выборки, кроме Create, ограничены тенантом
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id, tenantID string) (*domain.User, error)
	FindByEmailAndTenant(ctx context.Context, email, tenantID string) (*domain.User, error)
	ListByDepartment(ctx context.Context, departmentID, tenantID string) ([]*domain.User, error)
	ListByManager(ctx context.Context, managerID, tenantID string) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

// DepartmentRepository интерфейс для работы с отделами
type DepartmentRepository interface {
	Create(ctx context.Context, department *domain.Department) error
	FindByID(ctx context.Context, id, tenantID string) (*domain.Department, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Department, error)
	ListByParent(ctx context.Context, parentID, tenantID string) ([]*domain.Department, error)
	Update(ctx context.Context, department *domain.Department) error
	Delete(ctx context.Context, id, tenantID string) error
}

// TeamRepository интерфейс для работы с командами
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	FindByID(ctx context.Context, id, tenantID string) (*domain.Team, error)
	ListByDepartment(ctx context.Context, departmentID, tenantID string) ([]*domain.Team, error)
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, id, tenantID string) error
}

// GoalRepository интерфейс для работы с целями
// Назначения хранятся в отдельной таблице goal_assignees
type GoalRepository interface {
	Create(ctx context.Context, goal *domain.Goal) error
	FindByID(ctx context.Context, id, tenantID string) (*domain.Goal, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Goal, error)
	ListByOwner(ctx context.Context, ownerID, tenantID string) ([]*domain.Goal, error)
	ListChildren(ctx context.Context, parentID, tenantID string) ([]*domain.Goal, error)
	Assign(ctx context.Context, goalID, userID, tenantID string, assignedAt time.Time) error
	Unassign(ctx context.Context, goalID, userID, tenantID string) error
	Update(ctx context.Context, goal *domain.Goal) error
	Delete(ctx context.Context, id, tenantID string) error
}

// KPIRepository интерфейс для работы с KPI целей
type KPIRepository interface {
	Create(ctx context.Context, kpi *domain.KPI) error
	CountByGoal(ctx context.Context, goalID, tenantID string) (int, error)
	ListByGoal(ctx context.Context, goalID, tenantID string) ([]*domain.KPI, error)
}

// TenantCache интерфейс кэша резолюции тенантов (FQDN -> tenant)
// Используется TenantResolver перед обращением к базе
type TenantCache interface {
	Get(ctx context.Context, fqdn string) (*domain.Tenant, error)
	Set(ctx context.Context, tenant *domain.Tenant, ttl time.Duration) error
	Invalidate(ctx context.Context, fqdn string) error
}
