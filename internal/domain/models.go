package domain

import (
	"time"
)

// Role представляет роль пользователя в рамках тенанта
type Role string

// Определение ролей пользователей
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// GoalStatus представляет статус цели в жизненном цикле
type GoalStatus string

// Определение статусов жизненного цикла цели
// RETIRED и ARCHIVED являются терминальными боковыми выходами
const (
	StatusDraft           GoalStatus = "DRAFT"
	StatusPendingApproval GoalStatus = "PENDING_APPROVAL"
	StatusApproved        GoalStatus = "APPROVED"
	StatusPublished       GoalStatus = "PUBLISHED"
	StatusAchieved        GoalStatus = "ACHIEVED"
	StatusRetired         GoalStatus = "RETIRED"
	StatusArchived        GoalStatus = "ARCHIVED"
)

// Tenant представляет клиента/организацию в системе
// Каждый tenant изолирован от других
// FQDN является естественным ключом и хранится в нижнем регистре
type Tenant struct {
	ID        string    `json:"id"`
	FQDN      string    `json:"fqdn"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User представляет пользователя системы
// Email должен быть уникальным в рамках tenant
// Цепочка менеджеров образует лес, циклы запрещены
type User struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	DepartmentID string    `json:"department_id,omitempty"`
	TeamID       string    `json:"team_id,omitempty"`
	ManagerID    string    `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin проверяет, является ли пользователь администратором тенанта
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FullName возвращает полное имя пользователя
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Department представляет отдел в рамках тенанта
// Родительские связи образуют лес, циклы запрещены
type Department struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	ManagerID   string    `json:"manager_id,omitempty"`
	AssistantID string    `json:"assistant_id,omitempty"`
	CoOwnerID   string    `json:"co_owner_id,omitempty"`
	ParentID    string    `json:"parent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Team представляет команду внутри отдела
// Лидер и участники команды должны принадлежать тому же отделу
type Team struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	DepartmentID string    `json:"department_id"`
	Name         string    `json:"name"`
	LeadID       string    `json:"lead_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Goal представляет цель пользователя
// Родительские связи образуют лес
// Заблокированная цель отклоняет все мутации, кроме разблокировки владельцем
// Конфиденциальная цель видна только владельцу и назначенным пользователям
type Goal struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	OwnerID      string     `json:"owner_id"`
	ParentID     string     `json:"parent_id,omitempty"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Status       GoalStatus `json:"status"`
	Locked       bool       `json:"locked"`
	Confidential bool       `json:"confidential"`
	AssigneeIDs  []string   `json:"assignee_ids,omitempty"`
	TargetDate   *time.Time `json:"target_date,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsAssignee проверяет, назначена ли цель на пользователя
func (g *Goal) IsAssignee(userID string) bool {
	for _, id := range g.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// KPI представляет ключевой показатель эффективности цели
// Отслеживается независимо, но участвует в предусловиях назначения цели
type KPI struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	GoalID        string    `json:"goal_id"`
	Name          string    `json:"name"`
	CompletionPct float64   `json:"completion_pct"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Claims представляет нормализованный набор утверждений из bearer токена
// Алиасы полей (username/name, tenantId/tenant_id) уже разрешены
type Claims struct {
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	TenantFQDN  string   `json:"tenant_fqdn"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasRole проверяет наличие роли в claims (без учета регистра не требуется)
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
