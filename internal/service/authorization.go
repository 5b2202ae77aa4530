package service

import (
	"context"
	"fmt"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/repository"
	pkgerrors "PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/logger"
)

// AuthorizationEngine вычисляет ролевые и реляционные предикаты доступа
// над парой (текущий пользователь, целевой ресурс)
// Правило администратора тенанта имеет наивысший приоритет
type AuthorizationEngine interface {
	RequireRole(user *domain.User, role domain.Role) error
	RequireDepartmentManager(ctx context.Context, user *domain.User, departmentID string) error
	IsDepartmentManager(ctx context.Context, user *domain.User, departmentID string) (bool, error)
	IsDepartmentAssistant(ctx context.Context, user *domain.User, departmentID string) (bool, error)
	IsTeamLead(ctx context.Context, user *domain.User, teamID string) (bool, error)
	CanViewGoal(ctx context.Context, user *domain.User, goal *domain.Goal) (bool, error)
}

// Authorizer реализация AuthorizationEngine
type Authorizer struct {
	userRepository       repository.UserRepository
	departmentRepository repository.DepartmentRepository
	teamRepository       repository.TeamRepository
	logger               logger.Logger
}

// NewAuthorizer создает новый движок авторизации
func NewAuthorizer(
	userRepository repository.UserRepository,
	departmentRepository repository.DepartmentRepository,
	teamRepository repository.TeamRepository,
	log logger.Logger,
) AuthorizationEngine {
	return &Authorizer{
		userRepository:       userRepository,
		departmentRepository: departmentRepository,
		teamRepository:       teamRepository,
		logger:               log,
	}
}

// RequireRole проверяет наличие роли у пользователя
// Администратор тенанта проходит любую ролевую проверку
func (a *Authorizer) RequireRole(user *domain.User, role domain.Role) error {
	if user == nil {
		return permissionDenied("authenticated user required")
	}
	if user.IsAdmin() || user.Role == role {
		return nil
	}
	return permissionDenied(fmt.Sprintf("role %s required", role))
}

// RequireDepartmentManager проверяет, что пользователь управляет отделом
func (a *Authorizer) RequireDepartmentManager(ctx context.Context, user *domain.User, departmentID string) error {
	if user == nil {
		return permissionDenied("authenticated user required")
	}
	if user.IsAdmin() {
		return nil
	}
	isManager, err := a.IsDepartmentManager(ctx, user, departmentID)
	if err != nil {
		return err
	}
	if !isManager {
		return permissionDenied("department manager relationship required")
	}
	return nil
}

// IsDepartmentManager проверяет совпадение id пользователя с менеджером отдела
func (a *Authorizer) IsDepartmentManager(ctx context.Context, user *domain.User, departmentID string) (bool, error) {
	department, err := a.departmentRepository.FindByID(ctx, departmentID, user.TenantID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return department.ManagerID != "" && department.ManagerID == user.ID, nil
}

// IsDepartmentAssistant проверяет совпадение id пользователя с ассистентом менеджера
func (a *Authorizer) IsDepartmentAssistant(ctx context.Context, user *domain.User, departmentID string) (bool, error) {
	department, err := a.departmentRepository.FindByID(ctx, departmentID, user.TenantID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return department.AssistantID != "" && department.AssistantID == user.ID, nil
}

// IsTeamLead проверяет совпадение id пользователя с лидером команды
func (a *Authorizer) IsTeamLead(ctx context.Context, user *domain.User, teamID string) (bool, error) {
	team, err := a.teamRepository.FindByID(ctx, teamID, user.TenantID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return team.LeadID != "" && team.LeadID == user.ID, nil
}

// CanViewGoal проверяет видимость цели для пользователя
//
// Администратор тенанта видит все цели своего тенанта. Владелец и назначенные
// видят цель всегда. Конфиденциальная цель не видна никому другому, включая
// менеджеров отделов. Неконфиденциальная цель дополнительно видна членам
// отдела владельца или любого назначенного, а также менеджеру или ассистенту
// такого отдела
func (a *Authorizer) CanViewGoal(ctx context.Context, user *domain.User, goal *domain.Goal) (bool, error) {
	if user == nil || goal == nil {
		return false, nil
	}
	if goal.TenantID != user.TenantID {
		return false, nil
	}

	if user.IsAdmin() {
		return true, nil
	}

	if goal.OwnerID == user.ID || goal.IsAssignee(user.ID) {
		return true, nil
	}

	// Конфиденциальность перекрывает видимость по отделу
	if goal.Confidential {
		return false, nil
	}

	relatedIDs := append([]string{goal.OwnerID}, goal.AssigneeIDs...)
	seenDepartments := make(map[string]bool)

	for _, relatedID := range relatedIDs {
		related, err := a.userRepository.FindByID(ctx, relatedID, user.TenantID)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
				continue
			}
			return false, err
		}
		if related.DepartmentID == "" || seenDepartments[related.DepartmentID] {
			continue
		}
		seenDepartments[related.DepartmentID] = true

		if related.DepartmentID == user.DepartmentID {
			return true, nil
		}

		department, err := a.departmentRepository.FindByID(ctx, related.DepartmentID, user.TenantID)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
				continue
			}
			return false, err
		}
		if department.ManagerID == user.ID || department.AssistantID == user.ID {
			return true, nil
		}
	}

	return false, nil
}

// permissionDenied формирует ошибку отказа в доступе с причиной,
// по которой не прошел предикат
func permissionDenied(rule string) error {
	return pkgerrors.New(pkgerrors.ErrForbidden, "permission denied").WithDetails(rule)
}
