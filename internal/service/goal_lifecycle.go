package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/events"
	"PerfPulsePlatform/internal/repository"
	pkgerrors "PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/logger"
)

// GoalLifecycle управляет жизненным циклом целей: статусами, блокировкой,
// назначениями и фильтрацией видимости
//
// Тенант и действующий пользователь берутся из контекста запроса.
// Чтения при отсутствии тенанта деградируют в пустой результат,
// записи завершаются ошибкой TENANT_REQUIRED
type GoalLifecycle interface {
	CreateGoal(ctx context.Context, goal *domain.Goal) (*domain.Goal, error)
	GetGoal(ctx context.Context, goalID string) (*domain.Goal, error)
	ListGoals(ctx context.Context) ([]*domain.Goal, error)
	ListDepartmentGoals(ctx context.Context, departmentID string) ([]*domain.Goal, error)
	TransitionStatus(ctx context.Context, goalID string, newStatus domain.GoalStatus) (*domain.Goal, error)
	AssignGoal(ctx context.Context, goalID, assigneeID string) (*domain.Goal, error)
	UnassignGoal(ctx context.Context, goalID, assigneeID string) (*domain.Goal, error)
	ApproveGoal(ctx context.Context, goalID string) (*domain.Goal, error)
	LockGoal(ctx context.Context, goalID string) (*domain.Goal, error)
	UnlockGoal(ctx context.Context, goalID string) (*domain.Goal, error)
}

// GoalService реализация GoalLifecycle
type GoalService struct {
	goalRepository       repository.GoalRepository
	kpiRepository        repository.KPIRepository
	userRepository       repository.UserRepository
	departmentRepository repository.DepartmentRepository
	authorizer           AuthorizationEngine
	publisher            events.Publisher
	logger               logger.Logger
}

// NewGoalService создает новый сервис жизненного цикла целей
func NewGoalService(
	goalRepository repository.GoalRepository,
	kpiRepository repository.KPIRepository,
	userRepository repository.UserRepository,
	departmentRepository repository.DepartmentRepository,
	authorizer AuthorizationEngine,
	publisher events.Publisher,
	log logger.Logger,
) GoalLifecycle {
	return &GoalService{
		goalRepository:       goalRepository,
		kpiRepository:        kpiRepository,
		userRepository:       userRepository,
		departmentRepository: departmentRepository,
		authorizer:           authorizer,
		publisher:            publisher,
		logger:               log,
	}
}

// CreateGoal создает новую цель в статусе DRAFT от имени текущего пользователя
func (s *GoalService) CreateGoal(ctx context.Context, goal *domain.Goal) (*domain.Goal, error) {
	tenant, actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	goal.ID = uuid.New().String()
	goal.TenantID = tenant.ID
	goal.OwnerID = actor.ID
	goal.Status = domain.StatusDraft
	goal.Locked = false
	goal.CreatedAt = now
	goal.UpdatedAt = now

	if goal.ParentID != "" {
		if _, err := s.goalRepository.FindByID(ctx, goal.ParentID, tenant.ID); err != nil {
			return nil, err
		}
	}

	if err := s.goalRepository.Create(ctx, goal); err != nil {
		return nil, err
	}

	s.logger.Info("Goal created",
		logger.String("goal_id", goal.ID),
		logger.String("owner_id", actor.ID))

	return goal, nil
}

// GetGoal возвращает цель по id с учетом видимости
// Невидимая для пользователя цель неотличима от несуществующей
func (s *GoalService) GetGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	tenant := CurrentTenant(ctx)
	if tenant == nil {
		return nil, pkgerrors.New(pkgerrors.ErrNotFound, "goal not found")
	}

	goal, err := s.goalRepository.FindByID(ctx, goalID, tenant.ID)
	if err != nil {
		return nil, err
	}

	visible, err := s.authorizer.CanViewGoal(ctx, CurrentUser(ctx), goal)
	if err != nil {
		return nil, err
	}
	if !visible {
		// Существование конфиденциальной цели не раскрывается
		return nil, pkgerrors.New(pkgerrors.ErrNotFound, "goal not found")
	}

	return goal, nil
}

// ListGoals возвращает цели тенанта, видимые текущему пользователю
func (s *GoalService) ListGoals(ctx context.Context) ([]*domain.Goal, error) {
	tenant := CurrentTenant(ctx)
	if tenant == nil {
		return []*domain.Goal{}, nil
	}

	goals, err := s.goalRepository.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	return s.filterVisible(ctx, goals)
}

// ListDepartmentGoals возвращает цели, принадлежащие участникам отдела
// Фильтр конфиденциальности применяется после отборки по отделу
func (s *GoalService) ListDepartmentGoals(ctx context.Context, departmentID string) ([]*domain.Goal, error) {
	tenant := CurrentTenant(ctx)
	if tenant == nil {
		return []*domain.Goal{}, nil
	}

	members, err := s.userRepository.ListByDepartment(ctx, departmentID, tenant.ID)
	if err != nil {
		return nil, err
	}

	var departmentGoals []*domain.Goal
	for _, member := range members {
		goals, err := s.goalRepository.ListByOwner(ctx, member.ID, tenant.ID)
		if err != nil {
			return nil, err
		}
		departmentGoals = append(departmentGoals, goals...)
	}

	return s.filterVisible(ctx, departmentGoals)
}

// TransitionStatus переводит цель в новый статус
//
// Заблокированная цель отклоняет перевод. Выход из PUBLISHED или APPROVED
// в DRAFT, ARCHIVED или RETIRED отклоняется, пока хотя бы одна дочерняя цель
// остается в PUBLISHED или APPROVED
func (s *GoalService) TransitionStatus(ctx context.Context, goalID string, newStatus domain.GoalStatus) (*domain.Goal, error) {
	tenant, actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.goalRepository.FindByID(ctx, goalID, tenant.ID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMutable(goal); err != nil {
		return nil, err
	}
	if err := s.requireGoalMutator(actor, goal); err != nil {
		return nil, err
	}

	if goal.Status == newStatus {
		return goal, nil
	}

	if isLiveStatus(goal.Status) && isDowngradeStatus(newStatus) {
		children, err := s.goalRepository.ListChildren(ctx, goal.ID, tenant.ID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if isLiveStatus(child.Status) {
				return nil, pkgerrors.New(pkgerrors.ErrInvalidTransition,
					"cannot downgrade goal while child goals are published or approved").
					WithDetails(fmt.Sprintf("child goal %s is %s", child.ID, child.Status))
			}
		}
	}

	previous := goal.Status
	now := time.Now().UTC()
	goal.Status = newStatus
	goal.UpdatedAt = now
	if newStatus == domain.StatusAchieved {
		goal.CompletedAt = &now
	}

	if err := s.goalRepository.Update(ctx, goal); err != nil {
		return nil, err
	}

	s.publisher.GoalStatusChanged(ctx, goal, previous)
	s.logger.Info("Goal status changed",
		logger.String("goal_id", goal.ID),
		logger.String("from", string(previous)),
		logger.String("to", string(newStatus)))

	return goal, nil
}

// AssignGoal назначает цель на пользователя
//
// Предусловия: у цели есть хотя бы один KPI, назначаемый является владельцем
// цели или членом отдела владельца. Если владелец не является менеджером или
// ассистентом отдела назначаемого, цель принудительно переводится
// в PENDING_APPROVAL с фиксацией даты назначения
func (s *GoalService) AssignGoal(ctx context.Context, goalID, assigneeID string) (*domain.Goal, error) {
	tenant, actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.goalRepository.FindByID(ctx, goalID, tenant.ID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMutable(goal); err != nil {
		return nil, err
	}
	if err := s.requireGoalMutator(actor, goal); err != nil {
		return nil, err
	}

	if goal.IsAssignee(assigneeID) {
		return goal, nil
	}

	kpiCount, err := s.kpiRepository.CountByGoal(ctx, goal.ID, tenant.ID)
	if err != nil {
		return nil, err
	}
	if kpiCount == 0 {
		return nil, pkgerrors.New(pkgerrors.ErrInvalidTransition, "goal must have at least one KPI before assignment")
	}

	assignee, err := s.userRepository.FindByID(ctx, assigneeID, tenant.ID)
	if err != nil {
		return nil, err
	}

	owner, err := s.userRepository.FindByID(ctx, goal.OwnerID, tenant.ID)
	if err != nil {
		return nil, err
	}

	if assignee.ID != owner.ID {
		if owner.DepartmentID == "" || assignee.DepartmentID != owner.DepartmentID {
			return nil, pkgerrors.New(pkgerrors.ErrInvalidTransition,
				"assignee must be the goal owner or a member of the owner's department")
		}
	}

	now := time.Now().UTC()
	if err := s.goalRepository.Assign(ctx, goal.ID, assignee.ID, tenant.ID, now); err != nil {
		return nil, err
	}
	goal.AssigneeIDs = append(goal.AssigneeIDs, assignee.ID)

	ownerManages, err := s.ownerManagesAssignee(ctx, owner, assignee, tenant.ID)
	if err != nil {
		return nil, err
	}
	if !ownerManages && goal.Status != domain.StatusPendingApproval {
		previous := goal.Status
		goal.Status = domain.StatusPendingApproval
		goal.AssignedAt = &now
		goal.UpdatedAt = now
		if err := s.goalRepository.Update(ctx, goal); err != nil {
			return nil, err
		}
		s.publisher.GoalStatusChanged(ctx, goal, previous)
	}

	s.publisher.GoalAssigned(ctx, goal, assignee.ID)
	s.logger.Info("Goal assigned",
		logger.String("goal_id", goal.ID),
		logger.String("assignee_id", assignee.ID))

	return goal, nil
}

// UnassignGoal снимает назначение цели с пользователя
func (s *GoalService) UnassignGoal(ctx context.Context, goalID, assigneeID string) (*domain.Goal, error) {
	tenant, actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.goalRepository.FindByID(ctx, goalID, tenant.ID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMutable(goal); err != nil {
		return nil, err
	}
	if err := s.requireGoalMutator(actor, goal); err != nil {
		return nil, err
	}

	if !goal.IsAssignee(assigneeID) {
		return goal, nil
	}

	if err := s.goalRepository.Unassign(ctx, goal.ID, assigneeID, tenant.ID); err != nil {
		return nil, err
	}

	remaining := make([]string, 0, len(goal.AssigneeIDs))
	for _, id := range goal.AssigneeIDs {
		if id != assigneeID {
			remaining = append(remaining, id)
		}
	}
	goal.AssigneeIDs = remaining

	s.publisher.GoalUnassigned(ctx, goal, assigneeID)

	return goal, nil
}

// ApproveGoal утверждает цель из статуса PENDING_APPROVAL
// Утверждать может только менеджер отдела хотя бы одного из назначенных
func (s *GoalService) ApproveGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	tenant, actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.goalRepository.FindByID(ctx, goalID, tenant.ID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMutable(goal); err != nil {
		return nil, err
	}

	if goal.Status != domain.StatusPendingApproval {
		return nil, pkgerrors.New(pkgerrors.ErrInvalidTransition,
			"only a goal pending approval can be approved").
			WithDetails(fmt.Sprintf("goal is %s", goal.Status))
	}

	if !actor.IsAdmin() {
		managesAssignee := false
		for _, assigneeID := range goal.AssigneeIDs {
			assignee, err := s.userRepository.FindByID(ctx, assigneeID, tenant.ID)
			if err != nil {
				if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
					continue
				}
				return nil, err
			}
			if assignee.DepartmentID == "" {
				continue
			}
			isManager, err := s.authorizer.IsDepartmentManager(ctx, actor, assignee.DepartmentID)
			if err != nil {
				return nil, err
			}
			if isManager {
				managesAssignee = true
				break
			}
		}
		if !managesAssignee {
			return nil, permissionDenied("department manager of an assigned user required")
		}
	}

	previous := goal.Status
	goal.Status = domain.StatusApproved
	goal.UpdatedAt = time.Now().UTC()

	if err := s.goalRepository.Update(ctx, goal); err != nil {
		return nil, err
	}

	s.publisher.GoalStatusChanged(ctx, goal, previous)
	s.logger.Info("Goal approved",
		logger.String("goal_id", goal.ID),
		logger.String("approver_id", actor.ID))

	return goal, nil
}

// LockGoal блокирует цель от любых мутаций
func (s *GoalService) LockGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	tenant, actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.goalRepository.FindByID(ctx, goalID, tenant.ID)
	if err != nil {
		return nil, err
	}

	if err := s.requireGoalMutator(actor, goal); err != nil {
		return nil, err
	}

	if goal.Locked {
		return goal, nil
	}

	goal.Locked = true
	goal.UpdatedAt = time.Now().UTC()
	if err := s.goalRepository.Update(ctx, goal); err != nil {
		return nil, err
	}

	return goal, nil
}

// UnlockGoal снимает блокировку цели
// Разблокировать цель может только ее владелец
func (s *GoalService) UnlockGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	tenant, actor, err := s.requireActor(ctx)
	if err != nil {
		return nil, err
	}

	goal, err := s.goalRepository.FindByID(ctx, goalID, tenant.ID)
	if err != nil {
		return nil, err
	}

	if goal.OwnerID != actor.ID {
		return nil, permissionDenied("only the goal owner can unlock it")
	}

	if !goal.Locked {
		return goal, nil
	}

	goal.Locked = false
	goal.UpdatedAt = time.Now().UTC()
	if err := s.goalRepository.Update(ctx, goal); err != nil {
		return nil, err
	}

	return goal, nil
}

// requireActor извлекает тенант и пользователя для мутирующей операции
func (s *GoalService) requireActor(ctx context.Context) (*domain.Tenant, *domain.User, error) {
	tenant, err := RequireTenant(ctx)
	if err != nil {
		return nil, nil, err
	}
	actor := CurrentUser(ctx)
	if actor == nil {
		return nil, nil, pkgerrors.New(pkgerrors.ErrUnauthorized, "authenticated user required")
	}
	return tenant, actor, nil
}

// requireMutable отклоняет мутацию заблокированной цели
func (s *GoalService) requireMutable(goal *domain.Goal) error {
	if goal.Locked {
		return pkgerrors.New(pkgerrors.ErrInvalidTransition, "goal is locked").
			WithDetails("unlock the goal before modifying it")
	}
	return nil
}

// requireGoalMutator проверяет право изменять цель:
// владелец, назначенный пользователь или администратор тенанта
func (s *GoalService) requireGoalMutator(actor *domain.User, goal *domain.Goal) error {
	if actor.IsAdmin() || goal.OwnerID == actor.ID || goal.IsAssignee(actor.ID) {
		return nil
	}
	return permissionDenied("goal owner or assignee required")
}

// ownerManagesAssignee проверяет, что владелец цели является менеджером
// или ассистентом отдела назначаемого пользователя
func (s *GoalService) ownerManagesAssignee(ctx context.Context, owner, assignee *domain.User, tenantID string) (bool, error) {
	if assignee.DepartmentID == "" {
		return false, nil
	}
	department, err := s.departmentRepository.FindByID(ctx, assignee.DepartmentID, tenantID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return department.ManagerID == owner.ID || department.AssistantID == owner.ID, nil
}

// filterVisible отсеивает цели, невидимые текущему пользователю
func (s *GoalService) filterVisible(ctx context.Context, goals []*domain.Goal) ([]*domain.Goal, error) {
	viewer := CurrentUser(ctx)
	visible := make([]*domain.Goal, 0, len(goals))
	for _, goal := range goals {
		ok, err := s.authorizer.CanViewGoal(ctx, viewer, goal)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, goal)
		}
	}
	return visible, nil
}

// isLiveStatus сообщает, считается ли статус "живым" для дочерних целей
func isLiveStatus(status domain.GoalStatus) bool {
	return status == domain.StatusPublished || status == domain.StatusApproved
}

// isDowngradeStatus сообщает, является ли статус понижающим выходом
func isDowngradeStatus(status domain.GoalStatus) bool {
	return status == domain.StatusDraft || status == domain.StatusArchived || status == domain.StatusRetired
}
