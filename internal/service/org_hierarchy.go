package service

import (
	"context"

	"PerfPulsePlatform/internal/repository"
	pkgerrors "PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/logger"
)

// OrgHierarchyGuard проверяет и применяет изменения связей оргструктуры
// Обе проверки циклов выполняются итеративно с множеством посещенных id,
// поэтому завершаются даже при уже испорченных данных в графе
type OrgHierarchyGuard interface {
	SetDepartmentParent(ctx context.Context, departmentID, parentID, tenantID string) error
	SetDepartmentManager(ctx context.Context, departmentID, managerID, tenantID string) error
}

// HierarchyGuard реализация OrgHierarchyGuard
type HierarchyGuard struct {
	departmentRepository repository.DepartmentRepository
	userRepository       repository.UserRepository
	logger               logger.Logger
}

// NewHierarchyGuard создает новый страж оргструктуры
func NewHierarchyGuard(
	departmentRepository repository.DepartmentRepository,
	userRepository repository.UserRepository,
	log logger.Logger,
) OrgHierarchyGuard {
	return &HierarchyGuard{
		departmentRepository: departmentRepository,
		userRepository:       userRepository,
		logger:               log,
	}
}

// SetDepartmentParent устанавливает родительский отдел после проверки цикла
// Отклоняет самородительство и любую связь, делающую отдел своим предком.
// Пустой parentID отвязывает отдел от родителя
func (g *HierarchyGuard) SetDepartmentParent(ctx context.Context, departmentID, parentID, tenantID string) error {
	department, err := g.departmentRepository.FindByID(ctx, departmentID, tenantID)
	if err != nil {
		return err
	}

	if parentID != "" {
		if parentID == departmentID {
			return hierarchyRejected("department cannot be its own parent")
		}

		// Кандидат в родители обязан существовать в рамках тенанта:
		// NotFound здесь (в том числе для чужого тенанта) уходит вызывающему
		parent, err := g.departmentRepository.FindByID(ctx, parentID, tenantID)
		if err != nil {
			return err
		}

		// Подъем по цепочке родителей от кандидата: встреча departmentID означает цикл
		// Оборванные промежуточные звенья цепочки только прерывают подъем
		visited := map[string]bool{parentID: true}
		currentID := parent.ParentID
		for currentID != "" && !visited[currentID] {
			visited[currentID] = true

			if currentID == departmentID {
				return hierarchyRejected("department cannot become its own ancestor")
			}

			current, err := g.departmentRepository.FindByID(ctx, currentID, tenantID)
			if err != nil {
				if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
					break
				}
				return err
			}
			currentID = current.ParentID
		}
	}

	department.ParentID = parentID
	if err := g.departmentRepository.Update(ctx, department); err != nil {
		return err
	}

	g.logger.Info("Department parent updated",
		logger.String("department_id", departmentID),
		logger.String("parent_id", parentID))

	return nil
}

// SetDepartmentManager устанавливает менеджера отдела после проверки циклов
// в цепочках подчинения. Отклоняется кандидат, который уже управляется кем-то
// из отдела (включая подотделы) или уже управляет кем-то из отдела.
// Пустой managerID снимает менеджера
func (g *HierarchyGuard) SetDepartmentManager(ctx context.Context, departmentID, managerID, tenantID string) error {
	department, err := g.departmentRepository.FindByID(ctx, departmentID, tenantID)
	if err != nil {
		return err
	}

	if managerID != "" {
		// Кандидат в менеджеры обязан существовать в рамках тенанта
		if _, err := g.userRepository.FindByID(ctx, managerID, tenantID); err != nil {
			return err
		}

		members, err := g.collectMembers(ctx, departmentID, tenantID)
		if err != nil {
			return err
		}

		// Кандидат не должен подчиняться никому из отдела
		candidateChain, err := g.managerChain(ctx, managerID, tenantID)
		if err != nil {
			return err
		}
		for _, ancestorID := range candidateChain {
			if members[ancestorID] {
				return hierarchyRejected("manager candidate reports to a member of the department")
			}
		}

		// Никто из отдела не должен подчиняться кандидату
		for memberID := range members {
			if memberID == managerID {
				continue
			}
			chain, err := g.managerChain(ctx, memberID, tenantID)
			if err != nil {
				return err
			}
			for _, ancestorID := range chain {
				if ancestorID == managerID {
					return hierarchyRejected("manager candidate already manages a member of the department")
				}
			}
		}
	}

	department.ManagerID = managerID
	if err := g.departmentRepository.Update(ctx, department); err != nil {
		return err
	}

	g.logger.Info("Department manager updated",
		logger.String("department_id", departmentID),
		logger.String("manager_id", managerID))

	return nil
}

// collectMembers собирает id участников отдела и всех его подотделов
// Обход подотделов итеративный, с защитой от циклов в дереве отделов
func (g *HierarchyGuard) collectMembers(ctx context.Context, departmentID, tenantID string) (map[string]bool, error) {
	members := map[string]bool{}
	visitedDepartments := map[string]bool{}
	queue := []string{departmentID}

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		if visitedDepartments[currentID] {
			continue
		}
		visitedDepartments[currentID] = true

		users, err := g.userRepository.ListByDepartment(ctx, currentID, tenantID)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			members[user.ID] = true
		}

		children, err := g.departmentRepository.ListByParent(ctx, currentID, tenantID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			queue = append(queue, child.ID)
		}
	}

	return members, nil
}

// managerChain возвращает id всех руководителей пользователя снизу вверх
// Цепочка обрывается на отсутствующем пользователе или при повторе id
func (g *HierarchyGuard) managerChain(ctx context.Context, userID, tenantID string) ([]string, error) {
	var chain []string
	visited := map[string]bool{userID: true}

	user, err := g.userRepository.FindByID(ctx, userID, tenantID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
			return chain, nil
		}
		return nil, err
	}

	currentID := user.ManagerID
	for currentID != "" && !visited[currentID] {
		visited[currentID] = true
		chain = append(chain, currentID)

		manager, err := g.userRepository.FindByID(ctx, currentID, tenantID)
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.ErrNotFound) {
				break
			}
			return nil, err
		}
		currentID = manager.ManagerID
	}

	return chain, nil
}

// hierarchyRejected формирует ошибку отклоненной связи оргструктуры
func hierarchyRejected(reason string) error {
	return pkgerrors.New(pkgerrors.ErrInvalidTransition, "hierarchy link rejected").WithDetails(reason)
}
