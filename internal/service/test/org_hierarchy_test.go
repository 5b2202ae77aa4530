package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/internal/service"
	"PerfPulsePlatform/pkg/errors"
	"PerfPulsePlatform/pkg/logger"
	"PerfPulsePlatform/pkg/mocks"
)

type hierarchyFixture struct {
	departments *mocks.MockDepartmentRepository
	users       *mocks.MockUserRepository
	guard       service.OrgHierarchyGuard
}

func newHierarchyFixture() *hierarchyFixture {
	departments := &mocks.MockDepartmentRepository{}
	users := &mocks.MockUserRepository{}
	return &hierarchyFixture{
		departments: departments,
		users:       users,
		guard:       service.NewHierarchyGuard(departments, users, logger.NewNop()),
	}
}

func (f *hierarchyFixture) department(dept *domain.Department) {
	f.departments.On("FindByID", mock.Anything, dept.ID, dept.TenantID).Return(dept, nil)
}

func (f *hierarchyFixture) user(user *domain.User) {
	f.users.On("FindByID", mock.Anything, user.ID, user.TenantID).Return(user, nil)
}

func TestSetDepartmentParent_Valid(t *testing.T) {
	f := newHierarchyFixture()

	f.department(&domain.Department{ID: "d-child", TenantID: "t-1"})
	f.department(&domain.Department{ID: "d-parent", TenantID: "t-1"})
	f.departments.On("Update", mock.Anything, mock.MatchedBy(func(dept *domain.Department) bool {
		return dept.ID == "d-child" && dept.ParentID == "d-parent"
	})).Return(nil)

	err := f.guard.SetDepartmentParent(context.Background(), "d-child", "d-parent", "t-1")
	require.NoError(t, err)
}

func TestSetDepartmentParent_SelfParentRejected(t *testing.T) {
	f := newHierarchyFixture()

	f.department(&domain.Department{ID: "d-1", TenantID: "t-1"})

	err := f.guard.SetDepartmentParent(context.Background(), "d-1", "d-1", "t-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	f.departments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSetDepartmentParent_AncestorCycleRejected(t *testing.T) {
	f := newHierarchyFixture()

	// d-top -> d-mid -> d-bottom; попытка сделать d-bottom родителем d-top
	f.department(&domain.Department{ID: "d-top", TenantID: "t-1"})
	f.department(&domain.Department{ID: "d-mid", TenantID: "t-1", ParentID: "d-top"})
	f.department(&domain.Department{ID: "d-bottom", TenantID: "t-1", ParentID: "d-mid"})

	err := f.guard.SetDepartmentParent(context.Background(), "d-top", "d-bottom", "t-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	f.departments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSetDepartmentParent_TerminatesOnCorruptCycle(t *testing.T) {
	f := newHierarchyFixture()

	// Существующий цикл d-a <-> d-b не должен зациклить проверку
	f.department(&domain.Department{ID: "d-new", TenantID: "t-1"})
	f.department(&domain.Department{ID: "d-a", TenantID: "t-1", ParentID: "d-b"})
	f.department(&domain.Department{ID: "d-b", TenantID: "t-1", ParentID: "d-a"})
	f.departments.On("Update", mock.Anything, mock.Anything).Return(nil)

	err := f.guard.SetDepartmentParent(context.Background(), "d-new", "d-a", "t-1")
	require.NoError(t, err)
}

func TestSetDepartmentParent_UnknownParentRejected(t *testing.T) {
	f := newHierarchyFixture()

	// Несуществующий (или чужого тенанта) родитель не должен быть привязан
	f.department(&domain.Department{ID: "d-child", TenantID: "t-1"})
	f.departments.On("FindByID", mock.Anything, "d-ghost", "t-1").
		Return(nil, errors.New(errors.ErrNotFound, "department not found"))

	err := f.guard.SetDepartmentParent(context.Background(), "d-child", "d-ghost", "t-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	f.departments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSetDepartmentParent_DetachAllowed(t *testing.T) {
	f := newHierarchyFixture()

	f.department(&domain.Department{ID: "d-1", TenantID: "t-1", ParentID: "d-parent"})
	f.departments.On("Update", mock.Anything, mock.MatchedBy(func(dept *domain.Department) bool {
		return dept.ID == "d-1" && dept.ParentID == ""
	})).Return(nil)

	err := f.guard.SetDepartmentParent(context.Background(), "d-1", "", "t-1")
	require.NoError(t, err)
}

func TestSetDepartmentManager_Valid(t *testing.T) {
	f := newHierarchyFixture()

	f.department(&domain.Department{ID: "d-1", TenantID: "t-1"})
	f.users.On("ListByDepartment", mock.Anything, "d-1", "t-1").
		Return([]*domain.User{{ID: "u-member", TenantID: "t-1"}}, nil)
	f.departments.On("ListByParent", mock.Anything, "d-1", "t-1").Return([]*domain.Department{}, nil)
	f.user(&domain.User{ID: "u-candidate", TenantID: "t-1"})
	f.user(&domain.User{ID: "u-member", TenantID: "t-1"})
	f.departments.On("Update", mock.Anything, mock.MatchedBy(func(dept *domain.Department) bool {
		return dept.ID == "d-1" && dept.ManagerID == "u-candidate"
	})).Return(nil)

	err := f.guard.SetDepartmentManager(context.Background(), "d-1", "u-candidate", "t-1")
	require.NoError(t, err)
}

func TestSetDepartmentManager_CandidateReportsToMemberRejected(t *testing.T) {
	f := newHierarchyFixture()

	// Кандидат подчиняется участнику отдела: назначение создало бы цикл
	f.department(&domain.Department{ID: "d-1", TenantID: "t-1"})
	f.users.On("ListByDepartment", mock.Anything, "d-1", "t-1").
		Return([]*domain.User{{ID: "u-member", TenantID: "t-1"}}, nil)
	f.departments.On("ListByParent", mock.Anything, "d-1", "t-1").Return([]*domain.Department{}, nil)
	f.user(&domain.User{ID: "u-candidate", TenantID: "t-1", ManagerID: "u-middle"})
	f.user(&domain.User{ID: "u-middle", TenantID: "t-1", ManagerID: "u-member"})
	f.user(&domain.User{ID: "u-member", TenantID: "t-1"})

	err := f.guard.SetDepartmentManager(context.Background(), "d-1", "u-candidate", "t-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	f.departments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSetDepartmentManager_MemberReportsToCandidateRejected(t *testing.T) {
	f := newHierarchyFixture()

	// Участник подотдела транзитивно подчиняется кандидату
	f.department(&domain.Department{ID: "d-1", TenantID: "t-1"})
	f.users.On("ListByDepartment", mock.Anything, "d-1", "t-1").Return([]*domain.User{}, nil)
	f.departments.On("ListByParent", mock.Anything, "d-1", "t-1").
		Return([]*domain.Department{{ID: "d-sub", TenantID: "t-1", ParentID: "d-1"}}, nil)
	f.users.On("ListByDepartment", mock.Anything, "d-sub", "t-1").
		Return([]*domain.User{{ID: "u-x", TenantID: "t-1", ManagerID: "u-middle"}}, nil)
	f.departments.On("ListByParent", mock.Anything, "d-sub", "t-1").Return([]*domain.Department{}, nil)
	f.user(&domain.User{ID: "u-candidate", TenantID: "t-1"})
	f.user(&domain.User{ID: "u-x", TenantID: "t-1", ManagerID: "u-middle"})
	f.user(&domain.User{ID: "u-middle", TenantID: "t-1", ManagerID: "u-candidate"})

	err := f.guard.SetDepartmentManager(context.Background(), "d-1", "u-candidate", "t-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	f.departments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSetDepartmentManager_UnknownManagerRejected(t *testing.T) {
	f := newHierarchyFixture()

	// Несуществующий кандидат отклоняется до обхода цепочек подчинения
	f.department(&domain.Department{ID: "d-1", TenantID: "t-1"})
	f.users.On("FindByID", mock.Anything, "u-ghost", "t-1").
		Return(nil, errors.New(errors.ErrNotFound, "user not found"))

	err := f.guard.SetDepartmentManager(context.Background(), "d-1", "u-ghost", "t-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	f.departments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "ListByDepartment", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetDepartmentManager_TerminatesOnCorruptManagerChain(t *testing.T) {
	f := newHierarchyFixture()

	// Цикл u-a <-> u-b в цепочке менеджеров не должен зациклить проверку
	f.department(&domain.Department{ID: "d-1", TenantID: "t-1"})
	f.users.On("ListByDepartment", mock.Anything, "d-1", "t-1").
		Return([]*domain.User{{ID: "u-a", TenantID: "t-1", ManagerID: "u-b"}}, nil)
	f.departments.On("ListByParent", mock.Anything, "d-1", "t-1").Return([]*domain.Department{}, nil)
	f.user(&domain.User{ID: "u-candidate", TenantID: "t-1"})
	f.user(&domain.User{ID: "u-a", TenantID: "t-1", ManagerID: "u-b"})
	f.user(&domain.User{ID: "u-b", TenantID: "t-1", ManagerID: "u-a"})
	f.departments.On("Update", mock.Anything, mock.Anything).Return(nil)

	err := f.guard.SetDepartmentManager(context.Background(), "d-1", "u-candidate", "t-1")
	require.NoError(t, err)
}

func TestSetDepartmentManager_RemoveManagerSkipsChecks(t *testing.T) {
	f := newHierarchyFixture()

	f.department(&domain.Department{ID: "d-1", TenantID: "t-1", ManagerID: "u-old"})
	f.departments.On("Update", mock.Anything, mock.MatchedBy(func(dept *domain.Department) bool {
		return dept.ID == "d-1" && dept.ManagerID == ""
	})).Return(nil)

	err := f.guard.SetDepartmentManager(context.Background(), "d-1", "", "t-1")
	require.NoError(t, err)
	f.users.AssertNotCalled(t, "ListByDepartment", mock.Anything, mock.Anything, mock.Anything)
}
