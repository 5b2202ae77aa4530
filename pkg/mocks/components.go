package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"PerfPulsePlatform/internal/domain"
)

// MockEventPublisher имитирует events.Publisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) GoalStatusChanged(ctx context.Context, goal *domain.Goal, previous domain.GoalStatus) {
	m.Called(ctx, goal, previous)
}

func (m *MockEventPublisher) GoalAssigned(ctx context.Context, goal *domain.Goal, userID string) {
	m.Called(ctx, goal, userID)
}

func (m *MockEventPublisher) GoalUnassigned(ctx context.Context, goal *domain.Goal, userID string) {
	m.Called(ctx, goal, userID)
}
