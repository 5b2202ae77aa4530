package events

import (
	"context"
	"encoding/json"
	"time"

	"PerfPulsePlatform/internal/domain"
	"PerfPulsePlatform/pkg/logger"
	"PerfPulsePlatform/pkg/rabbitmq"
)

// Ключи маршрутизации событий жизненного цикла целей
const (
	RoutingKeyGoalStatusChanged = "goal.status_changed"
	RoutingKeyGoalAssigned      = "goal.assigned"
	RoutingKeyGoalUnassigned    = "goal.unassigned"
)

// Publisher публикует доменные события жизненного цикла целей
// Публикация не участвует в транзакции: сбой брокера логируется,
// но не откатывает уже выполненную операцию
type Publisher interface {
	GoalStatusChanged(ctx context.Context, goal *domain.Goal, previous domain.GoalStatus)
	GoalAssigned(ctx context.Context, goal *domain.Goal, userID string)
	GoalUnassigned(ctx context.Context, goal *domain.Goal, userID string)
}

// GoalStatusChangedEvent тело события смены статуса цели
type GoalStatusChangedEvent struct {
	GoalID         string    `json:"goal_id"`
	TenantID       string    `json:"tenant_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// GoalAssignmentEvent тело события назначения или снятия назначения
type GoalAssignmentEvent struct {
	GoalID     string    `json:"goal_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RabbitMQPublisher публикует события в RabbitMQ
type RabbitMQPublisher struct {
	producer *rabbitmq.Producer
	logger   logger.Logger
}

// NewRabbitMQPublisher создает нового публикатора событий
func NewRabbitMQPublisher(producer *rabbitmq.Producer, log logger.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{
		producer: producer,
		logger:   log,
	}
}

func (p *RabbitMQPublisher) GoalStatusChanged(ctx context.Context, goal *domain.Goal, previous domain.GoalStatus) {
	p.publish(ctx, RoutingKeyGoalStatusChanged, &GoalStatusChangedEvent{
		GoalID:         goal.ID,
		TenantID:       goal.TenantID,
		PreviousStatus: string(previous),
		NewStatus:      string(goal.Status),
		OccurredAt:     time.Now().UTC(),
	})
}

func (p *RabbitMQPublisher) GoalAssigned(ctx context.Context, goal *domain.Goal, userID string) {
	p.publish(ctx, RoutingKeyGoalAssigned, &GoalAssignmentEvent{
		GoalID:     goal.ID,
		TenantID:   goal.TenantID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *RabbitMQPublisher) GoalUnassigned(ctx context.Context, goal *domain.Goal, userID string) {
	p.publish(ctx, RoutingKeyGoalUnassigned, &GoalAssignmentEvent{
		GoalID:     goal.ID,
		TenantID:   goal.TenantID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, event interface{}) {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			logger.String("routing_key", routingKey),
			logger.Error(err))
		return
	}

	if err := p.producer.Publish(ctx, body, rabbitmq.WithRoutingKey(routingKey)); err != nil {
		p.logger.Error("Failed to publish event",
			logger.String("routing_key", routingKey),
			logger.Error(err))
	}
}

// NopPublisher отбрасывает события, используется когда брокер не сконфигурирован
type NopPublisher struct{}

func (NopPublisher) GoalStatusChanged(ctx context.Context, goal *domain.Goal, previous domain.GoalStatus) {
}
func (NopPublisher) GoalAssigned(ctx context.Context, goal *domain.Goal, userID string)   {}
func (NopPublisher) GoalUnassigned(ctx context.Context, goal *domain.Goal, userID string) {}
