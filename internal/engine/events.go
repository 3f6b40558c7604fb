package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"mesa-system/internal/database/models"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderCompleted = "order.completed"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
	EventKitchenUpdated = "kitchen.updated"

	EventChannelPrefix = "pos:events:"
	EventChannelAll    = "pos:events:all"
)

type OrderEvent struct {
	EventType     string        `json:"event_type"`
	OrderID       int64         `json:"order_id"`
	OrderNumber   string        `json:"order_number"`
	ActorID       int64         `json:"actor_id"`
	ActorRole     string        `json:"actor_role"`
	TotalAmount   string        `json:"total_amount"`
	Status        string        `json:"status"`
	KitchenStatus *string       `json:"kitchen_status,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	OrderData     *models.Order `json:"order_data,omitempty"`
}

func publishOrderEvent(ctx context.Context, rdb *redis.Client, event OrderEvent) error {
	if rdb == nil {
		return nil
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := EventChannelPrefix + event.EventType
	if err := rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := rdb.Publish(ctx, EventChannelAll, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}
