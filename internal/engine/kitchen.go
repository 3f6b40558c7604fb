package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mesa-system/internal/database/models"
)

// KitchenCoordinator runs the per-line preparation state machine and keeps
// the order-level aggregate in sync. Line transitions are independent of
// payment state: kitchen staff advance tickets while a cashier mutates
// totals on a different lock.
type KitchenCoordinator struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewKitchenCoordinator(db *gorm.DB, redisClient *redis.Client) *KitchenCoordinator {
	return &KitchenCoordinator{db: db, redis: redisClient}
}

var kitchenTransitions = map[string]string{
	models.KitchenStatusPending:   models.KitchenStatusPreparing,
	models.KitchenStatusPreparing: models.KitchenStatusReady,
	models.KitchenStatusReady:     models.KitchenStatusServed,
}

// AggregateKitchenStatus derives the order-level kitchen status from its
// tracked lines. Nil means no line participates in kitchen preparation.
// Any pending line keeps the order pending; otherwise one preparing line
// keeps it preparing; ready and served lines count as done.
func AggregateKitchenStatus(lines []models.OrderItem) *string {
	anyTracked := false
	anyPending := false
	anyPreparing := false

	for _, line := range lines {
		if !line.KitchenTracked {
			continue
		}
		anyTracked = true
		switch line.KitchenStatus {
		case models.KitchenStatusPending:
			anyPending = true
		case models.KitchenStatusPreparing:
			anyPreparing = true
		}
	}

	if !anyTracked {
		return nil
	}

	status := models.KitchenStatusReady
	if anyPending {
		status = models.KitchenStatusPending
	} else if anyPreparing {
		status = models.KitchenStatusPreparing
	}
	return &status
}

// AdvanceLine moves one tracked line to the next preparation state and
// rewrites the order aggregate inside the same transaction, so the stored
// aggregate can never disagree with the derivation.
func (k *KitchenCoordinator) AdvanceLine(ctx context.Context, orderID, lineID int64, next string, actor Actor) (*models.OrderItem, error) {
	var updated models.OrderItem

	tx := k.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).First(&order).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: order %d not found", ErrInvalidOrder, orderID)
		}
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order %d is cancelled", ErrOrderLocked, orderID)
	}

	var line models.OrderItem
	if err := tx.Where("id = ? AND order_id = ?", lineID, orderID).First(&line).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: line %d not found on order %d", ErrInvalidOrder, lineID, orderID)
		}
		return nil, err
	}

	if !line.KitchenTracked {
		tx.Rollback()
		return nil, fmt.Errorf("%w: line %d does not require kitchen preparation", ErrInvalidTransition, lineID)
	}

	if kitchenTransitions[line.KitchenStatus] != next {
		tx.Rollback()
		return nil, fmt.Errorf("%w: kitchen line cannot go from %s to %s",
			ErrInvalidTransition, line.KitchenStatus, next)
	}

	now := time.Now()
	line.KitchenStatus = next
	switch next {
	case models.KitchenStatusPreparing:
		line.KitchenStartedAt = &now
	case models.KitchenStatusReady:
		line.KitchenCompletedAt = &now
	}

	if err := tx.Save(&line).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var lines []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	aggregate := AggregateKitchenStatus(lines)
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"kitchen_status": aggregate,
			"updated_at":     now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	updated = line
	_ = publishOrderEvent(ctx, k.redis, OrderEvent{
		EventType:     EventKitchenUpdated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		TotalAmount:   order.TotalAmount,
		Status:        order.Status,
		KitchenStatus: aggregate,
		Timestamp:     now,
	})

	return &updated, nil
}

// Ticket is one kitchen display entry: an active order plus its tracked
// lines that still need work.
type Ticket struct {
	Order models.Order       `json:"order"`
	Lines []models.OrderItem `json:"lines"`
}

// ListTickets returns kitchen work for non-terminal orders, oldest first.
func (k *KitchenCoordinator) ListTickets(ctx context.Context) ([]Ticket, error) {
	var orders []models.Order
	if err := k.db.WithContext(ctx).
		Where("status IN ?", []string{models.OrderStatusPending, models.OrderStatusReady}).
		Preload("OrderItems", "kitchen_tracked = ? AND kitchen_status <> ?",
			true, models.KitchenStatusServed).
		Preload("OrderItems.Item").
		Order("created_at asc").
		Find(&orders).Error; err != nil {
		return nil, err
	}

	tickets := make([]Ticket, 0, len(orders))
	for _, order := range orders {
		if len(order.OrderItems) == 0 {
			continue
		}
		lines := order.OrderItems
		order.OrderItems = nil
		tickets = append(tickets, Ticket{Order: order, Lines: lines})
	}
	return tickets, nil
}
