package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mesa-system/internal/database/models"
)

const (
	CatalogItemsCacheKey = "catalog:items"
	LowStockCacheKey     = "catalog:low-stock"
	CacheTTLShort        = 5 * time.Minute
	CacheTTLMedium       = 30 * time.Minute
)

// Ledger is the order aggregate root. Every mutation runs in its own
// transaction with a row lock on the order, recomputes totals from the
// lines, and re-checks the totals invariant before committing.
type Ledger struct {
	db      *gorm.DB
	redis   *redis.Client
	stock   *StockAdjuster
	tables  *TableResolver
	taxRate decimal.Decimal
}

func NewLedger(db *gorm.DB, redisClient *redis.Client, taxRate decimal.Decimal) *Ledger {
	return &Ledger{
		db:      db,
		redis:   redisClient,
		stock:   NewStockAdjuster(db),
		tables:  NewTableResolver(db),
		taxRate: taxRate,
	}
}

func (l *Ledger) Stock() *StockAdjuster  { return l.stock }
func (l *Ledger) Tables() *TableResolver { return l.tables }

type CreateOrderParams struct {
	OrderType   string
	TableID     *int32
	CustomerID  *int64
	PeopleCount int32
	CardsCount  int32
	Notes       *string
}

func (l *Ledger) CreateOrder(ctx context.Context, params CreateOrderParams, actor Actor) (*models.Order, error) {
	switch params.OrderType {
	case models.OrderTypeDineIn, models.OrderTypeTakeout, models.OrderTypeDelivery:
	default:
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, params.OrderType)
	}

	if params.PeopleCount <= 0 {
		return nil, fmt.Errorf("%w: people count must be at least 1", ErrInvalidOrder)
	}
	if params.CardsCount < 0 {
		return nil, fmt.Errorf("%w: cards count cannot be negative", ErrInvalidOrder)
	}

	var tableID *int32
	if params.OrderType == models.OrderTypeDineIn {
		if params.TableID == nil {
			return nil, fmt.Errorf("%w: dine-in order requires a table", ErrInvalidOrder)
		}

		var table models.DiningTable
		if err := l.db.WithContext(ctx).
			Where("id = ? AND is_active = ?", *params.TableID, true).
			First(&table).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: table %d not found or inactive", ErrInvalidTable, *params.TableID)
			}
			return nil, err
		}

		status, err := l.tables.EffectiveStatus(ctx, table)
		if err != nil {
			return nil, err
		}
		if status == models.TableStatusOccupied {
			return nil, fmt.Errorf("%w: table %s is occupied by another active order",
				ErrInvalidOrder, table.TableNumber)
		}
		tableID = params.TableID
	}

	now := time.Now()
	order := models.Order{
		OrderNumber:    fmt.Sprintf("ORD-%s-%06d", now.Format("20060102"), now.UnixNano()%1000000),
		CustomerID:     params.CustomerID,
		CashierID:      actor.ID,
		OrderType:      params.OrderType,
		TableID:        tableID,
		PeopleCount:    params.PeopleCount,
		CardsCount:     params.CardsCount,
		Subtotal:       "0.00",
		DiscountType:   models.DiscountTypeNone,
		DiscountValue:  "0.00",
		DiscountAmount: "0.00",
		TaxAmount:      "0.00",
		TotalAmount:    "0.00",
		Status:         models.OrderStatusPending,
		Notes:          params.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := l.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	_ = publishOrderEvent(ctx, l.redis, OrderEvent{
		EventType:   EventOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		Timestamp:   now,
	})

	return &order, nil
}

// AddLine snapshots the item's current price onto a new line and recomputes
// totals. Before confirmation the stock check here is advisory only and the
// hard decrement happens at confirmation; after it, the line debits stock
// immediately.
func (l *Ledger) AddLine(ctx context.Context, orderID int64, itemID int32, sizeID *int32, quantity int32, instructions *string) (*models.Order, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOrder)
	}

	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := l.lockOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := ensureMutable(order); err != nil {
		tx.Rollback()
		return nil, err
	}

	var item models.Item
	if err := tx.Preload("Category").
		Where("id = ? AND is_available = ?", itemID, true).
		First(&item).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: item %d not found or unavailable", ErrInvalidOrder, itemID)
		}
		return nil, err
	}

	if item.StockQuantity < quantity {
		tx.Rollback()
		return nil, fmt.Errorf("%w: item %s has %d in stock, %d requested",
			ErrOutOfStock, item.ItemName, item.StockQuantity, quantity)
	}

	var override *models.ItemSize
	if sizeID != nil {
		var itemSize models.ItemSize
		if err := tx.Where("item_id = ? AND size_id = ?", itemID, *sizeID).
			First(&itemSize).Error; err != nil {
			tx.Rollback()
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: size %d has no price override for item %d",
					ErrInvalidPricing, *sizeID, itemID)
			}
			return nil, err
		}
		override = &itemSize
	}

	unitPrice, err := ResolveUnitPrice(item, override)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	kitchenTracked := item.Category != nil && item.Category.KitchenFlag
	lineStatus := models.KitchenStatusServed
	if kitchenTracked {
		lineStatus = models.KitchenStatusPending
	}

	now := time.Now()
	line := models.OrderItem{
		OrderID:             orderID,
		ItemID:              itemID,
		SizeID:              sizeID,
		Quantity:            quantity,
		UnitPrice:           formatAmount(unitPrice),
		TotalPrice:          formatAmount(unitPrice.Mul(decimal.NewFromInt32(quantity))),
		SpecialInstructions: instructions,
		KitchenTracked:      kitchenTracked,
		KitchenStatus:       lineStatus,
		CreatedAt:           now,
	}

	// Once confirmation has debited the order, a new line debits stock
	// right away instead of waiting for a decrement that already ran.
	if order.StockApplied {
		if err := l.stock.Decrement(tx, itemID, quantity); err != nil {
			tx.Rollback()
			return nil, err
		}
		line.AppliedQuantity = quantity
	}

	if err := tx.Create(&line).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order line: %w", err)
	}

	if err := l.recomputeTotals(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return l.GetOrder(ctx, orderID)
}

// RemoveLine deletes a line. Lines only come off while the order is still
// pending; after that the ticket has gone to the kitchen.
func (l *Ledger) RemoveLine(ctx context.Context, orderID, lineID int64) (*models.Order, error) {
	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := l.lockOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := ensureMutable(order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		tx.Rollback()
		return nil, fmt.Errorf("%w: lines can only be removed from a pending order", ErrOrderLocked)
	}

	result := tx.Where("id = ? AND order_id = ?", lineID, orderID).Delete(&models.OrderItem{})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: line %d not found on order %d", ErrInvalidOrder, lineID, orderID)
	}

	if err := l.recomputeTotals(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return l.GetOrder(ctx, orderID)
}

// UpdateLineQuantity recomputes the line total from the snapshotted unit
// price. The unit price itself is never rewritten.
func (l *Ledger) UpdateLineQuantity(ctx context.Context, orderID, lineID int64, quantity int32) (*models.Order, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOrder)
	}

	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := l.lockOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := ensureMutable(order); err != nil {
		tx.Rollback()
		return nil, err
	}

	var line models.OrderItem
	if err := tx.Where("id = ? AND order_id = ?", lineID, orderID).First(&line).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: line %d not found on order %d", ErrInvalidOrder, lineID, orderID)
		}
		return nil, err
	}

	// On a confirmed order the stock ledger already holds the applied
	// quantity; move it by the difference so the debit keeps matching the
	// line.
	if order.StockApplied {
		switch delta := quantity - line.AppliedQuantity; {
		case delta > 0:
			if err := l.stock.Decrement(tx, line.ItemID, delta); err != nil {
				tx.Rollback()
				return nil, err
			}
		case delta < 0:
			if err := l.stock.Restore(tx, line.ItemID, -delta); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		line.AppliedQuantity = quantity
	}

	line.Quantity = quantity
	unitPrice, err := parseAmount(line.UnitPrice)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	line.TotalPrice = formatAmount(unitPrice.Mul(decimal.NewFromInt32(quantity)))

	if err := tx.Save(&line).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := l.recomputeTotals(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return l.GetOrder(ctx, orderID)
}

func (l *Ledger) SetDiscount(ctx context.Context, orderID int64, discountType, discountValue string) (*models.Order, error) {
	value, err := decimal.NewFromString(discountValue)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed discount value %q", ErrInvalidDiscount, discountValue)
	}

	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := l.lockOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := ensureMutable(order); err != nil {
		tx.Rollback()
		return nil, err
	}

	// Validate against the current subtotal before persisting anything.
	subtotal, err := parseAmount(order.Subtotal)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := CalculateDiscount(subtotal, discountType, value); err != nil {
		tx.Rollback()
		return nil, err
	}

	order.DiscountType = discountType
	order.DiscountValue = formatAmount(value)

	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"discount_type":  order.DiscountType,
			"discount_value": order.DiscountValue,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := l.recomputeTotals(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return l.GetOrder(ctx, orderID)
}

// Confirm moves a pending order to ready and decrements stock for every
// line, all-or-nothing. Re-confirming a confirmed order is a no-op, never a
// double decrement.
func (l *Ledger) Confirm(ctx context.Context, orderID int64, actor Actor) (*models.Order, error) {
	return l.advance(ctx, orderID, models.OrderStatusReady, EventOrderConfirmed, actor)
}

// Complete finishes an order. A ready order completes directly; a pending
// order is confirmed (stock applied) and completed in one step, the
// takeout/delivery flow with no kitchen hold.
func (l *Ledger) Complete(ctx context.Context, orderID int64, actor Actor) (*models.Order, error) {
	return l.advance(ctx, orderID, models.OrderStatusCompleted, EventOrderCompleted, actor)
}

func (l *Ledger) advance(ctx context.Context, orderID int64, target, eventType string, actor Actor) (*models.Order, error) {
	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := l.lockOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if order.Status == target {
		tx.Rollback()
		return l.GetOrder(ctx, orderID)
	}
	if !canTransition(order.Status, target) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order cannot go from %s to %s",
			ErrInvalidTransition, order.Status, target)
	}

	var lines []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(lines) == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order %d has no lines", ErrInvalidOrder, orderID)
	}

	if !order.StockApplied {
		for _, line := range lines {
			if err := l.stock.Decrement(tx, line.ItemID, line.Quantity); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		// Record what was debited per line so later mutations and
		// cancellation compensate against the applied amounts, not the
		// live quantities.
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", orderID).
			UpdateColumn("applied_quantity", gorm.Expr("quantity")).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		order.StockApplied = true
	}

	order.Status = target
	order.UpdatedAt = time.Now()

	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":        order.Status,
			"stock_applied": order.StockApplied,
			"updated_at":    order.UpdatedAt,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	l.invalidateCatalogCaches(ctx)

	_ = publishOrderEvent(ctx, l.redis, OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		Timestamp:   order.UpdatedAt,
	})

	return l.GetOrder(ctx, orderID)
}

func (l *Ledger) MarkPaid(ctx context.Context, orderID int64, paymentMethodID int32, actor Actor) (*models.Order, error) {
	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := l.lockOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if order.Status != models.OrderStatusReady && order.Status != models.OrderStatusCompleted {
		tx.Rollback()
		return nil, fmt.Errorf("%w: only a ready or completed order can be paid", ErrInvalidTransition)
	}
	if order.PaidAt != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order is already paid", ErrInvalidTransition)
	}

	var method models.PaymentMethod
	if err := tx.Where("id = ? AND is_active = ?", paymentMethodID, true).
		First(&method).Error; err != nil {
		tx.Rollback()
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: payment method %d not found or inactive", ErrInvalidOrder, paymentMethodID)
		}
		return nil, err
	}

	now := time.Now()
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_method_id": method.ID,
			"paid_at":           now,
			"updated_at":        now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	_ = publishOrderEvent(ctx, l.redis, OrderEvent{
		EventType:   EventOrderPaid,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		Timestamp:   now,
	})

	return l.GetOrder(ctx, orderID)
}

// Cancel is legal from pending and ready. If confirmation already
// decremented stock, each line's applied quantity is restored as a
// compensating action.
func (l *Ledger) Cancel(ctx context.Context, orderID int64, actor Actor) (*models.Order, error) {
	tx := l.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order, err := l.lockOrder(tx, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if !canTransition(order.Status, models.OrderStatusCancelled) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order cannot go from %s to %s",
			ErrInvalidTransition, order.Status, models.OrderStatusCancelled)
	}

	if order.StockApplied {
		var lines []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&lines).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		// Restore what was actually debited, which may differ from the
		// live quantity if lines changed after confirmation.
		for _, line := range lines {
			if line.AppliedQuantity <= 0 {
				continue
			}
			if err := l.stock.Restore(tx, line.ItemID, line.AppliedQuantity); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", orderID).
			UpdateColumn("applied_quantity", 0).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now()
	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":        models.OrderStatusCancelled,
			"stock_applied": false,
			"updated_at":    now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	l.invalidateCatalogCaches(ctx)

	_ = publishOrderEvent(ctx, l.redis, OrderEvent{
		EventType:   EventOrderCancelled,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		TotalAmount: order.TotalAmount,
		Status:      models.OrderStatusCancelled,
		Timestamp:   now,
	})

	return l.GetOrder(ctx, orderID)
}

// --- Queries ---

func (l *Ledger) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := l.db.WithContext(ctx).
		Preload("OrderItems.Item").
		Preload("OrderItems.Size").
		Preload("Table").
		Preload("PaymentMethod").
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: order %d not found", ErrInvalidOrder, orderID)
		}
		return nil, err
	}
	return &order, nil
}

type ListOrdersFilter struct {
	Status    *string
	OrderType *string
	TableID   *int32
	CashierID *int64
	Page      int
	PageSize  int
}

func (l *Ledger) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := l.db.WithContext(ctx).Model(&models.Order{}).
		Preload("OrderItems.Item").
		Preload("Table").
		Preload("PaymentMethod")

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OrderType != nil {
		query = query.Where("order_type = ?", *filter.OrderType)
	}
	if filter.TableID != nil {
		query = query.Where("table_id = ?", *filter.TableID)
	}
	if filter.CashierID != nil {
		query = query.Where("cashier_id = ?", *filter.CashierID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// --- Internals ---

var orderTransitions = map[string][]string{
	models.OrderStatusPending: {models.OrderStatusReady, models.OrderStatusCompleted, models.OrderStatusCancelled},
	models.OrderStatusReady:   {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

func canTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ensureMutable(order *models.Order) error {
	if order.Status == models.OrderStatusCompleted || order.Status == models.OrderStatusCancelled {
		return fmt.Errorf("%w: order %s is %s", ErrOrderLocked, order.OrderNumber, order.Status)
	}
	return nil
}

func (l *Ledger) lockOrder(tx *gorm.DB, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: order %d not found", ErrInvalidOrder, orderID)
		}
		return nil, err
	}
	return &order, nil
}

// recomputeTotals re-derives subtotal, discount, tax and total from the
// lines and refuses to persist anything that breaks the totals invariant.
func (l *Ledger) recomputeTotals(tx *gorm.DB, order *models.Order) error {
	var lines []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&lines).Error; err != nil {
		return err
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		lineTotal, err := parseAmount(line.TotalPrice)
		if err != nil {
			return err
		}
		unitPrice, err := parseAmount(line.UnitPrice)
		if err != nil {
			return err
		}
		expected := unitPrice.Mul(decimal.NewFromInt32(line.Quantity)).Round(2)
		if !lineTotal.Equal(expected) {
			return fmt.Errorf("%w: line %d total %s does not match %s x %d",
				ErrTotalsInvariant, line.ID, line.TotalPrice, line.UnitPrice, line.Quantity)
		}
		subtotal = subtotal.Add(lineTotal)
	}

	discountValue, err := parseAmount(order.DiscountValue)
	if err != nil {
		return err
	}
	discountAmount, err := CalculateDiscount(subtotal, order.DiscountType, discountValue)
	if err != nil {
		return err
	}

	taxAmount := subtotal.Sub(discountAmount).Mul(l.taxRate).Round(2)
	totalAmount := subtotal.Sub(discountAmount).Add(taxAmount).Round(2)

	order.Subtotal = formatAmount(subtotal)
	order.DiscountAmount = formatAmount(discountAmount)
	order.TaxAmount = formatAmount(taxAmount)
	order.TotalAmount = formatAmount(totalAmount)

	// Re-check the invariant on the persisted representations; a mismatch
	// here is a programming error and must abort the mutation.
	persistedSubtotal, err := parseAmount(order.Subtotal)
	if err != nil {
		return err
	}
	persistedDiscount, err := parseAmount(order.DiscountAmount)
	if err != nil {
		return err
	}
	persistedTax, err := parseAmount(order.TaxAmount)
	if err != nil {
		return err
	}
	persistedTotal, err := parseAmount(order.TotalAmount)
	if err != nil {
		return err
	}
	check := persistedSubtotal.Sub(persistedDiscount).Add(persistedTax).Round(2)
	if !persistedTotal.Equal(check) {
		return fmt.Errorf("%w: total %s != subtotal %s - discount %s + tax %s",
			ErrTotalsInvariant, order.TotalAmount, order.Subtotal, order.DiscountAmount, order.TaxAmount)
	}

	// The line set changed, so the derived kitchen aggregate may have too.
	order.KitchenStatus = AggregateKitchenStatus(lines)

	return tx.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"subtotal":        order.Subtotal,
			"discount_amount": order.DiscountAmount,
			"tax_amount":      order.TaxAmount,
			"total_amount":    order.TotalAmount,
			"kitchen_status":  order.KitchenStatus,
			"updated_at":      time.Now(),
		}).Error
}

func (l *Ledger) invalidateCatalogCaches(ctx context.Context) {
	if l.redis == nil {
		return
	}
	_ = l.redis.Del(ctx, CatalogItemsCacheKey, LowStockCacheKey)
}
