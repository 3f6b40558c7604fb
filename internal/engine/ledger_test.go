package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"mesa-system/internal/database/models"
)

// assertTotalsInvariant checks total = subtotal - discount + tax on the
// persisted string amounts.
func assertTotalsInvariant(t *testing.T, order *models.Order) {
	t.Helper()
	subtotal, err := parseAmount(order.Subtotal)
	require.NoError(t, err)
	discount, err := parseAmount(order.DiscountAmount)
	require.NoError(t, err)
	tax, err := parseAmount(order.TaxAmount)
	require.NoError(t, err)
	want := subtotal.Sub(discount).Add(tax).Round(2)
	assert.Equal(t, want.StringFixed(2), order.TotalAmount)
}

func getStock(t *testing.T, db *gorm.DB, itemID int32) int32 {
	t.Helper()
	var item models.Item
	require.NoError(t, db.First(&item, itemID).Error)
	return item.StockQuantity
}

func newTakeoutOrder(t *testing.T, ledger *Ledger) *models.Order {
	t.Helper()
	order, err := ledger.CreateOrder(context.Background(), CreateOrderParams{
		OrderType:   models.OrderTypeTakeout,
		PeopleCount: 1,
	}, testActor)
	require.NoError(t, err)
	return order
}

func TestAddLine_TotalsAndRoundTrip(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "LECHON", "160.00", 50, nil)
	order := newTakeoutOrder(t, ledger)

	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 3, nil)
	require.NoError(t, err)

	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, "160.00", order.OrderItems[0].UnitPrice)
	assert.Equal(t, "480.00", order.OrderItems[0].TotalPrice)
	assert.Equal(t, "480.00", order.Subtotal)
	assert.Equal(t, "48.00", order.TaxAmount)
	assert.Equal(t, "528.00", order.TotalAmount)
	assertTotalsInvariant(t, order)

	// Removing one unit keeps the snapshotted unit price.
	order, err = ledger.UpdateLineQuantity(ctx, order.ID, order.OrderItems[0].ID, 2)
	require.NoError(t, err)

	assert.Equal(t, "160.00", order.OrderItems[0].UnitPrice)
	assert.Equal(t, "320.00", order.OrderItems[0].TotalPrice)
	assert.Equal(t, "320.00", order.Subtotal)
	assertTotalsInvariant(t, order)
}

func TestAddLine_UnitPriceDoesNotTrackCatalog(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "KARE", "200.00", 50, nil)
	order := newTakeoutOrder(t, ledger)

	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Item{}).Where("id = ?", item.ID).
		Update("price", "250.00").Error)

	order, err = ledger.UpdateLineQuantity(ctx, order.ID, order.OrderItems[0].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "200.00", order.OrderItems[0].UnitPrice)
	assert.Equal(t, "400.00", order.OrderItems[0].TotalPrice)
}

func TestAddLine_DualPricing(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedDualItem(t, db, "CREMA", "180.00", "320.00", 50)
	whole := models.Size{SizeName: "whole"}
	require.NoError(t, db.Create(&whole).Error)
	require.NoError(t, db.Create(&models.ItemSize{ItemID: item.ID, SizeID: whole.ID, Price: "320.00"}).Error)

	order := newTakeoutOrder(t, ledger)

	// No size selection: solo price.
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "180.00", order.OrderItems[0].UnitPrice)

	// Explicit whole selection: the size override.
	order, err = ledger.AddLine(ctx, order.ID, item.ID, &whole.ID, 1, nil)
	require.NoError(t, err)
	require.Len(t, order.OrderItems, 2)
	assert.Equal(t, "320.00", order.OrderItems[1].UnitPrice)
}

func TestAddLine_SizeWithoutOverride(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "HALO", "95.00", 50, nil)
	size := models.Size{SizeName: "large"}
	require.NoError(t, db.Create(&size).Error)

	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, item.ID, &size.ID, 1, nil)
	assert.ErrorIs(t, err, ErrInvalidPricing)
}

func TestAddLine_AdvisoryStockCheck(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "BANGUS", "150.00", 2, nil)
	order := newTakeoutOrder(t, ledger)

	_, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 3, nil)
	assert.ErrorIs(t, err, ErrOutOfStock)

	// Stock itself is untouched by order entry.
	assert.Equal(t, int32(2), getStock(t, db, item.ID))
}

func TestSetDiscount(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "PANCIT", "160.00", 50, nil)
	order := newTakeoutOrder(t, ledger)
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 3, nil)
	require.NoError(t, err)

	order, err = ledger.SetDiscount(ctx, order.ID, models.DiscountTypePercentage, "10")
	require.NoError(t, err)
	assert.Equal(t, "48.00", order.DiscountAmount)
	assert.Equal(t, "43.20", order.TaxAmount)
	assert.Equal(t, "475.20", order.TotalAmount)
	assertTotalsInvariant(t, order)

	// An oversized fixed discount is capped at the subtotal.
	order, err = ledger.SetDiscount(ctx, order.ID, models.DiscountTypeFixed, "9999.00")
	require.NoError(t, err)
	assert.Equal(t, order.Subtotal, order.DiscountAmount)
	assert.Equal(t, "0.00", order.TotalAmount)
	assertTotalsInvariant(t, order)

	_, err = ledger.SetDiscount(ctx, order.ID, models.DiscountTypeFixed, "-5.00")
	assert.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestConfirm_DecrementsOnceAndIsIdempotent(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "SINIGANG", "180.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 4, nil)
	require.NoError(t, err)

	order, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, order.Status)
	assert.Equal(t, int32(6), getStock(t, db, item.ID))

	// Re-confirming must not decrement again.
	order, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReady, order.Status)
	assert.Equal(t, int32(6), getStock(t, db, item.ID))
}

func TestConfirm_ContendedStock(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "LUMPIA", "80.00", 5, nil)

	first := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, first.ID, item.ID, nil, 3, nil)
	require.NoError(t, err)

	second := newTakeoutOrder(t, ledger)
	_, err = ledger.AddLine(ctx, second.ID, item.ID, nil, 3, nil)
	require.NoError(t, err)

	_, err = ledger.Confirm(ctx, first.ID, testActor)
	require.NoError(t, err)

	_, err = ledger.Confirm(ctx, second.ID, testActor)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, int32(2), getStock(t, db, item.ID))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, second.ID).Error)
	assert.Equal(t, models.OrderStatusPending, reloaded.Status)
	assert.False(t, reloaded.StockApplied)
}

func TestConfirm_SimultaneousConfirmations(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "UKOY", "90.00", 5, nil)

	first := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, first.ID, item.ID, nil, 3, nil)
	require.NoError(t, err)

	second := newTakeoutOrder(t, ledger)
	_, err = ledger.AddLine(ctx, second.ID, item.ID, nil, 3, nil)
	require.NoError(t, err)

	// Fire both confirmations at once; whichever transaction lands second
	// must fail the conditional decrement.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, id := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(orderID int64) {
			defer wg.Done()
			_, err := ledger.Confirm(ctx, orderID, testActor)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	failures := 0
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInsufficientStock)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, int32(2), getStock(t, db, item.ID))
}

func TestConfirm_AllOrNothingAcrossLines(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	plenty := seedItem(t, db, "RICE", "25.00", 100, nil)
	scarce := seedItem(t, db, "CRAB", "450.00", 1, nil)

	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, plenty.ID, nil, 2, nil)
	require.NoError(t, err)
	_, err = ledger.AddLine(ctx, order.ID, scarce.ID, nil, 1, nil)
	require.NoError(t, err)

	// Another order takes the last crab first.
	rival := newTakeoutOrder(t, ledger)
	_, err = ledger.AddLine(ctx, rival.ID, scarce.ID, nil, 1, nil)
	require.NoError(t, err)
	_, err = ledger.Confirm(ctx, rival.ID, testActor)
	require.NoError(t, err)

	_, err = ledger.Confirm(ctx, order.ID, testActor)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// No partial decrement: the rice line was rolled back too.
	assert.Equal(t, int32(100), getStock(t, db, plenty.ID))
}

func TestCancel_RestoresStockAfterConfirm(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "BAGNET", "220.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 4, nil)
	require.NoError(t, err)

	_, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, int32(6), getStock(t, db, item.ID))

	order, err = ledger.Cancel(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, int32(10), getStock(t, db, item.ID))
}

func TestCancel_RestoresWhatWasDebitedAfterEdit(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "INASAL", "190.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 2, nil)
	require.NoError(t, err)
	lineID := order.OrderItems[0].ID

	_, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, int32(8), getStock(t, db, item.ID))

	// Raising the quantity on the confirmed order debits the difference.
	_, err = ledger.UpdateLineQuantity(ctx, order.ID, lineID, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(5), getStock(t, db, item.ID))

	// Cancellation compensates exactly what was debited overall.
	order, err = ledger.Cancel(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, int32(10), getStock(t, db, item.ID))
}

func TestAddLine_OnReadyOrderDebitsStock(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	first := seedItem(t, db, "ADOBO", "150.00", 10, nil)
	late := seedItem(t, db, "TURON", "45.00", 10, nil)

	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, first.ID, nil, 1, nil)
	require.NoError(t, err)
	_, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)

	// A line added after confirmation debits stock immediately.
	_, err = ledger.AddLine(ctx, order.ID, late.ID, nil, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(7), getStock(t, db, late.ID))

	// Completing does not debit it a second time.
	_, err = ledger.Complete(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, int32(7), getStock(t, db, late.ID))
	assert.Equal(t, int32(9), getStock(t, db, first.ID))
}

func TestUpdateLineQuantity_OnReadyOrderHonorsStock(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "PALABOK", "120.00", 4, nil)
	order := newTakeoutOrder(t, ledger)
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 2, nil)
	require.NoError(t, err)
	lineID := order.OrderItems[0].ID

	_, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, int32(2), getStock(t, db, item.ID))

	// Raising past the remaining stock fails and leaves everything alone.
	_, err = ledger.UpdateLineQuantity(ctx, order.ID, lineID, 7)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int32(2), getStock(t, db, item.ID))

	var reloaded models.OrderItem
	require.NoError(t, db.First(&reloaded, lineID).Error)
	assert.Equal(t, int32(2), reloaded.Quantity)

	// Lowering restores the difference.
	_, err = ledger.UpdateLineQuantity(ctx, order.ID, lineID, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), getStock(t, db, item.ID))

	_, err = ledger.Cancel(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, int32(4), getStock(t, db, item.ID))
}

func TestCancel_CompletedOrderRejected(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "TOCINO", "130.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)

	_, err = ledger.Complete(ctx, order.ID, testActor)
	require.NoError(t, err)

	_, err = ledger.Cancel(ctx, order.ID, testActor)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestComplete_FromPendingAppliesStockOnce(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "TAPA", "140.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 2, nil)
	require.NoError(t, err)

	order, err = ledger.Complete(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, int32(8), getStock(t, db, item.ID))
}

func TestComplete_FromReadyDoesNotDoubleDecrement(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "DINUGUAN", "170.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 2, nil)
	require.NoError(t, err)

	_, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, int32(8), getStock(t, db, item.ID))

	order, err = ledger.Complete(ctx, order.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, int32(8), getStock(t, db, item.ID))
}

func TestMarkPaid(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "BULALO", "350.00", 10, nil)
	cash := seedPaymentMethod(t, db, "cash")

	order := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)

	// Paying a pending order is premature.
	_, err = ledger.MarkPaid(ctx, order.ID, cash.ID, testActor)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)

	order, err = ledger.MarkPaid(ctx, order.ID, cash.ID, testActor)
	require.NoError(t, err)
	require.NotNil(t, order.PaidAt)
	require.NotNil(t, order.PaymentMethodID)
	assert.Equal(t, cash.ID, *order.PaymentMethodID)

	_, err = ledger.MarkPaid(ctx, order.ID, cash.ID, testActor)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMutationsOnLockedOrder(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "KALDERETA", "210.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)
	lineID := order.OrderItems[0].ID

	_, err = ledger.Complete(ctx, order.ID, testActor)
	require.NoError(t, err)

	_, err = ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	assert.ErrorIs(t, err, ErrOrderLocked)

	_, err = ledger.UpdateLineQuantity(ctx, order.ID, lineID, 2)
	assert.ErrorIs(t, err, ErrOrderLocked)

	_, err = ledger.SetDiscount(ctx, order.ID, models.DiscountTypeFixed, "10.00")
	assert.ErrorIs(t, err, ErrOrderLocked)
}

func TestUpdateLineQuantity_MalformedStoredAmountRejected(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "KINILAW", "260.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)
	lineID := order.OrderItems[0].ID

	// A corrupted money column must abort the mutation, not read as zero.
	require.NoError(t, db.Model(&models.OrderItem{}).Where("id = ?", lineID).
		UpdateColumn("unit_price", "not-a-number").Error)

	_, err = ledger.UpdateLineQuantity(ctx, order.ID, lineID, 2)
	assert.ErrorIs(t, err, ErrTotalsInvariant)
}

func TestRemoveLine_OnlyWhilePending(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "LAING", "110.00", 10, nil)
	order := newTakeoutOrder(t, ledger)
	order, err := ledger.AddLine(ctx, order.ID, item.ID, nil, 2, nil)
	require.NoError(t, err)
	lineID := order.OrderItems[0].ID

	_, err = ledger.Confirm(ctx, order.ID, testActor)
	require.NoError(t, err)

	_, err = ledger.RemoveLine(ctx, order.ID, lineID)
	assert.ErrorIs(t, err, ErrOrderLocked)
}

func TestCreateOrder_DineInValidation(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.CreateOrder(ctx, CreateOrderParams{
		OrderType:   models.OrderTypeDineIn,
		PeopleCount: 2,
	}, testActor)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	missing := int32(999)
	_, err = ledger.CreateOrder(ctx, CreateOrderParams{
		OrderType:   models.OrderTypeDineIn,
		TableID:     &missing,
		PeopleCount: 2,
	}, testActor)
	assert.ErrorIs(t, err, ErrInvalidTable)

	table := seedTable(t, db, "T1")
	first, err := ledger.CreateOrder(ctx, CreateOrderParams{
		OrderType:   models.OrderTypeDineIn,
		TableID:     &table.ID,
		PeopleCount: 2,
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, first.Status)

	// The table is now derived-occupied by the first active order.
	_, err = ledger.CreateOrder(ctx, CreateOrderParams{
		OrderType:   models.OrderTypeDineIn,
		TableID:     &table.ID,
		PeopleCount: 2,
	}, testActor)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestListOrders_Filters(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "OKOY", "70.00", 50, nil)

	first := newTakeoutOrder(t, ledger)
	_, err := ledger.AddLine(ctx, first.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)
	_, err = ledger.Confirm(ctx, first.ID, testActor)
	require.NoError(t, err)

	newTakeoutOrder(t, ledger)

	ready := models.OrderStatusReady
	orders, total, err := ledger.ListOrders(ctx, ListOrdersFilter{Status: &ready})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, first.ID, orders[0].ID)

	orders, total, err = ledger.ListOrders(ctx, ListOrdersFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)
}
