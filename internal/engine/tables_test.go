package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-system/internal/database/models"
)

func TestEffectiveStatus_FollowsActiveOrders(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "BISTEK", "190.00", 50, nil)
	table := seedTable(t, db, "T5")

	status, err := ledger.Tables().EffectiveStatus(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, status)

	order, err := ledger.CreateOrder(ctx, CreateOrderParams{
		OrderType:   models.OrderTypeDineIn,
		TableID:     &table.ID,
		PeopleCount: 2,
	}, testActor)
	require.NoError(t, err)

	status, err = ledger.Tables().EffectiveStatus(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, status)

	_, err = ledger.AddLine(ctx, order.ID, item.ID, nil, 1, nil)
	require.NoError(t, err)
	_, err = ledger.Complete(ctx, order.ID, testActor)
	require.NoError(t, err)

	// No explicit release step: completion alone frees the table.
	status, err = ledger.Tables().EffectiveStatus(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, status)
}

func TestEffectiveStatus_CancellationFreesTable(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	item := seedItem(t, db, "INASAL", "165.00", 50, nil)
	table := seedTable(t, db, "T6")

	order, err := ledger.CreateOrder(ctx, CreateOrderParams{
		OrderType:   models.OrderTypeDineIn,
		TableID:     &table.ID,
		PeopleCount: 4,
	}, testActor)
	require.NoError(t, err)
	_, err = ledger.AddLine(ctx, order.ID, item.ID, nil, 2, nil)
	require.NoError(t, err)

	_, err = ledger.Cancel(ctx, order.ID, testActor)
	require.NoError(t, err)

	status, err := ledger.Tables().EffectiveStatus(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusAvailable, status)
}

func TestEffectiveStatus_StoredOccupiedWins(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	table := seedTable(t, db, "T7")
	require.NoError(t, db.Model(&models.DiningTable{}).Where("id = ?", table.ID).
		Update("status", models.TableStatusOccupied).Error)
	require.NoError(t, db.First(&table, table.ID).Error)

	// A manually blocked table stays occupied with no orders on it.
	status, err := ledger.Tables().EffectiveStatus(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, models.TableStatusOccupied, status)
}

func TestListTables_ReportsDerivedStatus(t *testing.T) {
	ledger, db := newTestLedger(t)
	ctx := context.Background()

	busy := seedTable(t, db, "T1")
	seedTable(t, db, "T2")

	_, err := ledger.CreateOrder(ctx, CreateOrderParams{
		OrderType:   models.OrderTypeDineIn,
		TableID:     &busy.ID,
		PeopleCount: 2,
	}, testActor)
	require.NoError(t, err)

	tables, err := ledger.Tables().ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	byNumber := make(map[string]string, len(tables))
	for _, tbl := range tables {
		byNumber[tbl.TableNumber] = tbl.EffectiveStatus
	}
	assert.Equal(t, models.TableStatusOccupied, byNumber["T1"])
	assert.Equal(t, models.TableStatusAvailable, byNumber["T2"])
}
