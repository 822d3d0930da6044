package simulator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/client"
	"comanda/internal/floor"
	"comanda/internal/models"
)

// The simulator is tested through the real backend client so the wire
// contract is exercised from both ends.

func newTestPair(t *testing.T) *client.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server := httptest.NewServer(New().Router())
	t.Cleanup(server.Close)
	return client.New(server.URL, "test-token", 5*time.Second)
}

func TestSeededFloor(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	tables, err := c.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 8)
	for _, tbl := range tables {
		assert.Equal(t, models.TableAvailable, tbl.State)
		assert.False(t, tbl.HasAccount())
	}

	menu, err := c.Menu(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, menu)
	assert.NotEmpty(t, menu.Categories())
}

func TestFullServiceLifecycle(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	// open an account on table 1
	opened, err := c.OpenAccount(ctx, 1)
	require.NoError(t, err)
	assert.False(t, opened.AlreadyOpen)

	// opening again yields the same account as a non-error
	again, err := c.OpenAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, again.AlreadyOpen)
	assert.Equal(t, opened.AccountID, again.AccountID)

	// order two dishes for two payers
	items, err := c.SubmitOrder(ctx, opened.AccountID, []models.OrderLine{
		{ProductID: 3, Quantity: 2, PayerName: "Ana"},
		{ProductID: 5, Quantity: 1, PayerName: "Luis"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.TicketPending, items[0].State)
	assert.Equal(t, "Tacos al pastor", items[0].DishName)

	// the kitchen queue now shows both tickets
	queue, err := c.KitchenQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 2)

	// walk the first ticket to delivered
	for _, target := range []models.TicketState{
		models.TicketPreparing, models.TicketReady, models.TicketDelivered,
	} {
		result, err := c.AdvanceTicket(ctx, items[0].ID, target)
		require.NoError(t, err)
		assert.Equal(t, target, result.State)
		assert.False(t, result.AlreadyDone)
	}

	// a delivered ticket leaves the queue
	queue, err = c.KitchenQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	// the account breakdown covers both payers and sums the lines
	account, err := c.Account(ctx, opened.AccountID)
	require.NoError(t, err)
	assert.Equal(t, 2*95.0+45.0, account.GrandTotal)
	require.Len(t, account.Splits, 2)
	assert.Equal(t, floor.GrandTotal(items), account.GrandTotal)

	// settle split between the payers
	outcome, err := c.SettleAccount(ctx, opened.AccountID, []models.Payment{
		{PayerName: "Ana", Amount: 190, Method: models.PaymentCard},
		{PayerName: "Luis", Amount: 45, Method: models.PaymentCash},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AccountPaid, outcome.Account.State)
	require.Len(t, outcome.FreedTables, 1)
	assert.Equal(t, models.TableAvailable, outcome.FreedTables[0].State)

	// a second settlement is a state violation
	_, err = c.SettleAccount(ctx, opened.AccountID, []models.Payment{
		{PayerName: "Ana", Amount: 1, Method: models.PaymentCash},
	})
	assert.Error(t, err)
}

func TestAdvanceConflicts(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	opened, err := c.OpenAccount(ctx, 2)
	require.NoError(t, err)
	items, err := c.SubmitOrder(ctx, opened.AccountID, []models.OrderLine{
		{ProductID: 4, Quantity: 1, PayerName: "Eva"},
	})
	require.NoError(t, err)
	id := items[0].ID

	// skipping a state is rejected
	_, err = c.AdvanceTicket(ctx, id, models.TicketReady)
	assert.Error(t, err)

	// losing the race to an equal-or-earlier state is a no-op success
	_, err = c.AdvanceTicket(ctx, id, models.TicketPreparing)
	require.NoError(t, err)
	result, err := c.AdvanceTicket(ctx, id, models.TicketPreparing)
	require.NoError(t, err)
	assert.True(t, result.AlreadyDone)
	assert.Equal(t, models.TicketPreparing, result.State)
}

func TestFusionLifecycle(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	// open on the primary, then pull table 4 into the group
	opened, err := c.OpenAccount(ctx, 3)
	require.NoError(t, err)

	tables, err := c.FuseTables(ctx, &floor.FusionPlan{PrimaryID: 3, SecondaryIDs: []int64{4}})
	require.NoError(t, err)

	var primary, secondary *models.Table
	for i := range tables {
		switch tables[i].ID {
		case 3:
			primary = &tables[i]
		case 4:
			secondary = &tables[i]
		}
	}
	require.NotNil(t, primary)
	require.NotNil(t, secondary)
	assert.Equal(t, models.TableMergedPrimary, primary.State)
	assert.Equal(t, models.TableMergedSecondary, secondary.State)
	require.NotNil(t, secondary.ParentTableID)
	assert.Equal(t, int64(3), *secondary.ParentTableID)
	assert.NoError(t, floor.CheckGroups(tables))

	// opening on the secondary is a conflict without an account id
	_, err = c.OpenAccount(ctx, 4)
	assert.Error(t, err)

	// settling frees the entire group
	_, err = c.SubmitOrder(ctx, opened.AccountID, []models.OrderLine{
		{ProductID: 1, Quantity: 1, PayerName: "Mar"},
	})
	require.NoError(t, err)
	outcome, err := c.SettleAccount(ctx, opened.AccountID, []models.Payment{
		{PayerName: "Mar", Amount: 55, Method: models.PaymentCash},
	})
	require.NoError(t, err)
	assert.Len(t, outcome.FreedTables, 2)
}

func TestOrderValidation(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	opened, err := c.OpenAccount(ctx, 5)
	require.NoError(t, err)

	// unknown product
	_, err = c.SubmitOrder(ctx, opened.AccountID, []models.OrderLine{
		{ProductID: 999, Quantity: 1, PayerName: "Ana"},
	})
	assert.Error(t, err)

	// unknown account
	_, err = c.SubmitOrder(ctx, 9999, []models.OrderLine{
		{ProductID: 1, Quantity: 1, PayerName: "Ana"},
	})
	assert.Error(t, err)
}
