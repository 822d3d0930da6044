package floor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/fault"
	"comanda/internal/models"
)

func openAccount(total float64) *models.Account {
	return &models.Account{ID: 40, State: models.AccountOpen, GrandTotal: total}
}

func TestPrepareSettlementSplitWithChange(t *testing.T) {
	payments := []models.Payment{
		{PayerName: "Ana", Amount: 60, Method: models.PaymentCash},
		{PayerName: "Luis", Amount: 50, Method: models.PaymentCard},
	}

	summary, err := PrepareSettlement(openAccount(100), payments)
	require.NoError(t, err)
	assert.Equal(t, 110.0, summary.TotalPaid)
	assert.Equal(t, -10.0, summary.Difference) // change owed, still settles
	assert.Len(t, summary.Lines, 2)
}

func TestPrepareSettlementShortfallStillSettles(t *testing.T) {
	payments := []models.Payment{{PayerName: "Ana", Amount: 80, Method: models.PaymentCash}}

	summary, err := PrepareSettlement(openAccount(100), payments)
	require.NoError(t, err)
	assert.Equal(t, 20.0, summary.Difference)
}

func TestPrepareSettlementDropsInvalidLines(t *testing.T) {
	payments := []models.Payment{
		{PayerName: "", Amount: 60, Method: models.PaymentCash},
		{PayerName: "Luis", Amount: 0, Method: models.PaymentCard},
		{PayerName: "Luis", Amount: 50, Method: models.PaymentCard},
	}

	summary, err := PrepareSettlement(openAccount(100), payments)
	require.NoError(t, err)
	assert.Len(t, summary.Lines, 1)
	assert.Equal(t, 50.0, summary.TotalPaid)
}

func TestPrepareSettlementNoValidLines(t *testing.T) {
	payments := []models.Payment{{PayerName: "", Amount: 0}}

	_, err := PrepareSettlement(openAccount(100), payments)
	assert.True(t, fault.Is(err, fault.Validation))
}

func TestPrepareSettlementPaidAccountRejected(t *testing.T) {
	paid := &models.Account{ID: 40, State: models.AccountPaid, GrandTotal: 100}
	payments := []models.Payment{{PayerName: "Ana", Amount: 100, Method: models.PaymentCash}}

	_, err := PrepareSettlement(paid, payments)
	assert.True(t, fault.Is(err, fault.StateViolation))

	// second attempt is rejected the same way regardless of contents
	_, err = PrepareSettlement(paid, []models.Payment{{PayerName: "Luis", Amount: 1, Method: models.PaymentCash}})
	assert.True(t, fault.Is(err, fault.StateViolation))
}

func TestPrepareSettlementMissingAccount(t *testing.T) {
	_, err := PrepareSettlement(nil, []models.Payment{{PayerName: "Ana", Amount: 10}})
	assert.True(t, fault.Is(err, fault.NotFound))
}
