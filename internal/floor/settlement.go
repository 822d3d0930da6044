package floor

import (
	"comanda/internal/fault"
	"comanda/internal/models"
)

// SettlementSummary is the arithmetic of a settlement submission. Difference
// is informational: positive means shortfall, negative means change owed.
// Neither blocks the settlement.
type SettlementSummary struct {
	AccountID  int64            `json:"cuenta_id"`
	GrandTotal float64          `json:"gran_total"`
	TotalPaid  float64          `json:"total_pagado"`
	Difference float64          `json:"diferencia"`
	Lines      []models.Payment `json:"pagos"`
}

// PrepareSettlement validates payment lines against an open account and
// computes the settlement summary. Lines missing a payer or a positive
// amount are dropped; if none survive the submission is rejected locally.
func PrepareSettlement(account *models.Account, payments []models.Payment) (*SettlementSummary, error) {
	if account == nil {
		return nil, fault.New(fault.NotFound, "account not found")
	}
	if !account.Open() {
		return nil, fault.New(fault.StateViolation, "account %d is already %s", account.ID, account.State)
	}

	var valid []models.Payment
	for _, p := range payments {
		if p.Valid() {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return nil, fault.New(fault.Validation, "add at least one valid payment line")
	}

	var paid float64
	for _, p := range valid {
		paid += p.Amount
	}

	return &SettlementSummary{
		AccountID:  account.ID,
		GrandTotal: account.GrandTotal,
		TotalPaid:  paid,
		Difference: account.GrandTotal - paid,
		Lines:      valid,
	}, nil
}
