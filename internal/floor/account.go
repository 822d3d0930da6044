package floor

import (
	"comanda/internal/fault"
	"comanda/internal/models"
)

// CanOpenAccount validates opening an account on a table. Opening against a
// table that already has an account is not an error here: the backend answers
// with the existing account id and the caller treats that as success.
func CanOpenAccount(t *models.Table) error {
	if t == nil {
		return fault.New(fault.NotFound, "table not found")
	}
	if t.State == models.TableMergedSecondary {
		return fault.New(fault.StateViolation,
			"table %d is merged into table %d; order through the primary", t.ID, parentOrZero(t))
	}
	return nil
}

func parentOrZero(t *models.Table) int64 {
	if t.ParentTableID != nil {
		return *t.ParentTableID
	}
	return 0
}

// GrandTotal sums the line totals of an account's tickets. Before settlement
// this must always equal the account's reported grand total.
func GrandTotal(items []models.OrderItem) float64 {
	var total float64
	for i := range items {
		total += items[i].LineTotal()
	}
	return total
}

// DeriveSplits rebuilds the per-payer breakdown from a ticket snapshot, in
// first-appearance order. Used to cross-check the backend's breakdown and to
// render one locally when only tickets are at hand.
func DeriveSplits(items []models.OrderItem) []models.SplitSubtotal {
	index := make(map[string]int)
	var splits []models.SplitSubtotal
	for i := range items {
		it := &items[i]
		j, ok := index[it.PayerName]
		if !ok {
			j = len(splits)
			index[it.PayerName] = j
			splits = append(splits, models.SplitSubtotal{PayerName: it.PayerName})
		}
		splits[j].AmountDue += it.LineTotal()
		splits[j].LineItems = append(splits[j].LineItems, models.SplitLine{
			Quantity:  it.Quantity,
			DishName:  it.DishName,
			UnitPrice: it.UnitPrice,
		})
	}
	return splits
}
