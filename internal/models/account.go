package models

// AccountState represents the lifecycle state of an account
type AccountState string

const (
	// Account states; paid is terminal
	AccountOpen AccountState = "abierta"
	AccountPaid AccountState = "pagada"
)

// Account represents an account opened against a table, with its per-payer
// breakdown as served by the backend
type Account struct {
	ID         int64           `json:"cuenta_id"`
	State      AccountState    `json:"estado"`
	GrandTotal float64         `json:"gran_total"`
	Splits     []SplitSubtotal `json:"cuentas_separadas"`
}

// SplitSubtotal is the share of an account owed by a single payer
type SplitSubtotal struct {
	PayerName string      `json:"cliente_nombre"`
	AmountDue float64     `json:"total_a_pagar"`
	LineItems []SplitLine `json:"detalle"`
}

// SplitLine is one dish line inside a payer's share
type SplitLine struct {
	Quantity  int     `json:"cantidad"`
	DishName  string  `json:"platillo"`
	UnitPrice float64 `json:"precio_unitario"`
}

// Open reports whether the account still accepts orders and payments
func (a *Account) Open() bool {
	return a.State == AccountOpen
}
