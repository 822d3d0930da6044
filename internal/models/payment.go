package models

// PaymentMethod is how a payment line is tendered
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "efectivo"
	PaymentCard PaymentMethod = "terminal"
)

// Payment is one line of a settlement submission. Transient input,
// never persisted client-side.
type Payment struct {
	PayerName string        `json:"cliente_nombre"`
	Amount    float64       `json:"monto"`
	Method    PaymentMethod `json:"metodo_pago"`
}

// Valid reports whether the line is syntactically complete: a named payer
// and a positive amount
func (p Payment) Valid() bool {
	return p.PayerName != "" && p.Amount > 0
}
