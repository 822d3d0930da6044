package models

import "time"

// TicketState represents the kitchen state of an order item
type TicketState string

const (
	// Ticket states, in preparation order; delivered is terminal
	TicketPending   TicketState = "pendiente"
	TicketPreparing TicketState = "preparando"
	TicketReady     TicketState = "listo"
	TicketDelivered TicketState = "entregado"
)

// OrderItem represents a kitchen ticket: one dish line of an account,
// tracked from submission to delivery
type OrderItem struct {
	ID          int64       `json:"id"`
	AccountID   int64       `json:"cuenta_id"`
	TableNumber int         `json:"mesa"`
	PayerName   string      `json:"cliente_nombre"`
	DishName    string      `json:"platillo"`
	Quantity    int         `json:"cantidad"`
	UnitPrice   float64     `json:"precio_unitario"`
	State       TicketState `json:"estado"`
	CreatedAt   time.Time   `json:"creado_en"`
}

// LineTotal returns the charge this ticket contributes to its account
func (oi *OrderItem) LineTotal() float64 {
	return oi.UnitPrice * float64(oi.Quantity)
}

// Age returns how long the ticket has been in the kitchen
func (oi *OrderItem) Age(now time.Time) time.Duration {
	return now.Sub(oi.CreatedAt)
}

// OrderLine is one line of an order submission: a dish for a payer
type OrderLine struct {
	ProductID int64  `json:"producto_id"`
	Quantity  int    `json:"cantidad"`
	PayerName string `json:"cliente_nombre"`
}
