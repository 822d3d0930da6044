package floor

import "comanda/internal/models"

// CartLine is one accumulated line: a dish for a payer
type CartLine struct {
	ProductID int64  `json:"producto_id"`
	PayerName string `json:"cliente_nombre"`
	Quantity  int    `json:"cantidad"`
}

type cartKey struct {
	productID int64
	payer     string
}

// Cart accumulates an order before submission. Repeated additions of the
// same product for the same payer fold into one quantity-incremented line,
// so accumulation is order-insensitive. Not safe for concurrent use; each
// terminal owns its cart.
type Cart struct {
	lines []CartLine
	index map[cartKey]int
}

// NewCart returns an empty cart
func NewCart() *Cart {
	return &Cart{index: make(map[cartKey]int)}
}

// Add folds qty units of a product for a payer into the cart. Non-positive
// quantities are ignored.
func (c *Cart) Add(productID int64, payerName string, qty int) {
	if qty <= 0 {
		return
	}
	k := cartKey{productID, payerName}
	if i, ok := c.index[k]; ok {
		c.lines[i].Quantity += qty
		return
	}
	c.index[k] = len(c.lines)
	c.lines = append(c.lines, CartLine{ProductID: productID, PayerName: payerName, Quantity: qty})
}

// Adjust changes a line's quantity by delta; the line is removed once its
// quantity drops to zero or below
func (c *Cart) Adjust(productID int64, payerName string, delta int) {
	k := cartKey{productID, payerName}
	i, ok := c.index[k]
	if !ok {
		return
	}
	c.lines[i].Quantity += delta
	if c.lines[i].Quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		delete(c.index, k)
		for j := i; j < len(c.lines); j++ {
			c.index[cartKey{c.lines[j].ProductID, c.lines[j].PayerName}] = j
		}
	}
}

// Clear empties the cart; called after a successful submission
func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[cartKey]int)
}

// Empty reports whether the cart has no lines
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Count returns the total number of units across all lines
func (c *Cart) Count() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Lines returns the accumulated lines in first-insertion order
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total prices the cart against a menu snapshot. Unknown products
// contribute nothing.
func (c *Cart) Total(menu models.Menu) float64 {
	var total float64
	for _, l := range c.lines {
		if item := menu.ByID(l.ProductID); item != nil {
			total += item.Price * float64(l.Quantity)
		}
	}
	return total
}

// Order converts the cart into the submission wire shape
func (c *Cart) Order() []models.OrderLine {
	out := make([]models.OrderLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, models.OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			PayerName: l.PayerName,
		})
	}
	return out
}
