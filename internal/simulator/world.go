package simulator

import (
	"fmt"
	"sync"
	"time"

	"comanda/internal/floor"
	"comanda/internal/models"
)

// conflictError carries the extra payload a 409 response may include: the
// already-open account id or the ticket's current state.
type conflictError struct {
	msg          string
	accountID    int64
	currentState models.TicketState
}

func (e *conflictError) Error() string { return e.msg }

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// World is the in-memory floor served by the simulator. All mutations hold
// the lock; the rules mirror the production backend closely enough to drive
// the gateway end to end.
type World struct {
	mu          sync.Mutex
	tables      []models.Table
	menu        models.Menu
	tickets     []models.OrderItem
	states      map[int64]models.AccountState
	nextAccount int64
	nextTicket  int64
}

// NewWorld seeds a small floor: eight free tables and a short menu
func NewWorld() *World {
	w := &World{
		states:      make(map[int64]models.AccountState),
		nextAccount: 100,
		nextTicket:  1000,
	}
	for i := 1; i <= 8; i++ {
		capacity := 4
		if i%3 == 0 {
			capacity = 2
		}
		w.tables = append(w.tables, models.Table{
			ID: int64(i), Number: i, Capacity: capacity, State: models.TableAvailable,
		})
	}
	w.menu = models.Menu{
		{ID: 1, Category: "entradas", Name: "Guacamole", Price: 55},
		{ID: 2, Category: "entradas", Name: "Sopa de tortilla", Price: 60},
		{ID: 3, Category: "platos fuertes", Name: "Tacos al pastor", Price: 95},
		{ID: 4, Category: "platos fuertes", Name: "Pozole rojo", Price: 110},
		{ID: 5, Category: "postres", Name: "Flan napolitano", Price: 45},
		{ID: 6, Category: "bebidas", Name: "Agua de horchata", Price: 30},
	}
	return w
}

func (w *World) tableByID(id int64) *models.Table {
	for i := range w.tables {
		if w.tables[i].ID == id {
			return &w.tables[i]
		}
	}
	return nil
}

func (w *World) snapshot() []models.Table {
	out := make([]models.Table, len(w.tables))
	copy(out, w.tables)
	return out
}

// Tables returns the current table snapshot
func (w *World) Tables() []models.Table {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

// Menu returns the catalog
func (w *World) Menu() models.Menu {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.menu
}

// KitchenQueue returns undelivered tickets in submission order
func (w *World) KitchenQueue() []models.OrderItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.OrderItem
	for _, t := range w.tickets {
		if t.State != models.TicketDelivered {
			out = append(out, t)
		}
	}
	return out
}

// Account returns one account with its per-payer breakdown
func (w *World) Account(id int64) (*models.Account, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	state, ok := w.states[id]
	if !ok {
		return nil, &notFoundError{fmt.Sprintf("cuenta %d no encontrada", id)}
	}
	var items []models.OrderItem
	for _, t := range w.tickets {
		if t.AccountID == id {
			items = append(items, t)
		}
	}
	return &models.Account{
		ID:         id,
		State:      state,
		GrandTotal: floor.GrandTotal(items),
		Splits:     floor.DeriveSplits(items),
	}, nil
}

// OpenAccount opens an account on a table. A table that already carries an
// open account is a conflict carrying the existing id.
func (w *World) OpenAccount(tableID int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	t := w.tableByID(tableID)
	if t == nil {
		return 0, &notFoundError{fmt.Sprintf("mesa %d no encontrada", tableID)}
	}
	if t.State == models.TableMergedSecondary {
		return 0, &conflictError{msg: fmt.Sprintf("mesa %d es secundaria de una fusión", tableID)}
	}
	if t.ActiveAccountID != nil {
		return 0, &conflictError{
			msg:       fmt.Sprintf("mesa %d ya tiene una cuenta abierta", tableID),
			accountID: *t.ActiveAccountID,
		}
	}

	w.nextAccount++
	id := w.nextAccount
	w.states[id] = models.AccountOpen
	t.ActiveAccountID = &id
	if t.State == models.TableAvailable || t.State == models.TableReserved {
		t.State = models.TableOccupied
	}
	return id, nil
}

// Fuse merges the secondaries into the primary's group and returns the
// updated table set
func (w *World) Fuse(primaryID int64, secondaryIDs []int64) ([]models.Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	primary := w.tableByID(primaryID)
	if primary == nil {
		return nil, &notFoundError{fmt.Sprintf("mesa %d no encontrada", primaryID)}
	}
	if primary.State == models.TableMergedSecondary {
		return nil, &conflictError{msg: fmt.Sprintf("mesa %d ya es secundaria", primaryID)}
	}
	for _, id := range secondaryIDs {
		t := w.tableByID(id)
		if t == nil {
			return nil, &notFoundError{fmt.Sprintf("mesa %d no encontrada", id)}
		}
		if t.ActiveAccountID != nil {
			return nil, &conflictError{msg: fmt.Sprintf("mesa %d tiene cuenta abierta", id)}
		}
		if t.State == models.TableMergedSecondary && (t.ParentTableID == nil || *t.ParentTableID != primaryID) {
			return nil, &conflictError{msg: fmt.Sprintf("mesa %d pertenece a otra fusión", id)}
		}
	}

	primary.State = models.TableMergedPrimary
	for _, id := range secondaryIDs {
		t := w.tableByID(id)
		t.State = models.TableMergedSecondary
		pid := primaryID
		t.ParentTableID = &pid
	}
	return w.snapshot(), nil
}

// Order creates kitchen tickets for the lines and returns them
func (w *World) Order(accountID int64, lines []models.OrderLine) ([]models.OrderItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, ok := w.states[accountID]
	if !ok {
		return nil, &notFoundError{fmt.Sprintf("cuenta %d no encontrada", accountID)}
	}
	if state != models.AccountOpen {
		return nil, &conflictError{msg: fmt.Sprintf("cuenta %d ya está pagada", accountID)}
	}
	if len(lines) == 0 {
		return nil, &badRequestError{"el pedido no tiene platillos"}
	}

	tableNumber := 0
	for i := range w.tables {
		if w.tables[i].ActiveAccountID != nil && *w.tables[i].ActiveAccountID == accountID {
			tableNumber = w.tables[i].Number
			break
		}
	}

	var created []models.OrderItem
	for _, line := range lines {
		item := w.menu.ByID(line.ProductID)
		if item == nil {
			return nil, &badRequestError{fmt.Sprintf("producto %d no existe", line.ProductID)}
		}
		if line.Quantity <= 0 {
			return nil, &badRequestError{fmt.Sprintf("cantidad inválida para producto %d", line.ProductID)}
		}
		w.nextTicket++
		created = append(created, models.OrderItem{
			ID:          w.nextTicket,
			AccountID:   accountID,
			TableNumber: tableNumber,
			PayerName:   line.PayerName,
			DishName:    item.Name,
			Quantity:    line.Quantity,
			UnitPrice:   item.Price,
			State:       models.TicketPending,
			CreatedAt:   time.Now(),
		})
	}
	w.tickets = append(w.tickets, created...)
	return created, nil
}

// Advance moves a ticket to target. Anything but the single legal next step
// is a conflict carrying the ticket's current state.
func (w *World) Advance(ticketID int64, target models.TicketState) (*models.OrderItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.tickets {
		if w.tickets[i].ID != ticketID {
			continue
		}
		next, err := floor.NextTicketState(w.tickets[i].State)
		if err != nil || next != target {
			return nil, &conflictError{
				msg:          fmt.Sprintf("transición inválida para pedido %d", ticketID),
				currentState: w.tickets[i].State,
			}
		}
		w.tickets[i].State = target
		item := w.tickets[i]
		return &item, nil
	}
	return nil, &notFoundError{fmt.Sprintf("pedido %d no encontrado", ticketID)}
}

// Settle marks an account paid and frees its whole table group
func (w *World) Settle(accountID int64, payments []models.Payment) (*models.Account, []models.Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	state, ok := w.states[accountID]
	if !ok {
		return nil, nil, &notFoundError{fmt.Sprintf("cuenta %d no encontrada", accountID)}
	}
	if state != models.AccountOpen {
		return nil, nil, &conflictError{msg: fmt.Sprintf("cuenta %d ya está pagada", accountID)}
	}
	valid := 0
	for _, p := range payments {
		if p.Valid() {
			valid++
		}
	}
	if valid == 0 {
		return nil, nil, &badRequestError{"el pago no tiene líneas válidas"}
	}

	w.states[accountID] = models.AccountPaid

	var freed []models.Table
	var primaryID int64
	for i := range w.tables {
		t := &w.tables[i]
		if t.ActiveAccountID != nil && *t.ActiveAccountID == accountID {
			primaryID = t.ID
			t.ActiveAccountID = nil
			t.State = models.TableAvailable
			freed = append(freed, *t)
		}
	}
	if primaryID != 0 {
		for i := range w.tables {
			t := &w.tables[i]
			if t.ParentTableID != nil && *t.ParentTableID == primaryID {
				t.ParentTableID = nil
				t.State = models.TableAvailable
				freed = append(freed, *t)
			}
		}
	}

	var items []models.OrderItem
	for _, t := range w.tickets {
		if t.AccountID == accountID {
			items = append(items, t)
		}
	}
	account := &models.Account{
		ID:         accountID,
		State:      models.AccountPaid,
		GrandTotal: floor.GrandTotal(items),
		Splits:     floor.DeriveSplits(items),
	}
	return account, freed, nil
}
