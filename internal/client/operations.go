package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"comanda/internal/fault"
	"comanda/internal/floor"
	"comanda/internal/models"
)

// Tables retrieves the current floor snapshot
func (c *Client) Tables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := c.do(ctx, http.MethodGet, "/mesas", nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// Menu retrieves the catalog snapshot
func (c *Client) Menu(ctx context.Context) (models.Menu, error) {
	var menu models.Menu
	if err := c.do(ctx, http.MethodGet, "/pedidos/menu", nil, &menu); err != nil {
		return nil, err
	}
	return menu, nil
}

// KitchenQueue retrieves undelivered tickets in kitchen order
func (c *Client) KitchenQueue(ctx context.Context) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := c.do(ctx, http.MethodGet, "/cocina/pendientes", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Account retrieves one account with its per-payer breakdown
func (c *Client) Account(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	path := fmt.Sprintf("/pagos/cuenta/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// OpenAccountResult discriminates a fresh account from an existing one.
// "Already open" is success carrying the existing id, never an error.
type OpenAccountResult struct {
	AccountID   int64 `json:"cuenta_id"`
	AlreadyOpen bool  `json:"ya_abierta"`
}

// OpenAccount opens an account on a table, transitioning it to occupied.
// If the backend reports the table already has an open account, the existing
// id is returned with AlreadyOpen set.
func (c *Client) OpenAccount(ctx context.Context, tableID int64) (*OpenAccountResult, error) {
	body := map[string]int64{"mesa_id": tableID}
	resp, raw, err := c.doRaw(ctx, http.MethodPost, "/pedidos/abrir-cuenta", body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusConflict {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.AccountID != 0 {
			return &OpenAccountResult{AccountID: apiErr.AccountID, AlreadyOpen: true}, nil
		}
		return nil, c.classify(resp.StatusCode, raw)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.classify(resp.StatusCode, raw)
	}

	var created struct {
		Account struct {
			ID int64 `json:"id"`
		} `json:"cuenta"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.Account.ID == 0 {
		return nil, fault.New(fault.Transport, "open-account response missing account id")
	}
	return &OpenAccountResult{AccountID: created.Account.ID}, nil
}

// FuseTables merges tables into one group led by the plan's primary and
// returns the updated table set
func (c *Client) FuseTables(ctx context.Context, plan *floor.FusionPlan) ([]models.Table, error) {
	body := map[string]interface{}{
		"mesa_principal_id": plan.PrimaryID,
		"mesas_a_fusionar":  plan.SecondaryIDs,
	}
	var tables []models.Table
	if err := c.do(ctx, http.MethodPost, "/mesas/fusionar", body, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// SubmitOrder sends accumulated order lines to the kitchen and returns the
// canonical ticket records created for them
func (c *Client) SubmitOrder(ctx context.Context, accountID int64, lines []models.OrderLine) ([]models.OrderItem, error) {
	body := map[string]interface{}{
		"cuenta_id": accountID,
		"platillos": lines,
	}
	var items []models.OrderItem
	if err := c.do(ctx, http.MethodPost, "/pedidos/ordenar", body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AdvanceResult is the outcome of a ticket advancement. AlreadyDone marks a
// lost race where another terminal performed the transition first; the item
// reached or passed the target, so the caller treats it as success.
type AdvanceResult struct {
	State       models.TicketState `json:"estado"`
	AlreadyDone bool               `json:"ya_realizado"`
}

// AdvanceTicket moves a ticket to target, which must be the state
// immediately after the ticket's current one. A conflict where the ticket
// already reached or passed target is a no-op success; any other conflict
// is a state violation and is never retried here.
func (c *Client) AdvanceTicket(ctx context.Context, itemID int64, target models.TicketState) (*AdvanceResult, error) {
	body := map[string]string{"nuevo_estado": string(target)}
	path := fmt.Sprintf("/cocina/pedidos/%d/estado", itemID)
	resp, raw, err := c.doRaw(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusConflict {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.CurrentState != "" {
			current := models.TicketState(apiErr.CurrentState)
			if fault.Is(floor.CheckAdvance(current, target), fault.ConflictEquivalent) {
				return &AdvanceResult{State: current, AlreadyDone: true}, nil
			}
			return nil, fault.New(fault.StateViolation,
				"ticket %d diverged: is %s, cannot reach %s", itemID, current, target)
		}
		return nil, c.classify(resp.StatusCode, raw)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.classify(resp.StatusCode, raw)
	}

	var item models.OrderItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fault.Wrap(fault.Transport, err, "malformed advance response")
	}
	return &AdvanceResult{State: item.State}, nil
}

// SettleOutcome is the backend's answer to a settlement: the now-paid
// account and every table the settlement freed
type SettleOutcome struct {
	Account     models.Account `json:"cuenta"`
	FreedTables []models.Table `json:"mesas_liberadas"`
}

// SettleAccount submits payment lines for an account. On acceptance the
// account becomes paid and its whole table group returns to available.
func (c *Client) SettleAccount(ctx context.Context, accountID int64, payments []models.Payment) (*SettleOutcome, error) {
	body := map[string]interface{}{
		"cuenta_id": accountID,
		"pagos":     payments,
	}
	var outcome SettleOutcome
	if err := c.do(ctx, http.MethodPost, "/pagos/pagar", body, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}
