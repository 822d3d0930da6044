package floor

import (
	"comanda/internal/fault"
	"comanda/internal/models"
)

// ticketOrder ranks the ticket states along their only legal path
var ticketOrder = map[models.TicketState]int{
	models.TicketPending:   0,
	models.TicketPreparing: 1,
	models.TicketReady:     2,
	models.TicketDelivered: 3,
}

// NextTicketState returns the state immediately following s. Delivered is
// terminal and has no successor.
func NextTicketState(s models.TicketState) (models.TicketState, error) {
	switch s {
	case models.TicketPending:
		return models.TicketPreparing, nil
	case models.TicketPreparing:
		return models.TicketReady, nil
	case models.TicketReady:
		return models.TicketDelivered, nil
	case models.TicketDelivered:
		return "", fault.New(fault.StateViolation, "ticket already delivered")
	}
	return "", fault.New(fault.StateViolation, "unknown ticket state %q", s)
}

// CheckAdvance validates moving a ticket from current to target.
// Returns nil when target is exactly one step forward, a ConflictEquivalent
// fault when the ticket already reached or passed target (a lost race,
// treated as success by callers), and a StateViolation otherwise.
func CheckAdvance(current, target models.TicketState) error {
	cur, ok := ticketOrder[current]
	if !ok {
		return fault.New(fault.StateViolation, "unknown ticket state %q", current)
	}
	tgt, ok := ticketOrder[target]
	if !ok {
		return fault.New(fault.StateViolation, "unknown ticket state %q", target)
	}
	switch {
	case tgt == cur+1:
		return nil
	case tgt <= cur:
		return fault.New(fault.ConflictEquivalent, "ticket already %s", current)
	default:
		return fault.New(fault.StateViolation, "cannot skip from %s to %s", current, target)
	}
}
