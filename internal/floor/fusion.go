package floor

import (
	"comanda/internal/fault"
	"comanda/internal/models"
)

// FusionPlan is a validated table merge: the first selected table becomes
// the group's primary, every other one a display-only secondary
type FusionPlan struct {
	PrimaryID    int64
	SecondaryIDs []int64
}

// PlanFusion validates an ordered selection of table ids against the current
// table snapshot and produces the merge plan. Rejected locally, before any
// network call: fewer than two tables, unknown ids, or a table already
// claimed as secondary by another group.
func PlanFusion(tables []models.Table, selection []int64) (*FusionPlan, error) {
	if len(selection) < 2 {
		return nil, fault.New(fault.Validation, "select at least 2 tables to merge")
	}

	byID := make(map[int64]*models.Table, len(tables))
	for i := range tables {
		byID[tables[i].ID] = &tables[i]
	}

	primaryID := selection[0]
	seen := make(map[int64]bool, len(selection))
	for _, id := range selection {
		t, ok := byID[id]
		if !ok {
			return nil, fault.New(fault.NotFound, "table %d not found", id)
		}
		if seen[id] {
			return nil, fault.New(fault.Validation, "table %d selected twice", id)
		}
		seen[id] = true
		if t.State == models.TableMergedSecondary {
			if t.ParentTableID == nil || *t.ParentTableID != primaryID {
				return nil, fault.New(fault.StateViolation,
					"table %d already merged into another group", id)
			}
		}
	}

	return &FusionPlan{PrimaryID: primaryID, SecondaryIDs: selection[1:]}, nil
}

// GroupOf returns the primary table and its secondaries for the group led by
// primaryID, drawn from the snapshot
func GroupOf(tables []models.Table, primaryID int64) (*models.Table, []models.Table) {
	var primary *models.Table
	var secondaries []models.Table
	for i := range tables {
		t := tables[i]
		if t.ID == primaryID {
			primary = &tables[i]
			continue
		}
		if t.ParentTableID != nil && *t.ParentTableID == primaryID {
			secondaries = append(secondaries, t)
		}
	}
	return primary, secondaries
}

// CheckGroups verifies fusion invariants across a table snapshot: every
// secondary points at an existing primary in merged-primary state, secondaries
// never own an account, and each group shares exactly the primary's account.
func CheckGroups(tables []models.Table) error {
	byID := make(map[int64]*models.Table, len(tables))
	for i := range tables {
		byID[tables[i].ID] = &tables[i]
	}
	for i := range tables {
		t := &tables[i]
		if t.State != models.TableMergedSecondary {
			continue
		}
		if t.ParentTableID == nil {
			return fault.New(fault.StateViolation, "table %d is secondary without a parent", t.ID)
		}
		if t.ActiveAccountID != nil {
			return fault.New(fault.StateViolation, "secondary table %d owns account %d", t.ID, *t.ActiveAccountID)
		}
		parent, ok := byID[*t.ParentTableID]
		if !ok {
			return fault.New(fault.StateViolation, "table %d points at missing parent %d", t.ID, *t.ParentTableID)
		}
		if parent.State != models.TableMergedPrimary {
			return fault.New(fault.StateViolation,
				"table %d points at parent %d which is %s, not merged-primary", t.ID, parent.ID, parent.State)
		}
	}
	return nil
}
