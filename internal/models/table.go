package models

// TableState represents the lifecycle state of a floor table
type TableState string

const (
	// Table states as reported by the backend
	TableAvailable       TableState = "disponible"
	TableOccupied        TableState = "ocupada"
	TableReserved        TableState = "reservada"
	TableMergedPrimary   TableState = "fusionada_principal"
	TableMergedSecondary TableState = "fusionada_secundaria"
)

// Table represents a floor table as served by the backend
type Table struct {
	ID              int64      `json:"id"`
	Number          int        `json:"numero"`
	Capacity        int        `json:"capacidad"`
	State           TableState `json:"estado"`
	ActiveAccountID *int64     `json:"cuenta_activa_id,omitempty"`
	ParentTableID   *int64     `json:"mesa_padre_id,omitempty"`
}

// HasAccount reports whether the table currently owns an open account
func (t *Table) HasAccount() bool {
	return t.ActiveAccountID != nil
}

// IsMerged reports whether the table belongs to a fusion group
func (t *Table) IsMerged() bool {
	return t.State == TableMergedPrimary || t.State == TableMergedSecondary
}

// AcceptsOrders reports whether orders may be addressed to this table directly.
// Secondary tables of a fusion group must route through their primary.
func (t *Table) AcceptsOrders() bool {
	return t.State != TableMergedSecondary
}
