package models

// MenuItem represents a dish on the catalog. Read-only reference data
// supplied by the backend; never mutated here.
type MenuItem struct {
	ID          int64   `json:"id"`
	Category    string  `json:"categoria"`
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion,omitempty"`
	Price       float64 `json:"precio"`
}

// Menu is the full catalog snapshot
type Menu []MenuItem

// ByID returns the item with the given product id, or nil
func (m Menu) ByID(id int64) *MenuItem {
	for i := range m {
		if m[i].ID == id {
			return &m[i]
		}
	}
	return nil
}

// Categories returns the distinct categories in catalog order
func (m Menu) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, item := range m {
		if !seen[item.Category] {
			seen[item.Category] = true
			cats = append(cats, item.Category)
		}
	}
	return cats
}
