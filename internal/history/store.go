package history

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"comanda/internal/floor"
	"comanda/internal/models"
)

// DeliveredTicket is the audit row kept when a ticket reaches delivered
type DeliveredTicket struct {
	gorm.Model
	TicketID    int64
	AccountID   int64
	TableNumber int
	PayerName   string
	DishName    string
	Quantity    int
	UnitPrice   float64
	OrderedAt   time.Time
	DeliveredAt time.Time
}

// SettlementRecord is the audit row kept when a settlement is processed
// through this terminal
type SettlementRecord struct {
	gorm.Model
	AccountID    int64
	GrandTotal   float64
	TotalPaid    float64
	Difference   float64
	PaymentLines int
}

// Store is the terminal's local audit log. It records what passed through
// this terminal for ops review; it is never a source of truth.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the audit database at path
func Open(path string) (*Store, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&DeliveredTicket{}, &SettlementRecord{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordDelivery stores the audit row for a ticket that reached delivered
func (s *Store) RecordDelivery(item models.OrderItem) error {
	row := DeliveredTicket{
		TicketID:    item.ID,
		AccountID:   item.AccountID,
		TableNumber: item.TableNumber,
		PayerName:   item.PayerName,
		DishName:    item.DishName,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		OrderedAt:   item.CreatedAt,
		DeliveredAt: time.Now(),
	}
	return s.db.Create(&row).Error
}

// RecordSettlement stores the audit row for a processed settlement
func (s *Store) RecordSettlement(summary *floor.SettlementSummary) error {
	row := SettlementRecord{
		AccountID:    summary.AccountID,
		GrandTotal:   summary.GrandTotal,
		TotalPaid:    summary.TotalPaid,
		Difference:   summary.Difference,
		PaymentLines: len(summary.Lines),
	}
	return s.db.Create(&row).Error
}

// RecentDeliveries returns the newest delivered-ticket rows, most recent first
func (s *Store) RecentDeliveries(limit int) ([]DeliveredTicket, error) {
	var rows []DeliveredTicket
	err := s.db.Order("delivered_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// RecentSettlements returns the newest settlement rows, most recent first
func (s *Store) RecentSettlements(limit int) ([]SettlementRecord, error) {
	var rows []SettlementRecord
	err := s.db.Order("created_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// Totals summarizes the audit log for the stats view
func (s *Store) Totals() (map[string]interface{}, error) {
	var deliveries, settlements int
	if err := s.db.Model(&DeliveredTicket{}).Count(&deliveries).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&SettlementRecord{}).Count(&settlements).Error; err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"delivered_tickets": deliveries,
		"settlements":       settlements,
	}, nil
}
