package model

import "time"

// Product represents a catalogue product. Stock is owned by the
// inventory ledger during order processing; only administrative edits
// touch it directly.
type Product struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	Image     string    `json:"image" db:"image"`
	Category  string    `json:"category" db:"category"`
	Stock     int       `json:"stock" db:"stock"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ReservationItem is a (product, quantity) pair passed to the
// inventory ledger.
type ReservationItem struct {
	ProductID string
	Quantity  int
}

// Availability reports the stock position of one product against a
// requested quantity.
type Availability struct {
	ProductID    string `json:"productId"`
	Available    bool   `json:"available"`
	CurrentStock int    `json:"currentStock"`
	Requested    int    `json:"requested"`
}
