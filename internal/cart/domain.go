package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotFound      = errors.New("item not found")
	ErrLineNotFound      = errors.New("item is not in the cart")
)

// Line is a reservation of an item held in the cart. Title, Price and Image
// are captured when the line is created and are not refreshed afterwards.
type Line struct {
	ItemID       string          `json:"id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image"`
	StockCeiling int             `json:"stock_ceiling"`
	Quantity     int             `json:"quantity"`
}

// InsufficientStockError reports an add rejected because the cart already
// holds every unit in stock.
type InsufficientStockError struct {
	ItemID    string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: %d available", e.ItemID, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NoticeKind classifies a notification raised by the cart.
type NoticeKind string

const (
	NoticeAdded    NoticeKind = "added"
	NoticeRejected NoticeKind = "rejected"
	NoticeClamped  NoticeKind = "clamped"
	NoticeRemoved  NoticeKind = "removed"
	NoticeCleared  NoticeKind = "cleared"
)

// Notice is handed to the Notifier after a cart intent completes.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	ItemID    string     `json:"item_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Quantity  int        `json:"quantity,omitempty"`
	Available int        `json:"available,omitempty"`
}
