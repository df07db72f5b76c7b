package cart

import (
	"context"

	"librocart/internal/catalog"
)

// Store is the cart state machine. Mutations are all-or-nothing and persist
// the resulting cart before returning.
type Store interface {
	Restore(ctx context.Context, lines []Line)
	AddOne(ctx context.Context, itemID string) error
	SetQuantity(ctx context.Context, itemID, raw string) error
	Remove(ctx context.Context, itemID string)
	Clear(ctx context.Context)
	ConfirmAndClear(ctx context.Context, c Confirmer) bool

	ReservedQuantity(itemID string) int
	Available(itemID string) int
	BadgeTotal() int
	Lines() []Line
	Totals() Totals
}

// Catalog resolves the items lines refer to.
type Catalog interface {
	FindByID(id string) (catalog.Item, bool)
}

// Persister stores the cart after every mutation. Implementations must not
// fail the caller; write errors are theirs to absorb.
type Persister interface {
	SaveCart(ctx context.Context, lines []Line)
}

// Notifier receives user-facing notices (toasts, alerts).
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Confirmer asks the user to confirm a destructive intent.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// NoOpNotifier discards notices.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(context.Context, Notice) {}

type noOpPersister struct{}

func (noOpPersister) SaveCart(context.Context, []Line) {}
