package cart

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const clearPrompt = "Empty the cart?"

// store owns the cart lines. Every mutating method is all-or-nothing and
// persists the resulting cart before returning.
type store struct {
	mu       sync.RWMutex
	lines    []Line
	catalog  Catalog
	persist  Persister
	notifier Notifier
	pricing  Pricing
	log      logrus.FieldLogger
	ops      metric.Int64Counter
}

var _ Store = (*store)(nil)

// Option configures the Store built by NewStore.
type Option func(*store)

func WithNotifier(n Notifier) Option {
	return func(s *store) { s.notifier = n }
}

func WithPricing(p Pricing) Option {
	return func(s *store) { s.pricing = p }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *store) { s.log = l }
}

// NewStore creates an empty cart reserving against cat.
func NewStore(cat Catalog, persist Persister, opts ...Option) Store {
	if persist == nil {
		persist = noOpPersister{}
	}
	s := &store{
		catalog:  cat,
		persist:  persist,
		notifier: NoOpNotifier{},
		pricing:  DefaultPricing(),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ops, err := otel.Meter("librocart/cart").Int64Counter("librocart.cart.operations",
		metric.WithDescription("Cart intents by operation and outcome"))
	if err != nil {
		s.log.WithError(err).Warn("cart: operations counter unavailable")
		ops = noop.Int64Counter{}
	}
	s.ops = ops
	return s
}

// Restore replaces the cart with previously persisted lines, dropping lines
// that no longer satisfy 1 <= quantity <= stock: unknown items, duplicates
// and sold-out items are dropped, excess quantities are clamped. The cart is
// persisted again only if reconciliation changed something.
func (s *store) Restore(ctx context.Context, lines []Line) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := make([]Line, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	changed := false
	for _, line := range lines {
		item, ok := s.catalog.FindByID(line.ItemID)
		_, dup := seen[line.ItemID]
		if !ok || dup || line.Quantity < 1 || item.Stock < 1 {
			s.log.WithField("item_id", line.ItemID).Warn("cart: dropping persisted line")
			changed = true
			continue
		}
		if line.Quantity > item.Stock {
			line.Quantity = item.Stock
			changed = true
		}
		seen[line.ItemID] = struct{}{}
		restored = append(restored, line)
	}

	s.lines = restored
	if changed {
		s.persist.SaveCart(ctx, s.snapshot())
	}
}

// AddOne reserves one more unit of an item. It fails with an
// *InsufficientStockError when the cart already holds all the stock.
func (s *store) AddOne(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.catalog.FindByID(itemID)
	if !ok {
		s.count(ctx, "add", "not_found")
		return ErrItemNotFound
	}

	i := s.indexOf(itemID)
	reserved := 0
	if i >= 0 {
		reserved = s.lines[i].Quantity
	}

	if reserved+1 > item.Stock {
		s.count(ctx, "add", "rejected")
		s.notifier.Notify(ctx, Notice{Kind: NoticeRejected, ItemID: itemID, Title: item.Title, Available: item.Stock})
		return &InsufficientStockError{ItemID: itemID, Available: item.Stock}
	}

	if i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, Line{
			ItemID:       item.ID,
			Title:        item.Title,
			Price:        item.Price,
			Image:        item.Cover,
			StockCeiling: item.Stock,
			Quantity:     1,
		})
	}

	s.persist.SaveCart(ctx, s.snapshot())
	s.count(ctx, "add", "ok")
	s.notifier.Notify(ctx, Notice{Kind: NoticeAdded, ItemID: itemID, Title: item.Title, Quantity: reserved + 1})
	return nil
}

// SetQuantity sets the quantity of an existing line from raw user input.
// Input that is not a positive integer counts as 1 and quantities above the
// item's stock are clamped to it. A line whose item has no stock left is
// removed.
func (s *store) SetQuantity(ctx context.Context, itemID, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(itemID)
	if i < 0 {
		s.count(ctx, "set_quantity", "not_found")
		return ErrLineNotFound
	}
	item, ok := s.catalog.FindByID(itemID)
	if !ok {
		s.count(ctx, "set_quantity", "not_found")
		return ErrItemNotFound
	}

	if item.Stock < 1 {
		// Nothing left to clamp to; the line cannot stay in the cart.
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
		s.persist.SaveCart(ctx, s.snapshot())
		s.count(ctx, "set_quantity", "sold_out")
		s.notifier.Notify(ctx, Notice{Kind: NoticeRemoved, ItemID: itemID, Title: item.Title})
		return nil
	}

	requested := ParseQuantity(raw)
	quantity := requested
	if quantity > item.Stock {
		quantity = item.Stock
	}
	s.lines[i].Quantity = quantity

	s.persist.SaveCart(ctx, s.snapshot())
	s.count(ctx, "set_quantity", "ok")
	if quantity != requested {
		s.notifier.Notify(ctx, Notice{Kind: NoticeClamped, ItemID: itemID, Title: item.Title, Quantity: quantity, Available: item.Stock})
	}
	return nil
}

// Remove drops the line for itemID. Removing an absent item is a no-op.
func (s *store) Remove(ctx context.Context, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(itemID); i >= 0 {
		removed := s.lines[i]
		s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
		s.notifier.Notify(ctx, Notice{Kind: NoticeRemoved, ItemID: itemID, Title: removed.Title})
	}

	s.persist.SaveCart(ctx, s.snapshot())
	s.count(ctx, "remove", "ok")
}

// Clear empties the cart unconditionally.
func (s *store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.persist.SaveCart(ctx, s.snapshot())
	s.count(ctx, "clear", "ok")
	s.notifier.Notify(ctx, Notice{Kind: NoticeCleared})
}

// ConfirmAndClear empties the cart only if c confirms. It reports whether
// the cart was cleared.
func (s *store) ConfirmAndClear(ctx context.Context, c Confirmer) bool {
	if s.BadgeTotal() == 0 {
		return false
	}
	if !c.Confirm(ctx, clearPrompt) {
		s.count(ctx, "clear", "declined")
		return false
	}
	s.Clear(ctx)
	return true
}

// ReservedQuantity returns how many units of itemID the cart holds.
func (s *store) ReservedQuantity(itemID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(itemID); i >= 0 {
		return s.lines[i].Quantity
	}
	return 0
}

// Available returns how many more units of itemID can be added: stock minus
// the reserved quantity.
func (s *store) Available(itemID string) int {
	item, ok := s.catalog.FindByID(itemID)
	if !ok {
		return 0
	}
	available := item.Stock - s.ReservedQuantity(itemID)
	if available < 0 {
		return 0
	}
	return available
}

// BadgeTotal is the sum of all line quantities.
func (s *store) BadgeTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// Lines returns a copy of the cart in insertion order.
func (s *store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Totals computes the order totals of the current cart.
func (s *store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pricing.Compute(s.lines)
}

func (s *store) indexOf(itemID string) int {
	for i, line := range s.lines {
		if line.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (s *store) snapshot() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *store) count(ctx context.Context, op, outcome string) {
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
}
