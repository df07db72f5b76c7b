// Package storefront composes the catalog, the filter pipeline, the cart and
// persistence into one browsing session, and serves it over HTTP.
package storefront

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"librocart/internal/cart"
	"librocart/internal/catalog"
	"librocart/internal/filter"
	"librocart/internal/storage"
)

// Options configures Open.
type Options struct {
	Source    catalog.Source
	KV        storage.KV
	Namespace string
	Locale    language.Tag
	Pricing   cart.Pricing
	// Notifier also receives every notice. Optional.
	Notifier cart.Notifier
	Log      logrus.FieldLogger
}

// Session is a loaded storefront: the catalog with restored stock and the
// cart reconciled against it.
type Session struct {
	catalog  catalog.Store
	cart     cart.Store
	pipeline *filter.Pipeline
	locale   language.Tag
	log      logrus.FieldLogger
}

// ItemView is a catalog item as shown in the listing.
type ItemView struct {
	catalog.Item
	Available int `json:"available"`
}

// View is the result of applying filter criteria to the catalog.
type View struct {
	Criteria filter.Criteria `json:"criteria"`
	Items    []ItemView      `json:"items"`
	Count    int             `json:"count"`
	Genres   []string        `json:"genres"`
}

// CartView is the cart as exposed to the presentation.
type CartView struct {
	Lines  []cart.Line `json:"lines"`
	Badge  int         `json:"badge"`
	Totals cart.Totals `json:"totals"`
}

// Open loads the catalog and fails if it cannot. Persisted stock and cart
// are then overlaid; the stock snapshot is written back so it is always
// present after startup.
func Open(ctx context.Context, opts Options) (*Session, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Locale == language.Und {
		opts.Locale = filter.DefaultLocale
	}
	if opts.Pricing == (cart.Pricing{}) {
		opts.Pricing = cart.DefaultPricing()
	}
	kv := opts.KV
	if kv == nil {
		kv = storage.NewMemoryKV()
	}

	items, err := catalog.Load(ctx, opts.Source)
	if err != nil {
		return nil, fmt.Errorf("open storefront: %w", err)
	}
	cat := catalog.NewStore(items)

	adapter := storage.NewAdapter(kv, opts.Namespace, log)
	if snapshot := adapter.LoadStock(ctx); snapshot != nil {
		cat.RestoreStock(snapshot)
	}
	adapter.SaveStock(ctx, cat.StockSnapshot())

	c := cart.NewStore(cat, persister{adapter: adapter, catalog: cat},
		cart.WithPricing(opts.Pricing),
		cart.WithNotifier(&notifier{next: opts.Notifier, log: log}),
		cart.WithLogger(log),
	)
	c.Restore(ctx, adapter.LoadCart(ctx))

	log.WithFields(logrus.Fields{
		"items": cat.Len(),
		"badge": c.BadgeTotal(),
	}).Info("storefront: session opened")

	return &Session{
		catalog:  cat,
		cart:     c,
		pipeline: filter.New(opts.Locale),
		locale:   opts.Locale,
		log:      log,
	}, nil
}

// persister writes the cart and the stock snapshot after every cart mutation.
type persister struct {
	adapter *storage.Adapter
	catalog catalog.Store
}

func (p persister) SaveCart(ctx context.Context, lines []cart.Line) {
	p.adapter.SaveCart(ctx, lines)
	p.adapter.SaveStock(ctx, p.catalog.StockSnapshot())
}

// Cart exposes the cart intents.
func (s *Session) Cart() cart.Store {
	return s.cart
}

// View applies c to the catalog and annotates each item with how many more
// units may be added to the cart.
func (s *Session) View(c filter.Criteria) View {
	all := s.catalog.Items()
	matched := s.pipeline.Apply(all, c)

	items := make([]ItemView, len(matched))
	for i, item := range matched {
		items[i] = ItemView{Item: item, Available: s.cart.Available(item.ID)}
	}
	return View{
		Criteria: c,
		Items:    items,
		Count:    len(items),
		Genres:   s.pipeline.Genres(all),
	}
}

// Genres lists the distinct genres of the catalog in collation order.
func (s *Session) Genres() []string {
	return s.pipeline.Genres(s.catalog.Items())
}

func (s *Session) CartView() CartView {
	return CartView{
		Lines:  s.cart.Lines(),
		Badge:  s.cart.BadgeTotal(),
		Totals: s.cart.Totals(),
	}
}

// FormatPrice renders an amount with the grouping rules of the session locale.
func (s *Session) FormatPrice(d decimal.Decimal) string {
	return FormatPrice(s.locale, d)
}

func FormatPrice(tag language.Tag, d decimal.Decimal) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%v", number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
}
