package storage

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"librocart/internal/cart"
)

// Adapter persists the stock snapshot and the cart under two keys of a KV.
//
// It never fails its caller. A failed write is logged and counted, and the
// in-memory state stays authoritative for the rest of the session. A missing
// or undecodable value reads as empty.
type Adapter struct {
	kv       KV
	stockKey string
	cartKey  string
	log      logrus.FieldLogger
	tracer   trace.Tracer
	failures metric.Int64Counter
}

// NewAdapter namespaces its keys as "<namespace>:stock" and "<namespace>:cart".
func NewAdapter(kv KV, namespace string, log logrus.FieldLogger) *Adapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	failures, err := otel.Meter("librocart/storage").Int64Counter("librocart.storage.failures",
		metric.WithDescription("Persistence reads and writes that were absorbed"))
	if err != nil {
		failures = noop.Int64Counter{}
	}
	return &Adapter{
		kv:       kv,
		stockKey: namespace + ":stock",
		cartKey:  namespace + ":cart",
		log:      log,
		tracer:   otel.Tracer("librocart/storage"),
		failures: failures,
	}
}

// LoadStock returns the persisted id to stock mapping, or nil.
func (a *Adapter) LoadStock(ctx context.Context) map[string]int {
	var snapshot map[string]int
	if !a.load(ctx, a.stockKey, &snapshot) {
		return nil
	}
	return snapshot
}

// SaveStock overwrites the persisted stock snapshot.
func (a *Adapter) SaveStock(ctx context.Context, snapshot map[string]int) {
	a.save(ctx, a.stockKey, snapshot)
}

// LoadCart returns the persisted cart lines, or nil.
func (a *Adapter) LoadCart(ctx context.Context) []cart.Line {
	var lines []cart.Line
	if !a.load(ctx, a.cartKey, &lines) {
		return nil
	}
	return lines
}

// SaveCart overwrites the persisted cart. It satisfies cart.Persister.
func (a *Adapter) SaveCart(ctx context.Context, lines []cart.Line) {
	if lines == nil {
		lines = []cart.Line{}
	}
	a.save(ctx, a.cartKey, lines)
}

// load decodes the value under key into dst. It reports false when the value
// is missing or unusable; dst may then hold a partial decode and must be
// discarded.
func (a *Adapter) load(ctx context.Context, key string, dst any) bool {
	ctx, span := a.tracer.Start(ctx, "storage.load", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	log := a.log.WithField("key", key)
	raw, ok, err := a.kv.Get(ctx, key)
	if err != nil {
		a.absorb(ctx, span, "read", err)
		log.WithError(err).Warn("storage: read failed, starting empty")
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		a.absorb(ctx, span, "decode", err)
		log.WithError(err).Warn("storage: corrupt value ignored")
		return false
	}
	return true
}

func (a *Adapter) save(ctx context.Context, key string, v any) {
	ctx, span := a.tracer.Start(ctx, "storage.save", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	log := a.log.WithField("key", key)
	data, err := json.Marshal(v)
	if err != nil {
		a.absorb(ctx, span, "encode", err)
		log.WithError(err).Warn("storage: encode failed")
		return
	}
	if err := a.kv.Set(ctx, key, string(data)); err != nil {
		a.absorb(ctx, span, "write", err)
		log.WithError(err).Warn("storage: write failed, keeping in-memory state")
	}
}

func (a *Adapter) absorb(ctx context.Context, span trace.Span, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	a.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
