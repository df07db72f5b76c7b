package storage

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInjected is returned by FaultyKV for the operations it fails on purpose.
var ErrInjected = errors.New("storage: injected fault")

// FaultyKV fails a fraction of the operations of the wrapped store. It is a
// chaos tool for checking that the session survives an unreliable backend.
type FaultyKV struct {
	KV
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// NewFaultyKV fails each Get and Set with probability rate, clamped to [0, 1].
func NewFaultyKV(kv KV, rate float64, seed uint64) *FaultyKV {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &FaultyKV{KV: kv, rate: rate, rng: rand.New(rand.NewPCG(seed, seed))}
}

func (f *FaultyKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.trip(ctx, "get", key) {
		return "", false, ErrInjected
	}
	return f.KV.Get(ctx, key)
}

func (f *FaultyKV) Set(ctx context.Context, key, value string) error {
	if f.trip(ctx, "set", key) {
		return ErrInjected
	}
	return f.KV.Set(ctx, key, value)
}

func (f *FaultyKV) trip(ctx context.Context, op, key string) bool {
	f.mu.Lock()
	hit := f.rng.Float64() < f.rate
	f.mu.Unlock()

	if hit {
		trace.SpanFromContext(ctx).AddEvent("chaos.fault_injected", trace.WithAttributes(
			attribute.String("kv.operation", op),
			attribute.String("kv.key", key),
		))
	}
	return hit
}
