package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librocart/internal/cart"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// countingKV counts writes reaching the wrapped store.
type countingKV struct {
	KV
	writes int
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	c.writes++
	return c.KV.Set(ctx, key, value)
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestAdapter_CartRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryKV(), "test", quietLogger())

	lines := []cart.Line{
		{ItemID: "2", Title: "Ficciones", Price: decimal.RequireFromString("12000.50"), Image: "img/2.jpg", StockCeiling: 3, Quantity: 2},
		{ItemID: "1", Title: "Rayuela", Price: decimal.NewFromInt(18500), Image: "img/1.jpg", StockCeiling: 1, Quantity: 1},
	}
	a.SaveCart(ctx, lines)

	got := a.LoadCart(ctx)
	if diff := cmp.Diff(lines, got, decimalEqual); diff != "" {
		t.Errorf("cart round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_StockRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryKV(), "test", quietLogger())

	assert.Nil(t, a.LoadStock(ctx))

	a.SaveStock(ctx, map[string]int{"1": 3, "2": 0})
	assert.Equal(t, map[string]int{"1": 3, "2": 0}, a.LoadStock(ctx))
}

func TestAdapter_EmptyCartIsStoredAsArray(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	a := NewAdapter(kv, "ns", quietLogger())

	a.SaveCart(ctx, nil)

	raw, ok, err := kv.Get(ctx, "ns:cart")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)
	assert.Empty(t, a.LoadCart(ctx))
}

func TestAdapter_CorruptValuesReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "ns:stock", `{"1": 4, "2": "lots"}`))
	require.NoError(t, kv.Set(ctx, "ns:cart", `[{"id": "1", "quantity": `))

	a := NewAdapter(kv, "ns", quietLogger())
	assert.Nil(t, a.LoadStock(ctx), "a partially decoded snapshot is discarded")
	assert.Nil(t, a.LoadCart(ctx))
}

func TestAdapter_AbsorbsFailures(t *testing.T) {
	ctx := context.Background()
	backing := NewMemoryKV()
	a := NewAdapter(NewFaultyKV(backing, 1, 1), "ns", quietLogger())

	assert.NotPanics(t, func() {
		a.SaveCart(ctx, []cart.Line{{ItemID: "1", Quantity: 1}})
		a.SaveStock(ctx, map[string]int{"1": 1})
	})
	_, ok, err := backing.Get(ctx, "ns:cart")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, a.LoadCart(ctx))
	assert.Nil(t, a.LoadStock(ctx))
}

func TestAdapter_NamespacesKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	first := NewAdapter(kv, "first", quietLogger())
	second := NewAdapter(kv, "second", quietLogger())

	first.SaveStock(ctx, map[string]int{"1": 1})
	assert.Nil(t, second.LoadStock(ctx))
}

func TestFileKV_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "a", "1"))
	require.NoError(t, kv.Set(ctx, "b", "2"))
	require.NoError(t, kv.Set(ctx, "a", "3"))

	reopened, err := NewFileKV(path)
	require.NoError(t, err)

	v, ok, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok, err = reopened.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileKV_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	kv, err := NewFileKV(path)
	require.NoError(t, err)

	_, _, err = kv.Get(ctx, "a")
	assert.Error(t, err)

	require.NoError(t, kv.Set(ctx, "a", "1"), "writes replace an unreadable file")
	v, ok, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "floppy"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	kv, err := Open(context.Background(), Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)
}

func TestFaultyKV_Rates(t *testing.T) {
	ctx := context.Background()

	never := NewFaultyKV(NewMemoryKV(), 0, 7)
	always := NewFaultyKV(NewMemoryKV(), 2, 7)
	for i := 0; i < 50; i++ {
		assert.NoError(t, never.Set(ctx, "k", "v"))
		assert.ErrorIs(t, always.Set(ctx, "k", "v"), ErrInjected)
	}

	counting := &countingKV{KV: NewMemoryKV()}
	half := NewFaultyKV(counting, 0.5, 42)
	failed := 0
	for i := 0; i < 1000; i++ {
		if err := half.Set(ctx, "k", "v"); err != nil {
			failed++
		}
	}
	assert.Equal(t, 1000-failed, counting.writes)
	assert.InDelta(t, 500, failed, 100)
}

func TestOpen_WrapsWithFaults(t *testing.T) {
	kv, err := Open(context.Background(), Options{Backend: "memory", FaultRate: 0.1})
	require.NoError(t, err)
	assert.IsType(t, &FaultyKV{}, kv)
}
