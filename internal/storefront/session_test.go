package storefront

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"librocart/internal/cart"
	"librocart/internal/catalog"
	"librocart/internal/filter"
	"librocart/internal/storage"
)

const testCatalog = `[
	{"id": 1, "titulo": "Rayuela", "autor": "Julio Cortázar", "genero": "Novela", "anio": 1963, "precio": 18500, "portada": "img/1.jpg", "stock": 2},
	{"id": 2, "titulo": "Ficciones", "autor": "Jorge Luis Borges", "genero": "Cuentos", "anio": 1944, "precio": 12000, "portada": "img/2.jpg", "stock": 1},
	{"id": 3, "titulo": "El túnel", "autor": "Ernesto Sabato", "genero": "Novela", "anio": 1948, "precio": 9000, "portada": "img/3.jpg", "stock": 0}
]`

type stringSource string

func (s stringSource) Fetch(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(s))), nil
}

type failingSource struct{}

func (failingSource) Fetch(context.Context) (io.ReadCloser, error) {
	return nil, errors.New("connection refused")
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openTestSession(t *testing.T, kv storage.KV) *Session {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Source:    stringSource(testCatalog),
		KV:        kv,
		Namespace: "test",
		Log:       quietLogger(),
	})
	require.NoError(t, err)
	return s
}

func TestOpen_LoadFailureIsFatal(t *testing.T) {
	_, err := Open(context.Background(), Options{Source: failingSource{}, Log: quietLogger()})
	assert.ErrorIs(t, err, catalog.ErrLoad)

	_, err = Open(context.Background(), Options{Source: stringSource(`{"broken"`), Log: quietLogger()})
	assert.ErrorIs(t, err, catalog.ErrParse)
}

func TestOpen_WritesStockSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	openTestSession(t, kv)

	stock := storage.NewAdapter(kv, "test", quietLogger()).LoadStock(ctx)
	assert.Equal(t, map[string]int{"1": 2, "2": 1, "3": 0}, stock)
}

func TestOpen_RestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "test:stock", `{"1": 1, "99": 4}`))
	require.NoError(t, kv.Set(ctx, "test:cart",
		`[{"id": "1", "title": "Rayuela", "price": "18500", "quantity": 3}, {"id": "99", "quantity": 1}, {"id": "2", "quantity": 1}]`))

	s := openTestSession(t, kv)

	lines := s.Cart().Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[0].ItemID)
	assert.Equal(t, 1, lines[0].Quantity, "clamped to the restored stock")
	assert.Equal(t, "2", lines[1].ItemID)

	persisted := storage.NewAdapter(kv, "test", quietLogger()).LoadCart(ctx)
	assert.Len(t, persisted, 2)
}

func TestOpen_CorruptStateStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "test:cart", `not json`))

	s := openTestSession(t, kv)
	assert.Zero(t, s.Cart().BadgeTotal())
}

func TestSession_View(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, nil)
	require.NoError(t, s.Cart().AddOne(ctx, "1"))

	v := s.View(filter.Criteria{Genre: "Novela", Sort: filter.SortPriceAsc})
	require.Equal(t, 2, v.Count)
	assert.Equal(t, "3", v.Items[0].ID)
	assert.Equal(t, 0, v.Items[0].Available)
	assert.Equal(t, "1", v.Items[1].ID)
	assert.Equal(t, 1, v.Items[1].Available)
	assert.Equal(t, []string{"Cuentos", "Novela"}, v.Genres)

	v = s.View(filter.Criteria{Query: "CORTAZAR"})
	require.Equal(t, 1, v.Count)
	assert.Equal(t, "Rayuela", v.Items[0].Title)

	v = s.View(filter.Reset())
	assert.Equal(t, 3, v.Count)
}

func TestSession_CartView(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, nil)
	require.NoError(t, s.Cart().AddOne(ctx, "1"))
	require.NoError(t, s.Cart().AddOne(ctx, "1"))
	require.NoError(t, s.Cart().AddOne(ctx, "2"))

	cv := s.CartView()
	assert.Equal(t, 3, cv.Badge)
	assert.True(t, cv.Totals.Subtotal.Equal(decimal.NewFromInt(49000)))
	assert.True(t, cv.Totals.Shipping.Equal(decimal.NewFromInt(2500)))
	assert.True(t, cv.Totals.Total.Equal(decimal.NewFromInt(51500)))
}

type recordingNotifier struct {
	notices []cart.Notice
}

func (r *recordingNotifier) Notify(_ context.Context, n cart.Notice) {
	r.notices = append(r.notices, n)
}

func TestOpen_ForwardsNotices(t *testing.T) {
	rec := &recordingNotifier{}
	s, err := Open(context.Background(), Options{
		Source:   stringSource(testCatalog),
		Notifier: rec,
		Log:      quietLogger(),
	})
	require.NoError(t, err)

	require.NoError(t, s.Cart().AddOne(context.Background(), "2"))
	require.Error(t, s.Cart().AddOne(context.Background(), "2"))

	require.Len(t, rec.notices, 2)
	assert.Equal(t, cart.NoticeAdded, rec.notices[0].Kind)
	assert.Equal(t, cart.NoticeRejected, rec.notices[1].Kind)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "18.500", FormatPrice(language.MustParse("es-AR"), decimal.NewFromInt(18500)))
	assert.Equal(t, "18,500", FormatPrice(language.English, decimal.NewFromInt(18500)))
}

// Persistence failing half the time must not break the cart: every line keeps
// 1 <= quantity <= stock and the session keeps serving intents.
func TestSession_SurvivesFlakyStorage(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewFaultyKV(storage.NewMemoryKV(), 0.5, 3)
	s := openTestSession(t, kv)

	ids := []string{"1", "2", "3", "404"}
	quantities := []string{"0", "1", "2", "9", "abc"}
	for i := 0; i < 200; i++ {
		id := ids[i%len(ids)]
		switch i % 4 {
		case 0, 1:
			_ = s.Cart().AddOne(ctx, id)
		case 2:
			_ = s.Cart().SetQuantity(ctx, id, quantities[i%len(quantities)])
		case 3:
			if i%12 == 3 {
				s.Cart().Remove(ctx, id)
			}
		}

		for _, line := range s.Cart().Lines() {
			view := s.View(filter.Criteria{})
			var stock int
			for _, item := range view.Items {
				if item.ID == line.ItemID {
					stock = item.Stock
				}
			}
			require.GreaterOrEqual(t, line.Quantity, 1)
			require.LessOrEqual(t, line.Quantity, stock)
		}
	}
}

func TestSession_PersistsAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := openTestSession(t, kv)
	require.NoError(t, kv.Set(ctx, "test:stock", `{}`))

	require.NoError(t, s.Cart().AddOne(ctx, "1"))

	a := storage.NewAdapter(kv, "test", quietLogger())
	assert.Equal(t, map[string]int{"1": 2, "2": 1, "3": 0}, a.LoadStock(ctx))
	require.Len(t, a.LoadCart(ctx), 1)

	// A reload sees the same cart.
	reloaded := openTestSession(t, kv)
	assert.Equal(t, s.Cart().Lines()[0].ItemID, reloaded.Cart().Lines()[0].ItemID)
	assert.Equal(t, 1, reloaded.Cart().BadgeTotal())
}
