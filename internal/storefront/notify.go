package storefront

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"librocart/internal/cart"
)

type noticesKey struct{}

// noticeBox collects the notices raised while handling one request.
type noticeBox struct {
	mu      sync.Mutex
	notices []cart.Notice
}

func withNotices(ctx context.Context) (context.Context, *noticeBox) {
	box := &noticeBox{}
	return context.WithValue(ctx, noticesKey{}, box), box
}

func (b *noticeBox) list() []cart.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]cart.Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

// notifier logs every notice, records it in the request's box if any, and
// forwards it to next.
type notifier struct {
	next cart.Notifier
	log  logrus.FieldLogger
}

func (n *notifier) Notify(ctx context.Context, notice cart.Notice) {
	n.log.WithFields(logrus.Fields{
		"kind":    notice.Kind,
		"item_id": notice.ItemID,
	}).Debug("cart notice")

	if box, ok := ctx.Value(noticesKey{}).(*noticeBox); ok {
		box.mu.Lock()
		box.notices = append(box.notices, notice)
		box.mu.Unlock()
	}
	if n.next != nil {
		n.next.Notify(ctx, notice)
	}
}
