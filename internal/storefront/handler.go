package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"librocart/internal/cart"
	"librocart/internal/filter"
)

// Handler serves a Session as a JSON API.
type Handler struct {
	session *Session
}

func NewHandler(session *Session) *Handler {
	return &Handler{session: session}
}

type cartResponse struct {
	CartView
	Notices []cart.Notice `json:"notices,omitempty"`
}

type errorResponse struct {
	Error     string        `json:"error"`
	Available *int          `json:"available,omitempty"`
	Notices   []cart.Notice `json:"notices,omitempty"`
}

func (h *Handler) HandleItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := filter.Criteria{
		Query: q.Get("q"),
		Genre: q.Get("genre"),
		Sort:  filter.ParseSortKey(q.Get("sort")),
	}
	writeJSON(w, http.StatusOK, h.session.View(criteria))
}

func (h *Handler) HandleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Genres())
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cartResponse{CartView: h.session.CartView()})
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx, box := withNotices(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.session.Cart().AddOne(ctx, id); err != nil {
		h.writeCartError(w, err, box)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{CartView: h.session.CartView(), Notices: box.list()})
}

func (h *Handler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, box := withNotices(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Quantity json.RawMessage `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.session.Cart().SetQuantity(ctx, id, rawQuantity(req.Quantity)); err != nil {
		h.writeCartError(w, err, box)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{CartView: h.session.CartView(), Notices: box.list()})
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, box := withNotices(r.Context())
	h.session.Cart().Remove(ctx, chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, cartResponse{CartView: h.session.CartView(), Notices: box.list()})
}

// HandleClearCart empties the cart. The client confirms with ?confirm=true
// or an X-Confirm header; without it a non-empty cart is left untouched.
func (h *Handler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, box := withNotices(r.Context())
	confirmed := isTrue(r.URL.Query().Get("confirm")) || isTrue(r.Header.Get("X-Confirm"))

	c := h.session.Cart()
	if c.BadgeTotal() > 0 && !c.ConfirmAndClear(ctx, cart.ConfirmFunc(func(_ context.Context, _ string) bool { return confirmed })) {
		writeJSON(w, http.StatusPreconditionRequired, errorResponse{Error: "confirmation required"})
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{CartView: h.session.CartView(), Notices: box.list()})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeCartError(w http.ResponseWriter, err error, box *noticeBox) {
	var stockErr *cart.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Available: &available, Notices: box.list()})
	case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, cart.ErrLineNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// rawQuantity turns the JSON quantity into the raw text the cart parses:
// strings are unquoted, anything else is passed through as written.
func rawQuantity(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	return string(msg)
}

func isTrue(s string) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return strings.EqualFold(s, "yes")
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
