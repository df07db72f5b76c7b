// Package filter derives the browsable view of the catalog from a set of
// criteria. Everything here is a pure function of its inputs.
package filter

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"librocart/internal/catalog"
)

// SortKey selects the ordering of the view.
type SortKey string

const (
	SortDefault   SortKey = "default"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortTitleAsc  SortKey = "title-asc"
)

// ParseSortKey maps user input to a SortKey. The storefront's select values
// are accepted as aliases; anything unrecognised is SortDefault.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price-asc", "precio-asc":
		return SortPriceAsc
	case "price-desc", "precio-desc":
		return SortPriceDesc
	case "title-asc", "titulo-asc":
		return SortTitleAsc
	default:
		return SortDefault
	}
}

// Criteria describes the user's current filter selection.
type Criteria struct {
	Query string  `json:"q"`
	Genre string  `json:"genre"`
	Sort  SortKey `json:"sort"`
}

// Reset returns the criteria of a freshly opened storefront.
func Reset() Criteria {
	return Criteria{Sort: SortDefault}
}

// DefaultLocale is used for title collation when none is configured.
var DefaultLocale = language.MustParse("es-AR")

// Pipeline applies criteria using the collation rules of a locale.
type Pipeline struct {
	locale language.Tag
}

// New creates a pipeline collating titles for the given locale.
func New(locale language.Tag) *Pipeline {
	return &Pipeline{locale: locale}
}

// Apply filters and sorts items with the default locale.
func Apply(items []catalog.Item, c Criteria) []catalog.Item {
	return New(DefaultLocale).Apply(items, c)
}

// Apply returns a new slice holding the items matching c in the order c asks
// for. The input slice is left untouched.
func (p *Pipeline) Apply(items []catalog.Item, c Criteria) []catalog.Item {
	query := Normalize(strings.TrimSpace(c.Query))

	out := make([]catalog.Item, 0, len(items))
	for _, item := range items {
		if c.Genre != "" && item.Genre != c.Genre {
			continue
		}
		if query != "" &&
			!strings.Contains(Normalize(item.Title), query) &&
			!strings.Contains(Normalize(item.Author), query) {
			continue
		}
		out = append(out, item)
	}

	switch ParseSortKey(string(c.Sort)) {
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Price.LessThan(out[j].Price)
		})
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Price.GreaterThan(out[j].Price)
		})
	case SortTitleAsc:
		// Collators keep scratch buffers, so each call gets its own.
		col := collate.New(p.locale, collate.IgnoreCase)
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].Title, out[j].Title) < 0
		})
	}

	return out
}

// Genres lists the distinct non-empty genres of items in collation order.
func (p *Pipeline) Genres(items []catalog.Item) []string {
	seen := make(map[string]struct{})
	genres := make([]string, 0)
	for _, item := range items {
		if item.Genre == "" {
			continue
		}
		if _, ok := seen[item.Genre]; ok {
			continue
		}
		seen[item.Genre] = struct{}{}
		genres = append(genres, item.Genre)
	}

	collate.New(p.locale).SortStrings(genres)
	return genres
}

// Genres lists the distinct genres of items using the default locale.
func Genres(items []catalog.Item) []string {
	return New(DefaultLocale).Genres(items)
}
