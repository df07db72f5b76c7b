package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrLoad is returned when the catalog source cannot be reached or answers
	// with a non-success status.
	ErrLoad = errors.New("catalog: load failed")
	// ErrParse is returned when the catalog payload is not a well-formed item array.
	ErrParse = errors.New("catalog: malformed payload")
)

// Item represents a book offered in the catalog.
type Item struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Genre  string          `json:"genre"`
	Year   int             `json:"year"`
	Price  decimal.Decimal `json:"price"`
	Cover  string          `json:"cover"`
	Stock  int             `json:"stock"`
}

// sourceItem is the wire shape served by the catalog source.
type sourceItem struct {
	ID     sourceID        `json:"id" validate:"required"`
	Title  string          `json:"titulo" validate:"required"`
	Author string          `json:"autor"`
	Genre  string          `json:"genero"`
	Year   int             `json:"anio"`
	Price  decimal.Decimal `json:"precio"`
	Cover  string          `json:"portada"`
	Stock  int             `json:"stock" validate:"gte=0"`
}

func (s sourceItem) toItem() Item {
	return Item{
		ID:     string(s.ID),
		Title:  s.Title,
		Author: s.Author,
		Genre:  s.Genre,
		Year:   s.Year,
		Price:  s.Price,
		Cover:  s.Cover,
		Stock:  s.Stock,
	}
}

// sourceID accepts either a JSON string or a JSON number and keeps its
// canonical string form.
type sourceID string

func (id *sourceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = sourceID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = sourceID(canonicalNumber(n))
	return nil
}

// canonicalNumber renders a numeric id in its shortest decimal form, so 1,
// 1.0 and 1e0 name the same item. Integers beyond float precision keep
// their literal digits.
func canonicalNumber(n json.Number) string {
	text := n.String()
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if !strings.ContainsAny(text, ".eE") {
		return text
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
