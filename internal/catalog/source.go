package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Source yields the raw catalog payload.
type Source interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads the catalog from a local JSON file.
type FileSource string

func (f FileSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return file, nil
}

var validate = validator.New()

// Load fetches and decodes the catalog. It never returns a partial result:
// any failure yields a nil slice and an error matching ErrLoad or ErrParse.
func Load(ctx context.Context, src Source) ([]Item, error) {
	ctx, span := otel.Tracer("librocart/catalog").Start(ctx, "catalog.load")
	defer span.End()

	items, err := load(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("items.loaded", len(items)))
	return items, nil
}

func load(ctx context.Context, src Source) ([]Item, error) {
	body, err := src.Fetch(ctx)
	if err != nil {
		return nil, wrapLoad(err)
	}
	defer body.Close()

	var raw []sourceItem
	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected an item array", ErrParse)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after item array", ErrParse)
	}

	items := make([]Item, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrParse, i, err)
		}
		if r.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d: negative price", ErrParse, i)
		}
		if _, dup := seen[string(r.ID)]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrParse, r.ID)
		}
		seen[string(r.ID)] = struct{}{}
		items = append(items, r.toItem())
	}

	trace.SpanFromContext(ctx).AddEvent("catalog.decoded")
	return items, nil
}

func wrapLoad(err error) error {
	if errors.Is(err, ErrLoad) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrLoad, err)
}
