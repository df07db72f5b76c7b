// internal/clients/catalog_client.go
package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"librocart/internal/catalog"
)

// CatalogClient fetches the catalog document from a remote URL. It satisfies
// catalog.Source.
type CatalogClient struct {
	url    string
	client *http.Client
}

func NewCatalogClient(url string) *CatalogClient {
	return &CatalogClient{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CatalogClient) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrLoad, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrLoad, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status code: %d", catalog.ErrLoad, resp.StatusCode)
	}

	return resp.Body, nil
}
