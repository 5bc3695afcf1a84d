package cnml

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client fetches CNML documents
type Client interface {
	Fetch(ctx context.Context, area string) ([]byte, error)
}

// HTTPClient is the default implementation of Client that talks to a CNML service
type HTTPClient struct {
	Endpoint string
	HTTP     *http.Client
}

// NewHTTPClient creates a client for the CNML service at endpoint
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// URL returns the detail document URL of an area.
func (c *HTTPClient) URL(area string) string {
	return fmt.Sprintf("%s/%s/detail", c.Endpoint, url.PathEscape(area))
}

// Fetch downloads the detail document of an area.
// It respects the provided context for cancellation.
func (c *HTTPClient) Fetch(ctx context.Context, area string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(area), nil)
	if err != nil {
		return nil, fmt.Errorf("building CNML request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching CNML area %s: %w", area, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching CNML area %s: %s", area, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading CNML area %s: %w", area, err)
	}
	return data, nil
}
