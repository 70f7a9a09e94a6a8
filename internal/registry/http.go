package registry

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/vango-dev/marketplace/internal/errors"
)

// maxCatalogBytes bounds the size of a remote catalog document.
const maxCatalogBytes = 8 << 20

// HTTPSource fetches a catalog feed over HTTP(S), retrying transient
// failures.
type HTTPSource struct {
	url    string
	client *retryablehttp.Client
}

// NewHTTPSource creates a feed source for url.
func NewHTTPSource(url string, opts SourceOptions) *HTTPSource {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = opts.Logger
	}

	return &HTTPSource{url: url, client: client}
}

// WithRetryWait overrides the retry backoff bounds.
func (s *HTTPSource) WithRetryWait(min, max time.Duration) *HTTPSource {
	s.client.RetryWaitMin = min
	s.client.RetryWaitMax = max
	return s
}

// Entries downloads and decodes the feed.
func (s *HTTPSource) Entries(ctx context.Context) ([]*Entry, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.New(errors.CodeSourceUnavailable).Wrap(err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.New(errors.CodeSourceUnavailable).
			WithDetail("Could not connect to catalog feed " + s.url).
			WithSuggestion("Check your internet connection").
			Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.CodeSourceUnavailable).
			WithDetail(fmt.Sprintf("Catalog feed %s returned status %d", s.url, resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, errors.New(errors.CodeSourceUnavailable).Wrap(err)
	}

	format := FormatFor(s.url)
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		switch mt {
		case "application/json":
			format = FormatJSON
		case "application/yaml", "application/x-yaml", "text/yaml":
			format = FormatYAML
		}
	}
	return Decode(data, format)
}

func (s *HTTPSource) String() string { return s.url }
