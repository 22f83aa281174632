package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

// HTTPClient is the subset of *http.Client used by HTTPLoader.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPLoader fetches JSON exports from <BaseURL>/<category>.
type HTTPLoader struct {
	BaseURL string
	Client  HTTPClient
}

var _ contract.SourceLoader = &HTTPLoader{} // Compile-time check

// NewHTTPLoader returns a loader over baseURL whose requests time out after timeout.
func NewHTTPLoader(baseURL string, timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

// Load fetches and decodes the records of category.
func (l *HTTPLoader) Load(ctx context.Context, category schema.Category) (schema.RecordSet, error) {
	if l.BaseURL == "" {
		return schema.RecordSet{}, errors.New("empty source url")
	}
	endpoint, err := url.JoinPath(l.BaseURL, string(category))
	if err != nil {
		return schema.RecordSet{}, fmt.Errorf("invalid source url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return schema.RecordSet{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return schema.RecordSet{}, fmt.Errorf("failed to fetch %s records: %w", category, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return schema.RecordSet{}, fmt.Errorf("failed to fetch %s records: non-2xx: %d body=%s", category, resp.StatusCode, string(b))
	}
	return decodeJSON(category, resp.Body)
}

// Fingerprint is always empty: remote exports are fetched on every run.
func (l *HTTPLoader) Fingerprint(context.Context, schema.Category) (string, error) {
	return "", nil
}

// Location returns the base URL.
func (l *HTTPLoader) Location() string {
	return l.BaseURL
}
