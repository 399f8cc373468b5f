// Package fetch performs metadata-only lookups of external resources,
// used to validate image URLs before accepting them into a room.
package fetch

import (
	"context"
	"net/http"
	"time"
)

// Fetcher performs a HEAD request against url and returns the reported
// Content-Type. A transport failure returns an error; a response with
// no Content-Type returns ("", nil).
type Fetcher interface {
	Head(ctx context.Context, url string) (string, error)
}

// HTTPFetcher is the default Fetcher backed by net/http.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a Fetcher with the given timeout per request.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Head(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", err
	}
	res, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	return res.Header.Get("Content-Type"), nil
}
