package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrFetch wraps any failure to retrieve referenced media. Callers use
// it to substitute an apology reply instead of invoking the agent.
var ErrFetch = errors.New("media fetch failed")

const fetchTimeout = 20 * time.Second

// Fetcher downloads media referenced by inbound channel messages.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a media fetcher. Automatic redirect following is
// disabled: the channel provider issues exactly one signed redirect to
// its CDN, which is followed manually.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch retrieves the media bytes at rawURL. A redirect status with a
// Location header is followed with one additional GET; any non-success
// status after that is a failure.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if isRedirect(resp.StatusCode) {
		location := resp.Header.Get("Location")
		_ = resp.Body.Close()
		if location != "" {
			resp, err = f.get(ctx, location)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFetch, err)
			}
		} else {
			return nil, fmt.Errorf("%w: redirect without location", ErrFetch)
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return f.client.Do(req)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
