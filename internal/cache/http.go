package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultHTTPClient is used by FetchURL when no client is supplied.
var DefaultHTTPClient = &http.Client{Timeout: 2 * time.Minute}

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// FetchURL returns a Fetcher that downloads url. Redirects are followed.
func FetchURL(client *http.Client, url string) Fetcher {
	if client == nil {
		client = DefaultHTTPClient
	}
	return func(ctx context.Context, w io.Writer) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", "broadcast/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("GET %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			return &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
		}
		if _, err := io.Copy(w, resp.Body); err != nil {
			return fmt.Errorf("read %s: %w", url, err)
		}
		return nil
	}
}
