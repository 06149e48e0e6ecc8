package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MediaFetcher retrieves raw media bytes for submission to the remote
// processing service.
type MediaFetcher interface {
	// Fetch downloads the media at mediaURL, returning the bytes and the
	// reported content type.
	Fetch(ctx context.Context, mediaURL string) ([]byte, string, error)
}

// HTTPMediaFetcher implements MediaFetcher over plain HTTP(S).
type HTTPMediaFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPMediaFetcher creates an HTTP media fetcher capped at maxBytes per
// download.
func NewHTTPMediaFetcher(maxBytes int64) MediaFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &HTTPMediaFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

func (h *HTTPMediaFetcher) Fetch(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "video/*, image/*, */*")
	req.Header.Set("User-Agent", "Spatial-Agent/1.0")

	// Retry transient failures, 3 attempts with linear backoff. 4xx responses
	// are not retryable.
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			resp.Body.Close()
			return nil, "", fmt.Errorf("client error: status code %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			continue
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read media body: %w", err)
			continue
		}
		if int64(len(data)) > h.maxBytes {
			return nil, "", fmt.Errorf("media exceeds the %d byte limit", h.maxBytes)
		}

		return data, resp.Header.Get("Content-Type"), nil
	}

	return nil, "", fmt.Errorf("failed to fetch media after 3 attempts: %w", lastErr)
}
