package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
)

const fetchAttempts = 3

// ImageFetcher downloads raw image bytes. Decoding is left to the verifier so
// resolution limits apply before any pixel is decoded.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// FetcherOptions configures an HTTPImageFetcher
type FetcherOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	// Backoff returns the pause before retry number attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// DefaultFetcherOptions waits 1s then 2s between attempts.
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		Timeout:  30 * time.Second,
		MaxBytes: 10 * 1024 * 1024,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
	}
}

// HTTPImageFetcher implements ImageFetcher over HTTP with retries on transient failures
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
	backoff  func(attempt int) time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher with default options
func NewHTTPImageFetcher() *HTTPImageFetcher {
	return NewHTTPImageFetcherWithOptions(DefaultFetcherOptions())
}

func NewHTTPImageFetcherWithOptions(opts FetcherOptions) *HTTPImageFetcher {
	defaults := DefaultFetcherOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaults.MaxBytes
	}
	if opts.Backoff == nil {
		opts.Backoff = defaults.Backoff
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: opts.MaxBytes,
		backoff:  opts.Backoff,
	}
}

// FetchImage downloads imageURL. 5xx responses and network errors are retried
// up to three attempts; 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg, image/gif, image/bmp, image/tiff, image/webp, */*")
	req.Header.Set("User-Agent", "2d-code-verifier/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.backoff(attempt)):
			}
		}

		data, retry, err := h.fetchOnce(req)
		if err == nil {
			return data, nil
		}
		lastErr = err
		logger.WithError(err).WithFields(logrus.Fields{
			"url":     imageURL,
			"attempt": attempt + 1,
			"retry":   retry,
		}).Debug("Image fetch attempt failed")
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("failed to fetch image: %w", lastErr)
}

// fetchOnce performs one request and reports whether a failure is retryable.
func (h *HTTPImageFetcher) fetchOnce(req *http.Request) ([]byte, bool, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if resp.ContentLength > h.maxBytes {
		return nil, false, apperrors.NewTooLargeError(
			fmt.Sprintf("image is %d bytes, limit is %d", resp.ContentLength, h.maxBytes), nil)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, false, apperrors.NewTooLargeError(
			fmt.Sprintf("image exceeds %d bytes", h.maxBytes), nil)
	}
	return data, false, nil
}
