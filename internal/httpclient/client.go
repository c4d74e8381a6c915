// Package httpclient provides the bounded HTTP client shared by the
// external-system adapters.
package httpclient

import (
	"net/http"
	"time"

	"github.com/legalflow/lexsync/errors"
)

// DefaultTimeout bounds every outbound call so a hung remote cannot hold a
// job lock indefinitely.
const DefaultTimeout = 30 * time.Second

const defaultMaxRedirects = 10

// Client wraps http.Client with a mandatory timeout and a redirect cap.
type Client struct {
	*http.Client
	maxRedirects int
}

// Options customizes client behavior.
type Options struct {
	MaxRedirects *int // Default: 10
}

// New creates an HTTP client with the given timeout. A zero timeout falls
// back to DefaultTimeout.
func New(timeout time.Duration) *Client {
	return NewWithOptions(timeout, Options{})
}

// NewWithOptions creates an HTTP client with custom options.
func NewWithOptions(timeout time.Duration, opts Options) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	maxRedirects := defaultMaxRedirects
	if opts.MaxRedirects != nil {
		maxRedirects = *opts.MaxRedirects
	}

	client := &Client{
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		maxRedirects: maxRedirects,
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= client.maxRedirects {
			return errors.Newf("stopped after %d redirects", client.maxRedirects)
		}
		return nil
	}

	return client
}
