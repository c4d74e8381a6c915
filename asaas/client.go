// Package asaas implements the payment-gateway HTTP adapter: paginated
// charge listing by status against an Asaas-compatible API.
package asaas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/internal/httpclient"
)

const (
	// pageSize is the gateway's maximum page size.
	pageSize = 100

	// defaultRequestsPerSecond paces page requests so long backfills do
	// not trip the gateway's rate limiting.
	defaultRequestsPerSecond = 5
)

// Payment is a charge record as reported by the gateway.
type Payment struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Value       float64  `json:"value"`
	DueDate     *ISODate `json:"dueDate"`
	PaymentDate *ISODate `json:"paymentDate"`
	InvoiceURL  string   `json:"invoiceUrl"`
}

// listResponse is the gateway's paginated envelope.
type listResponse struct {
	Data       []Payment `json:"data"`
	HasMore    bool      `json:"hasMore"`
	TotalCount int       `json:"totalCount"`
}

// Config holds gateway client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.SugaredLogger // nil = nop logger
}

// Client is the payment-gateway API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *httpclient.Client
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

// NewClient creates a gateway client.
func NewClient(config Config) *Client {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Client{
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		httpClient: httpclient.New(config.Timeout),
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		logger:     log,
	}
}

// Configured reports whether the adapter has the credentials it needs.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// ListPaymentsByStatus pages through the gateway's payment listing for each
// of the given statuses and returns the results indexed by gateway id.
// Pagination is strictly sequential: each page's response decides whether
// the next page is requested.
func (c *Client) ListPaymentsByStatus(ctx context.Context, statuses []string) (map[string]Payment, error) {
	if !c.Configured() {
		return nil, errors.Wrap(errors.ErrConfiguration, "asaas base URL or API key missing")
	}

	payments := make(map[string]Payment)

	for _, status := range statuses {
		offset := 0
		for {
			page, err := c.listPage(ctx, status, offset)
			if err != nil {
				return nil, errors.Wrapf(err, "list payments with status %s", status)
			}

			for _, p := range page.Data {
				payments[p.ID] = p
			}

			if !page.HasMore {
				break
			}
			offset += pageSize
		}
	}

	c.logger.Debugw("Gateway payments fetched",
		"statuses", statuses,
		"count", len(payments),
	)

	return payments, nil
}

func (c *Client) listPage(ctx context.Context, status string, offset int) (*listResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter")
	}

	query := url.Values{}
	query.Set("status", status)
	query.Set("limit", fmt.Sprintf("%d", pageSize))
	query.Set("offset", fmt.Sprintf("%d", offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/payments?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "gateway request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Rejected credentials are a setup problem, not a transient fault.
		return nil, errors.Wrapf(errors.ErrConfiguration, "gateway rejected credentials (status %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.NewRequestError(resp.StatusCode, string(body))
	}

	var page listResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errors.Wrap(err, "decode gateway response")
	}

	return &page, nil
}
