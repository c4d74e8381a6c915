// Package projudi implements the court-system HTTP adapter:
// session-authenticated polling for notification (intimação) records.
package projudi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/internal/httpclient"
)

const (
	// sessionTTL bounds sessions whose login response carried no expiry.
	sessionTTL = 20 * time.Minute

	// expiryMargin is the minimum remaining lifetime before a session is
	// considered stale and a fresh login is performed.
	expiryMargin = 2 * time.Minute
)

// Session is the in-memory authentication state. Never persisted.
type Session struct {
	Token      string
	Cookies    []*http.Cookie
	ExpiresAt  *time.Time
	ObtainedAt time.Time
}

// valid reports whether the session can still be used at the given instant.
func (s *Session) valid(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.ExpiresAt != nil {
		return s.ExpiresAt.Sub(now) > expiryMargin
	}
	return now.Sub(s.ObtainedAt) < sessionTTL
}

// Config holds court-system client configuration.
type Config struct {
	BaseURL           string
	Username          string
	Password          string
	LoginPath         string
	NotificationsPath string
	Timeout           time.Duration
	Logger            *zap.SugaredLogger // nil = nop logger
}

// Client is the court-system API client. Safe for concurrent use: callers
// racing on an expired session share a single in-flight login.
type Client struct {
	config     Config
	httpClient *httpclient.Client
	logger     *zap.SugaredLogger

	mu         sync.Mutex
	session    *Session
	loginGroup singleflight.Group
}

// NewClient creates a court-system client.
func NewClient(config Config) *Client {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if config.LoginPath == "" {
		config.LoginPath = "/api/login"
	}
	if config.NotificationsPath == "" {
		config.NotificationsPath = "/api/intimacoes"
	}

	return &Client{
		config:     config,
		httpClient: httpclient.New(config.Timeout),
		logger:     log,
	}
}

// Configured reports whether the adapter has the credentials it needs.
func (c *Client) Configured() bool {
	return c.config.BaseURL != "" && c.config.Username != "" && c.config.Password != ""
}

// Login returns a usable session, performing a login request only when the
// cached session is absent, stale, or force is set. Concurrent callers fan
// in to a single outstanding login request.
func (c *Client) Login(ctx context.Context, force bool) (*Session, error) {
	if !c.Configured() {
		return nil, errors.Wrap(errors.ErrConfiguration, "projudi base URL or credentials missing")
	}

	if !force {
		c.mu.Lock()
		cached := c.session
		c.mu.Unlock()
		if cached.valid(time.Now()) {
			return cached, nil
		}
	}

	result, err, _ := c.loginGroup.Do("login", func() (any, error) {
		// Re-check under the group: a caller that queued behind the
		// winning login should reuse its session.
		if !force {
			c.mu.Lock()
			cached := c.session
			c.mu.Unlock()
			if cached.valid(time.Now()) {
				return cached, nil
			}
		}

		session, err := c.performLogin(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.session = session
		c.mu.Unlock()
		return session, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Session), nil
}

// performLogin attempts the two request shapes the court backend is known
// to accept: a JSON body first, then form-encoded credentials.
func (c *Client) performLogin(ctx context.Context) (*Session, error) {
	loginURL := c.config.BaseURL + c.config.LoginPath

	shapes := []struct {
		name        string
		contentType string
		body        func() ([]byte, error)
	}{
		{
			name:        "json",
			contentType: "application/json",
			body: func() ([]byte, error) {
				return json.Marshal(map[string]string{
					"username": c.config.Username,
					"password": c.config.Password,
				})
			},
		},
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body: func() ([]byte, error) {
				form := url.Values{}
				form.Set("username", c.config.Username)
				form.Set("password", c.config.Password)
				return []byte(form.Encode()), nil
			},
		},
	}

	var lastErr error
	for _, shape := range shapes {
		body, err := shape.body()
		if err != nil {
			return nil, errors.Wrap(err, "encode login body")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
		if err != nil {
			return nil, errors.Wrap(err, "create login request")
		}
		req.Header.Set("Content-Type", shape.contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "login request")
		}

		session, err := c.readLoginResponse(resp)
		if err == nil {
			c.logger.Debugw("Projudi login succeeded", "shape", shape.name)
			return session, nil
		}
		if errors.IsAuthentication(err) {
			// Rejected credentials are terminal: the other shape would be
			// rejected the same way.
			return nil, err
		}

		c.logger.Debugw("Projudi login shape failed, trying next",
			"shape", shape.name,
			"error", err,
		)
		lastErr = err
	}

	return nil, errors.Wrap(lastErr, "all login request shapes failed")
}

func (c *Client) readLoginResponse(resp *http.Response) (*Session, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read login response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Wrapf(errors.ErrAuthentication, "login rejected (status %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.NewRequestError(resp.StatusCode, string(body))
	}

	session := &Session{
		Cookies:    resp.Cookies(),
		ObtainedAt: time.Now(),
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"token", "accessToken", "access_token", "jwt"} {
			if token, ok := payload[key].(string); ok && token != "" {
				session.Token = token
				break
			}
		}
		for _, key := range []string{"expiresIn", "expires_in"} {
			if seconds, ok := payload[key].(float64); ok && seconds > 0 {
				expires := session.ObtainedAt.Add(time.Duration(seconds) * time.Second)
				session.ExpiresAt = &expires
				break
			}
		}
	}

	// A session is only usable with a bearer token or at least one cookie.
	if session.Token == "" && len(session.Cookies) == 0 {
		return nil, errors.Wrap(errors.ErrAuthentication, "login response carried neither token nor session cookie")
	}

	return session, nil
}

// FetchNotifications retrieves the raw notification records created or
// updated after the given reference time.
func (c *Client) FetchNotifications(ctx context.Context, since time.Time) ([]map[string]any, error) {
	session, err := c.Login(ctx, false)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("updatedAfter", since.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+c.config.NotificationsPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create notifications request")
	}
	req.Header.Set("Accept", "application/json")
	if session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}
	for _, cookie := range session.Cookies {
		req.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "notifications request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read notifications response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Drop the cached session so the next run performs a fresh login.
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrAuthentication, "notifications endpoint rejected session (status %d)", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.NewRequestError(resp.StatusCode, string(body))
	}

	items, err := extractItems(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debugw("Projudi notifications fetched",
		"since", since.Format(time.RFC3339),
		"count", len(items),
	)

	return items, nil
}

// envelopeKeys are the plausible array locations in the response envelope,
// probed in order.
var envelopeKeys = []string{"data", "items", "content", "intimacoes", "resultado"}

// extractItems locates the notification array in one of the known envelope
// shapes: a bare array, or an object wrapping the array under a known key.
func extractItems(body []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []map[string]any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.Wrap(err, "decode notifications array")
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, errors.Wrap(err, "decode notifications envelope")
	}

	for _, key := range envelopeKeys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var items []map[string]any
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}
		return items, nil
	}

	return nil, errors.Newf("no notification array found in envelope (keys tried: %s)", strings.Join(envelopeKeys, ", "))
}
