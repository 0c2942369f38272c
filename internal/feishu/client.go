// Package feishu talks to the Feishu (Lark) open platform: tenant token
// exchange and text message delivery.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/CosmoTheDev/feishu-notifier/internal/config"
)

// DefaultBaseURL is the mainland Feishu endpoint.
const DefaultBaseURL = "https://open.feishu.cn"

const (
	tokenPath   = "/open-apis/auth/v3/tenant_access_token/internal"
	messagePath = "/open-apis/im/v1/messages"
)

// APIError is returned for non-2xx responses and nonzero API codes.
type APIError struct {
	Op     string // "auth" | "message"
	Status int    // HTTP status
	Code   int    // Feishu code, 0 when the body was not parsed
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("feishu %s request failed: %d", e.Op, e.Status)
	}
	return fmt.Sprintf("feishu %s failed: %s (%d)", e.Op, e.Msg, e.Code)
}

// Client sends text messages to one receiver. A tenant token is fetched
// on first use and reused until it expires.
type Client struct {
	cfg     config.Config
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// New creates a Client from a validated config.
func New(cfg config.Config, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		baseURL: DefaultBaseURL,
		http:    &http.Client{},
	}
	if cfg.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"` // seconds
}

type messageResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
}

// tenantTokenSource adapts the tenant token endpoint to oauth2.TokenSource.
type tenantTokenSource struct {
	ctx context.Context
	c   *Client
}

func (s *tenantTokenSource) Token() (*oauth2.Token, error) {
	body := map[string]string{"app_id": s.c.cfg.AppID, "app_secret": s.c.cfg.AppSecret}
	var resp tokenResponse
	if err := s.c.postJSON(s.ctx, "auth", s.c.baseURL+tokenPath, nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, &APIError{Op: "auth", Status: http.StatusOK, Code: resp.Code, Msg: resp.Msg}
	}
	if resp.TenantAccessToken == "" {
		return nil, fmt.Errorf("feishu auth failed: no tenant_access_token in response")
	}
	tok := &oauth2.Token{AccessToken: resp.TenantAccessToken, TokenType: "Bearer"}
	// Without an expiry the token would be treated as valid forever.
	tok.Expiry = time.Now()
	if resp.Expire > 0 {
		tok.Expiry = tok.Expiry.Add(time.Duration(resp.Expire) * time.Second)
	}
	return tok, nil
}

// TenantToken returns a valid tenant access token, fetching one if needed.
func (c *Client) TenantToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	cached := c.token
	c.mu.Unlock()

	tok, err := oauth2.ReuseTokenSource(cached, &tenantTokenSource{ctx: ctx, c: c}).Token()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
	return tok, nil
}

// SendOption customises a single message.
type SendOption func(map[string]any)

// WithUUID sets Feishu's idempotency key for the message.
func WithUUID(id string) SendOption {
	return func(body map[string]any) {
		if id != "" {
			body["uuid"] = id
		}
	}
}

// Send delivers text to the configured receiver and returns the message id.
func (c *Client) Send(ctx context.Context, text string, opts ...SendOption) (string, error) {
	tok, err := c.TenantToken(ctx)
	if err != nil {
		return "", err
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("encoding message content: %w", err)
	}
	body := map[string]any{
		"receive_id": c.cfg.ReceiverID,
		"msg_type":   "text",
		"content":    string(content),
	}
	for _, o := range opts {
		o(body)
	}

	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.http), oauth2.StaticTokenSource(tok))
	url := c.baseURL + messagePath + "?receive_id_type=" + string(c.cfg.ReceiverType)

	var resp messageResponse
	if err := c.postJSON(ctx, "message", url, hc, body, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 {
		return "", &APIError{Op: "message", Status: http.StatusOK, Code: resp.Code, Msg: resp.Msg}
	}
	return resp.Data.MessageID, nil
}

// postJSON POSTs body and decodes the response into out. hc defaults to c.http.
func (c *Client) postJSON(ctx context.Context, op, url string, hc *http.Client, body, out any) error {
	if hc == nil {
		hc = c.http
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := hc.Do(req) // #nosec G107 -- URL is the configured Feishu API base
	if err != nil {
		return fmt.Errorf("feishu %s request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode}
		// Feishu reports the reason in 4xx/5xx bodies too; keep it when present.
		var body struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if err == nil && json.Unmarshal(raw, &body) == nil {
			apiErr.Code, apiErr.Msg = body.Code, body.Msg
		}
		return apiErr
	}
	if err != nil {
		return fmt.Errorf("feishu %s: reading response: %w", op, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty response from Feishu API (%d)", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("feishu %s: decoding response: %w", op, err)
	}
	return nil
}
