// internal/pkg/clickpesa/client.go
package clickpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"duka-service/internal/metrics"

	"go.uber.org/zap"
)

var ErrCredentialsMissing = errors.New("clickpesa: client id or api key not configured")

const (
	opAuth   = "auth"
	opPush   = "ussd_push"
	opStatus = "status"

	maxBodyBytes = 1 << 20
)

type Config struct {
	BaseURL     string
	ClientID    string
	APIKey      string
	ChecksumKey string
	Currency    string
	Timeout     time.Duration
	TokenTTL    time.Duration
}

// Client talks to the ClickPesa collection API. A 401 on any call triggers one
// token refresh and one retry.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  TokenStore
	authMu  sync.Mutex
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewClient(cfg Config, tokens TokenStore, m *metrics.Metrics, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 55 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "TZS"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		metrics: m,
		logger:  logger,
	}
}

type PushRequest struct {
	Amount         float64
	OrderReference string
	PhoneNumber    string
}

// PushResult reports the outcome of a push request. Gateway faults come back
// as Success=false with a message, never as an error.
type PushResult struct {
	Success       bool
	Message       string
	TransactionID string
	Status        string
}

// StatusResult reports a status lookup. Success=false means the gateway could
// not be asked; Outcome is then PENDING.
type StatusResult struct {
	Success   bool
	Found     bool
	Outcome   Outcome
	RawStatus string
	Message   string
	Record    *PaymentRecord
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

type pushResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	OrderReference string `json:"orderReference"`
	Message        string `json:"message"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Authenticate exchanges the API credentials for a bearer token and stores it.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.APIKey == "" {
		return "", ErrCredentialsMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/generate-token", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build auth request: %w", err)
	}
	req.Header.Set("client-id", c.cfg.ClientID)
	req.Header.Set("api-key", c.cfg.APIKey)

	code, body, err := c.send(req, opAuth)
	if err != nil {
		return "", err
	}
	if code < 200 || code >= 300 {
		return "", fmt.Errorf("gateway auth failed with status %d: %s", code, errorMessage(body, "no message"))
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out.Token), "Bearer "))
	if !out.Success || token == "" {
		return "", fmt.Errorf("gateway auth rejected: %s", out.Message)
	}

	if err := c.tokens.Set(ctx, token, c.cfg.TokenTTL); err != nil {
		c.logger.Warn("failed to cache gateway token", zap.Error(err))
	}
	return token, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if token, ok, err := c.tokens.Get(ctx); err == nil && ok {
		return token, nil
	} else if err != nil {
		c.logger.Warn("failed to read cached gateway token", zap.Error(err))
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()

	// Another caller may have refreshed while we waited.
	if token, ok, err := c.tokens.Get(ctx); err == nil && ok {
		return token, nil
	}
	return c.Authenticate(ctx)
}

func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if token, ok, err := c.tokens.Get(ctx); err == nil && ok && token != stale {
		return token, nil
	}
	if err := c.tokens.Invalidate(ctx); err != nil {
		c.logger.Warn("failed to invalidate gateway token", zap.Error(err))
	}
	return c.Authenticate(ctx)
}

// authorized runs an authenticated call, refreshing the token and retrying
// exactly once when the gateway answers 401.
func (c *Client) authorized(ctx context.Context, op string, build func(token string) (*http.Request, error)) (int, []byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return 0, nil, err
	}

	req, err := build(token)
	if err != nil {
		return 0, nil, err
	}
	code, body, err := c.send(req, op)
	if err != nil || code != http.StatusUnauthorized {
		return code, body, err
	}

	c.logger.Info("gateway rejected token, re-authenticating", zap.String("operation", op))
	token, err = c.refresh(ctx, token)
	if err != nil {
		return 0, nil, err
	}
	req, err = build(token)
	if err != nil {
		return 0, nil, err
	}
	return c.send(req, op)
}

func (c *Client) send(req *http.Request, op string) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveGatewayCall(op, 0)
		return 0, nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveGatewayCall(op, resp.StatusCode)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// InitiateUSSDPush asks the gateway to prompt the payer's phone. The only
// errors returned are configuration errors.
func (c *Client) InitiateUSSDPush(ctx context.Context, in PushRequest) (*PushResult, error) {
	if c.cfg.ClientID == "" || c.cfg.APIKey == "" {
		return nil, ErrCredentialsMissing
	}

	payload := map[string]any{
		"amount":         strconv.FormatFloat(in.Amount, 'f', -1, 64),
		"currency":       c.cfg.Currency,
		"orderReference": in.OrderReference,
		"phoneNumber":    NormalizePhone(in.PhoneNumber),
	}
	checksum, err := Checksum(c.cfg.ChecksumKey, payload)
	if err != nil {
		return nil, err
	}
	payload["checksum"] = checksum

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode push payload: %w", err)
	}

	code, body, err := c.authorized(ctx, opPush, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/payments/initiate-ussd-push-request", bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		c.logger.Warn("ussd push failed", zap.String("reference", in.OrderReference), zap.Error(err))
		return &PushResult{Success: false, Message: "Payment gateway is unreachable, please try again"}, nil
	}
	if code < 200 || code >= 300 {
		return &PushResult{Success: false, Message: errorMessage(body, fmt.Sprintf("payment gateway returned status %d", code))}, nil
	}

	var out pushResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return &PushResult{Success: false, Message: "Payment gateway returned an unreadable response"}, nil
	}
	if NormalizeStatus(out.Status) == OutcomeFailed {
		return &PushResult{Success: false, Message: nonEmpty(out.Message, "Transaction failed"), TransactionID: out.ID, Status: out.Status}, nil
	}

	return &PushResult{
		Success:       true,
		Message:       nonEmpty(out.Message, "USSD push sent, confirm the payment on your phone"),
		TransactionID: out.ID,
		Status:        out.Status,
	}, nil
}

// QueryPaymentStatus looks a payment up by order reference.
func (c *Client) QueryPaymentStatus(ctx context.Context, reference string) (*StatusResult, error) {
	if c.cfg.ClientID == "" || c.cfg.APIKey == "" {
		return nil, ErrCredentialsMissing
	}

	code, body, err := c.authorized(ctx, opStatus, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/payments/"+url.PathEscape(reference), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		c.logger.Warn("payment status query failed", zap.String("reference", reference), zap.Error(err))
		return &StatusResult{Outcome: OutcomePending, Message: "Payment gateway is unreachable"}, nil
	}

	switch {
	case code == http.StatusNotFound:
		return &StatusResult{Success: true, Outcome: OutcomePending, Message: "Payment not found yet"}, nil
	case code < 200 || code >= 300:
		return &StatusResult{Outcome: OutcomePending, Message: errorMessage(body, fmt.Sprintf("payment gateway returned status %d", code))}, nil
	}

	record, err := parsePaymentRecord(body)
	if err != nil {
		c.logger.Warn("unreadable payment status", zap.String("reference", reference), zap.Error(err))
		return &StatusResult{Outcome: OutcomePending, Message: "Payment gateway returned an unreadable response"}, nil
	}
	if record == nil {
		return &StatusResult{Success: true, Outcome: OutcomePending, Message: "Payment not found yet"}, nil
	}

	return &StatusResult{
		Success:   true,
		Found:     true,
		Outcome:   NormalizeStatus(record.Status),
		RawStatus: record.Status,
		Message:   record.Message,
		Record:    record,
	}, nil
}

func errorMessage(body []byte, fallback string) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
