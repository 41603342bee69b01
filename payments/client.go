// Package payments is the client of the remote card service: upload
// details, card unmasking and card upload over authenticated JSON calls.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// TokenProvider supplies bearer credentials. With invalidate set the
// previous token must be dropped and a fresh one returned.
type TokenProvider interface {
	Token(ctx context.Context, invalidate bool) (string, error)
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

func DefaultConfig() Config {
	return Config{
		BaseURL:   "http://localhost:8088",
		Timeout:   10 * time.Second,
		UserAgent: "cardsync/1.0",
	}
}

// Client issues one request per call. Callers serialize use of a client.
type Client struct {
	Base string
	HTTP *http.Client

	userAgent string
	tokens    TokenProvider
	logger    *slog.Logger
}

func New(cfg Config, tokens TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Client{
		Base:      strings.TrimRight(cfg.BaseURL, "/"),
		HTTP:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		tokens:    tokens,
		logger:    logger.With(slog.String("component", "payments")),
	}
}

const errorCodeInternal = "INTERNAL"

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is decoded before the typed payload to detect server errors.
type envelope struct {
	Error *apiError `json:"error,omitempty"`
}

// exchange is one logical request. The body is serialized once and reused
// for the single retry after a token refresh.
type exchange struct {
	op        string
	path      string
	body      []byte
	requestID string
	retried   bool
}

// call runs an exchange and decodes a successful payload into out.
func (c *Client) call(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Op: op, Kind: KindMalformedInput, Err: fmt.Errorf("encoding request: %w", err)}
	}
	ex := &exchange{op: op, path: path, body: body, requestID: uuid.NewString()}
	logger := c.logger.With(slog.String("op", op), slog.String("request_id", ex.requestID))

	token, err := c.token(ctx, op, false)
	if err != nil {
		return err
	}
	status, raw, err := c.send(ctx, ex, token)
	if err == nil && status == http.StatusUnauthorized {
		logger.Info("token rejected, refreshing")
		ex.retried = true
		if token, err = c.token(ctx, op, true); err != nil {
			return err
		}
		status, raw, err = c.send(ctx, ex, token)
		if err == nil && status == http.StatusUnauthorized {
			logger.Warn("refreshed token rejected")
			return &Error{Op: op, Kind: KindPermanent, Status: status, Err: ErrUnauthorized}
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		logger.Warn("request failed", slog.Any("err", err))
		return &Error{Op: op, Kind: KindTransientNetwork, Err: err}
	}
	if err := classify(op, status, raw); err != nil {
		logger.Info("request rejected", slog.Int("status", status), slog.Any("err", err))
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Kind: KindPermanent, Status: status, Err: fmt.Errorf("decoding response: %w", err)}
	}
	logger.Debug("request done", slog.Int("status", status), slog.Bool("retried", ex.retried))
	return nil
}

func (c *Client) token(ctx context.Context, op string, invalidate bool) (string, error) {
	if c.tokens == nil {
		return "", &Error{Op: op, Kind: KindAuthorization, Err: ErrMissingToken}
	}
	token, err := c.tokens.Token(ctx, invalidate)
	if err != nil {
		return "", &Error{Op: op, Kind: KindAuthorization, Err: fmt.Errorf("getting token: %w", err)}
	}
	if token == "" {
		return "", &Error{Op: op, Kind: KindAuthorization, Err: ErrMissingToken}
	}
	return token, nil
}

func (c *Client) send(ctx context.Context, ex *exchange, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+ex.path, bytes.NewReader(ex.body))
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", ex.requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// classify maps a non-success response to an *Error, or returns nil.
func classify(op string, status int, raw []byte) error {
	if status >= 500 {
		return &Error{Op: op, Kind: KindTransientNetwork, Status: status, Err: errors.New(snippet(raw))}
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && status/100 == 2 {
			return &Error{Op: op, Kind: KindPermanent, Status: status, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	if env.Error != nil {
		kind := KindPermanent
		if env.Error.Code == errorCodeInternal {
			kind = KindServerRejected
		}
		return &Error{Op: op, Kind: kind, Status: status, Code: env.Error.Code, Err: errors.New(env.Error.Message)}
	}
	if status/100 != 2 {
		return &Error{Op: op, Kind: KindPermanent, Status: status, Err: errors.New(snippet(raw))}
	}
	return nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func incomplete(op, field string) error {
	return &Error{Op: op, Kind: KindPermanent, Status: http.StatusOK, Err: fmt.Errorf("%w: missing %s", ErrIncompleteResponse, field)}
}
