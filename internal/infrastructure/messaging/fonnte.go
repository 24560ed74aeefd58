// Package messaging delivers WhatsApp messages through the Fonnte gateway.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rt44/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when no Fonnte token is set
	ErrNotConfigured = errors.New("fonnte token is not configured")
	// ErrNoTarget is returned for an empty phone number
	ErrNoTarget = errors.New("target phone number is empty")
)

// SendError is a message the gateway refused
type SendError struct {
	StatusCode int
	Reason     string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("fonnte rejected message (http %d): %s", e.StatusCode, e.Reason)
}

// FonnteClient posts messages to the Fonnte send endpoint
type FonnteClient struct {
	url         string
	token       string
	countryCode string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewFonnteClient creates a client from configuration
func NewFonnteClient(cfg config.MessagingConfig, logger *zap.Logger) *FonnteClient {
	return &FonnteClient{
		url:         cfg.FonnteURL,
		token:       cfg.FonnteToken,
		countryCode: cfg.CountryCode,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// Configured reports whether a token is set
func (c *FonnteClient) Configured() bool {
	return c.token != ""
}

type sendRequest struct {
	Target      string `json:"target"`
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
}

type sendResponse struct {
	Status  bool   `json:"status"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Send delivers message to target. Success requires an HTTP 2xx answer whose
// body reports status true.
func (c *FonnteClient) Send(ctx context.Context, target, message string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrNoTarget
	}

	body, err := json.Marshal(sendRequest{Target: target, Message: message, CountryCode: c.countryCode})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build fonnte request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fonnte request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read fonnte response: %w", err)
	}

	var out sendResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode/100 == 2 && out.Status {
		return nil
	}

	reason := out.Reason
	if reason == "" {
		reason = out.Message
	}
	if reason == "" {
		reason = "unknown error"
	}
	c.logger.Warn("Fonnte send failed",
		zap.Int("status_code", resp.StatusCode),
		zap.String("reason", reason),
	)
	return &SendError{StatusCode: resp.StatusCode, Reason: reason}
}
