package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/pkg/config"
)

// GatewayTransport delivers messages through an HTTP message gateway
// (a WhatsApp-style relay accepting token-authenticated JSON posts).
type GatewayTransport struct {
	baseURL string
	token   string
	sender  string
	client  *http.Client
	logger  *zap.Logger
}

// NewGatewayTransport builds a transport from gateway settings. Missing
// credentials are a configuration error surfaced at construction so the
// scheduler refuses to start instead of failing on first dispatch.
func NewGatewayTransport(cfg config.GatewayConfig, timeout time.Duration, logger *zap.Logger) (*GatewayTransport, error) {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("messaging: gateway base URL and token are required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayTransport{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		sender:  cfg.Sender,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type gatewayRequest struct {
	To      string  `json:"to"`
	From    string  `json:"from,omitempty"`
	Payload Message `json:"payload"`
}

type gatewayResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Send posts the message to the gateway. Transport failures are returned as
// a failed Outcome, never as an error.
func (t *GatewayTransport) Send(ctx context.Context, msg Message) Outcome {
	body, err := json.Marshal(gatewayRequest{To: msg.Recipient, From: t.sender, Payload: msg})
	if err != nil {
		return Failed(fmt.Sprintf("encode payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Failed(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	res, err := t.client.Do(req)
	if err != nil {
		return Failed(fmt.Sprintf("gateway request: %v", err))
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Failed(fmt.Sprintf("read gateway response: %v", err))
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && len(raw) > 0 {
		t.logger.Debug("unparseable gateway response", zap.ByteString("body", raw))
	}

	if res.StatusCode >= http.StatusBadRequest {
		reason := parsed.Error
		if reason == "" {
			reason = fmt.Sprintf("gateway returned %d", res.StatusCode)
		}
		return Failed(reason)
	}

	return Outcome{Success: true, ProviderID: parsed.ID}
}
