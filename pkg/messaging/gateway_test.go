package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-presensi-api/pkg/config"
)

func testMessage() Message {
	return Message{
		Recipient:     "+62811111111",
		SubjectFields: SubjectFields{CourseName: "Matematika", Week: 3},
		BodyFields:    BodyFields{StudentName: "Andi", Tier: "partial", Score: 50},
	}
}

func TestGatewayTransportRequiresConfig(t *testing.T) {
	_, err := NewGatewayTransport(config.GatewayConfig{}, 5*time.Second, zap.NewNop())
	require.Error(t, err)

	_, err = NewGatewayTransport(config.GatewayConfig{BaseURL: "http://gateway"}, 5*time.Second, zap.NewNop())
	require.Error(t, err)
}

func TestGatewayTransportSend(t *testing.T) {
	var got gatewayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"prov-1","status":"queued"}`))
	}))
	defer server.Close()

	transport, err := NewGatewayTransport(config.GatewayConfig{BaseURL: server.URL, Token: "tok", Sender: "sekolah"}, 5*time.Second, zap.NewNop())
	require.NoError(t, err)

	outcome := transport.Send(context.Background(), testMessage())
	assert.True(t, outcome.Success)
	assert.Equal(t, "prov-1", outcome.ProviderID)
	assert.Equal(t, "+62811111111", got.To)
	assert.Equal(t, "sekolah", got.From)
	assert.Equal(t, "Matematika", got.Payload.SubjectFields.CourseName)
}

func TestGatewayTransportSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"provider unavailable"}`))
	}))
	defer server.Close()

	transport, err := NewGatewayTransport(config.GatewayConfig{BaseURL: server.URL, Token: "tok"}, 5*time.Second, zap.NewNop())
	require.NoError(t, err)

	outcome := transport.Send(context.Background(), testMessage())
	assert.False(t, outcome.Success)
	assert.Equal(t, "provider unavailable", outcome.Reason)
}

func TestGatewayTransportSendConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	transport, err := NewGatewayTransport(config.GatewayConfig{BaseURL: server.URL, Token: "tok"}, time.Second, zap.NewNop())
	require.NoError(t, err)

	outcome := transport.Send(context.Background(), testMessage())
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Reason)
}

func TestConsoleTransportAlwaysSucceeds(t *testing.T) {
	transport := NewConsoleTransport(zap.NewNop())
	outcome := transport.Send(context.Background(), testMessage())
	assert.True(t, outcome.Success)
	assert.Equal(t, "console", outcome.ProviderID)
}
