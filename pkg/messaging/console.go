package messaging

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleTransport logs messages instead of delivering them. Used in
// development and as the fallback when no gateway is configured.
type ConsoleTransport struct {
	logger *zap.Logger
}

// NewConsoleTransport builds a console transport.
func NewConsoleTransport(logger *zap.Logger) *ConsoleTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleTransport{logger: logger}
}

// Send writes the message to the log and always succeeds.
func (t *ConsoleTransport) Send(_ context.Context, msg Message) Outcome {
	t.logger.Info("console message",
		zap.String("recipient", msg.Recipient),
		zap.String("course", msg.SubjectFields.CourseName),
		zap.Int("week", msg.SubjectFields.Week),
		zap.String("tier", msg.BodyFields.Tier),
		zap.Int("score", msg.BodyFields.Score),
		zap.Bool("below_threshold", msg.BodyFields.BelowThreshold),
	)
	return Outcome{Success: true, ProviderID: "console"}
}
