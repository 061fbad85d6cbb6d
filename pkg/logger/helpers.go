package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogAccountOutcome logs one run-report line for an account.
func LogAccountOutcome(log Logger, username, status string, count int, err error) {
	fields := map[string]interface{}{
		"username": username,
		"status":   status,
		"reels":    count,
	}

	l := log.WithFields(fields)
	if err != nil {
		l.WithError(err).Warn("account scrape finished")
		return
	}
	l.Info("account scrape finished")
}

// LogRateLimit logs rate limiting events
func LogRateLimit(log Logger, username string, delayMs int64) {
	log.WithFields(map[string]interface{}{
		"username": username,
		"delay_ms": delayMs,
		"action":   "rate_limited",
	}).Warn("rate limit reached, backing off")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
