package logging

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/daybook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_All(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithCommand(ctx, "calendar")
	ctx = WithRequestID(ctx, "req-1")

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range ContextFields(ctx) {
		f.AddTo(enc)
	}

	assert.Equal(t, traceID.String(), enc.Fields["trace_id"])
	assert.Equal(t, spanID.String(), enc.Fields["span_id"])
	assert.Equal(t, "calendar", enc.Fields["command"])
	assert.Equal(t, "req-1", enc.Fields["request.id"])
}

func TestWithRequestID_Invalid(t *testing.T) {
	assert.Panics(t, func() { WithRequestID(context.Background(), "") })
	assert.Panics(t, func() { WithRequestID(context.Background(), "bad id!") })
}

func TestLoggerInContext(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestTestLogger_Assertions(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithCommand(context.Background(), "login")
	tl.Info(ctx, "login succeeded", RedactedString("token", "abcdef"))

	tl.AssertLogged(t, zapcore.InfoLevel, "login succeeded")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "login")
	tl.AssertField(t, "login succeeded", "command", "login")
	tl.AssertNoSecrets(t)

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestSecretField(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "configured", Secret("creds", config.Secret("hunter22")))

	logs := tl.All()
	require.Len(t, logs, 1)
	enc := zapcore.NewMapObjectEncoder()
	logs[0].Context[0].AddTo(enc)
	assert.Equal(t, map[string]interface{}{"creds": "[REDACTED:8]"}, enc.Fields["creds"])
}
