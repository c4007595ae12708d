package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNewZapLogger(t *testing.T) {
	for _, cfg := range []*ZapLoggerConfig{
		{IsDevelopment: true, Encoding: "console", Level: "debug"},
		{Encoding: "json", Level: "info", DisableCaller: true, DisableStacktrace: true},
	} {
		l := NewZapLogger(cfg)
		child := l.With(zap.String("transaction_id", "txn-1"))
		assert.NotNil(t, child)
		child.Debug("debug line")
	}
}
