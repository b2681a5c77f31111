package logger

import (
	"context"
	"testing"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	atom := zap.NewAtomicLevelAt(level)
	core, logs := observer.New(atom)
	return &ZapLogger{logger: zap.New(core).Sugar(), level: atom}, logs
}

func TestLogFieldsAndContext(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	ctx := context.WithValue(context.Background(), interfaces.RequestIDKey, "req-1")
	log.WithComponent("publisher").InfoWithContext(ctx, "Сообщение отправлено",
		interfaces.LogField{Key: "topic", Value: "products"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["topic"] != "products" || fields["request_id"] != "req-1" || fields["component"] != "publisher" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestSetLevelAffectsDerivedLoggers(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)
	child := log.WithField("k", "v")

	child.Debug("скрыто")
	log.SetLevel(interfaces.DebugLevel)
	child.Debug("видно")

	if logs.Len() != 1 {
		t.Fatalf("expected only the second debug entry, got %d", logs.Len())
	}
	if log.GetLevel() != interfaces.DebugLevel {
		t.Fatalf("unexpected level %v", log.GetLevel())
	}
}

func TestGetLoggerLevel(t *testing.T) {
	if GetLoggerLevel("WARN") != interfaces.WarnLevel {
		t.Fatalf("expected warn level")
	}
	if GetLoggerLevel("unknown") != interfaces.InfoLevel {
		t.Fatalf("expected info fallback")
	}
}
