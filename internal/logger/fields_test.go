package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	enriched := WithFields(zap.New(core), zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if ctx := entries[0].ContextMap(); ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
	enriched.Info("another log")
}

func TestCommonFields(t *testing.T) {
	fields := CommonFields("  Gemini  ", "model-v1")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldProvider || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if fields[1].Key != FieldModel || fields[1].String != "model-v1" {
		t.Fatalf("unexpected model field: %+v", fields[1])
	}

	if empty := CommonFields("", ""); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestDeckFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("advance", DeckFields(2, 3, "reviewing")...)
	zap.New(core).Info("advance", DeckFields(0, 0, "")...)

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldCursor] != int64(2) || ctx[FieldTotal] != int64(3) || ctx[FieldDeckState] != "reviewing" {
		t.Fatalf("unexpected deck fields: %v", ctx)
	}

	if _, ok := entries[1].ContextMap()[FieldDeckState]; ok {
		t.Fatalf("expected empty state to be omitted")
	}
}

func TestWithSession(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	WithSession(zap.New(core), "abc", "  ").Debug("searching")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldSession] != "abc" {
		t.Fatalf("expected session id, got %v", ctx)
	}
	if _, ok := ctx[FieldQuery]; ok {
		t.Fatalf("expected blank query to be omitted")
	}
}

func TestNew(t *testing.T) {
	log, err := New(true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}

	log, err = New(false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be disabled")
	}
}
