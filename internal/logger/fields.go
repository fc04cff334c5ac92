package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"

	FieldSession   = "session_id"
	FieldQuery     = "query"
	FieldProfileID = "profile_id"
	FieldCursor    = "cursor"
	FieldTotal     = "total"
	FieldDeckState = "deck_state"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger, defaulting to a
// no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns the fields describing the AI provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// DeckFields describes the deck position. State is omitted when empty.
func DeckFields(cursor, total int, state string) []zap.Field {
	fields := []zap.Field{
		zap.Int(FieldCursor, cursor),
		zap.Int(FieldTotal, total),
	}
	return append(fields, StringFields(StringField{Key: FieldDeckState, Value: state})...)
}

// WithSession tags every entry with the session id and, when set, the query.
func WithSession(logger *zap.Logger, sessionID, query string) *zap.Logger {
	return WithFields(logger, StringFields(
		StringField{Key: FieldSession, Value: sessionID},
		StringField{Key: FieldQuery, Value: query},
	)...)
}
