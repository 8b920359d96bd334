package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestContextFields_Empty(t *testing.T) {
	ctx := context.Background()
	fields := ContextFields(ctx)
	assert.Empty(t, fields)
}

func TestContextFields_Run(t *testing.T) {
	run := &Run{RunID: "L1-20260730T000000Z-deadbeef", Actor: "backend", Phase: "BACKEND"}
	ctx := WithRun(context.Background(), run)

	fields := ContextFields(ctx)

	assert.Len(t, fields, 3)
	assertFieldExists(t, fields, "run.id", run.RunID)
	assertFieldExists(t, fields, "run.actor", "backend")
	assertFieldExists(t, fields, "run.phase", "BACKEND")
}

func TestContextFields_Request(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_456")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 1)
	assertFieldExists(t, fields, "request.id", "req_456")
}

func TestContextFields_RunAndRequestCombined(t *testing.T) {
	ctx := WithRun(context.Background(), &Run{RunID: "run1", Actor: "qa", Phase: "QA_E2E"})
	ctx = WithRequestID(ctx, "req_789")

	fields := ContextFields(ctx)
	assert.Len(t, fields, 4)
}

func assertFieldExists(t *testing.T, fields []zap.Field, key, expected string) {
	t.Helper()
	for _, field := range fields {
		if field.Key == key && field.String == expected {
			return
		}
	}
	t.Errorf("field %q with value %q not found", key, expected)
}

func TestLogger_InContext(t *testing.T) {
	logger := &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
	ctx := WithLogger(context.Background(), logger)

	retrieved := FromContext(ctx)
	assert.Equal(t, logger, retrieved)
}

func TestLogger_FromContextMissing(t *testing.T) {
	ctx := context.Background()
	retrieved := FromContext(ctx)

	assert.NotNil(t, retrieved)
}

// Validation tests

func TestWithRun_Valid(t *testing.T) {
	run := &Run{RunID: "L1-abc123", Actor: "architect", Phase: "ARCHITECT"}

	ctx := WithRun(context.Background(), run)
	retrieved := RunFromContext(ctx)

	assert.Equal(t, run, retrieved)
}

func TestWithRun_NilPanics(t *testing.T) {
	assert.PanicsWithValue(t, "logging: run cannot be nil", func() {
		WithRun(context.Background(), nil)
	})
}

func TestWithRun_EmptyFieldsPanics(t *testing.T) {
	tests := []struct {
		name string
		run  *Run
	}{
		{"empty RunID", &Run{RunID: "", Actor: "backend", Phase: "BACKEND"}},
		{"empty Actor", &Run{RunID: "run1", Actor: "", Phase: "BACKEND"}},
		{"empty Phase", &Run{RunID: "run1", Actor: "backend", Phase: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() {
				WithRun(context.Background(), tt.run)
			})
		})
	}
}

func TestWithRun_InvalidCharactersPanics(t *testing.T) {
	tests := []struct {
		name string
		run  *Run
	}{
		{"RunID with spaces", &Run{RunID: "run 1", Actor: "backend", Phase: "BACKEND"}},
		{"Actor with special chars", &Run{RunID: "run1", Actor: "backend@dev", Phase: "BACKEND"}},
		{"Phase with slash", &Run{RunID: "run1", Actor: "backend", Phase: "BACKEND/1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() {
				WithRun(context.Background(), tt.run)
			})
		})
	}
}

func TestWithRun_TooLongPanics(t *testing.T) {
	longString := string(make([]byte, 65))
	for i := range longString {
		longString = longString[:i] + "a" + longString[i+1:]
	}

	run := &Run{RunID: longString, Actor: "backend", Phase: "BACKEND"}

	assert.Panics(t, func() {
		WithRun(context.Background(), run)
	})
}

func TestWithRequestID_Valid(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
	}{
		{"simple", "req_456"},
		{"with hyphens", "req-abc-456"},
		{"with underscores", "req_abc_456"},
		{"alphanumeric", "reqABC456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithRequestID(context.Background(), tt.requestID)
			retrieved := RequestIDFromContext(ctx)
			assert.Equal(t, tt.requestID, retrieved)
		})
	}
}

func TestWithRequestID_EmptyPanics(t *testing.T) {
	assert.PanicsWithValue(t, "logging: requestID cannot be empty", func() {
		WithRequestID(context.Background(), "")
	})
}

func TestWithRequestID_InvalidCharactersPanics(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
	}{
		{"with spaces", "req 456"},
		{"with slash", "req/456"},
		{"with special chars", "req@456"},
		{"with dots", "req.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() {
				WithRequestID(context.Background(), tt.requestID)
			})
		})
	}
}

func TestWithRequestID_TooLongPanics(t *testing.T) {
	longID := string(make([]byte, 129))
	for i := range longID {
		longID = longID[:i] + "a" + longID[i+1:]
	}

	assert.Panics(t, func() {
		WithRequestID(context.Background(), longID)
	})
}
