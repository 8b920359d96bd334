// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ContextFields extracts correlation data — the run, actor, and phase a
// log line belongs to — from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if run := RunFromContext(ctx); run != nil {
		fields = append(fields,
			zap.String("run.id", run.RunID),
			zap.String("run.actor", run.Actor),
			zap.String("run.phase", run.Phase),
		)
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

// Context key types
type runCtxKey struct{}
type requestCtxKey struct{}

// Run identifies the orchestrated attempt a log line belongs to: which
// run, which actor role, which phase.
type Run struct {
	RunID string
	Actor string
	Phase string
}

// Validation constants
const (
	maxRunFieldLen = 64
	maxIDLen       = 128
)

var (
	runFieldPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	idPattern       = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func validateRunField(field, name string) error {
	if field == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(field) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(field) > maxRunFieldLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxRunFieldLen)
	}
	if !runFieldPattern.MatchString(field) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// RunFromContext extracts the active Run from context.
func RunFromContext(ctx context.Context) *Run {
	if r, ok := ctx.Value(runCtxKey{}).(*Run); ok {
		return r
	}
	return nil
}

// WithRun adds a Run to context. Panics if run is nil or contains
// invalid field values, mirroring the fail-fast posture of the rest of
// the state-machine's canonicalization checks.
func WithRun(ctx context.Context, run *Run) context.Context {
	if run == nil {
		panic("logging: run cannot be nil")
	}
	if err := validateRunField(run.RunID, "run.RunID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	if err := validateRunField(run.Actor, "run.Actor"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	if err := validateRunField(run.Phase, "run.Phase"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, runCtxKey{}, run)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds a request ID to context. Panics if requestID is
// empty or contains invalid characters.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validateID(requestID, "requestID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context, returning a default nop
// logger if none was stored.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
