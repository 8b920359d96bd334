// Package logging provides structured logging for swarmctl.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Automatic context field injection (run.id, run.actor, run.phase, request.id)
//   - Defense-in-depth secret redaction
//   - Optional sampling below Error (errors never sampled)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithRun(ctx, &logging.Run{RunID: runID, Actor: "backend", Phase: "BACKEND"})
//	ctx = logging.WithRequestID(ctx, "req_123")
//	logger.Info(ctx, "transition applied", zap.String("to_phase", "QA_E2E"))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2026-07-30T10:15:30.000Z",
//	  "level": "info",
//	  "msg": "transition applied",
//	  "run.id": "L1-20260730T101530Z-abcd1234",
//	  "run.actor": "backend",
//	  "run.phase": "BACKEND",
//	  "request.id": "req_123",
//	  "to_phase": "QA_E2E"
//	}
//
// # Configuration
//
// swarmctl builds its logger from NewDefaultConfig and sets only the
// level, from the --log-level flag (an unrecognised value falls back to
// Info). Logging settings are not read from the YAML config file or from
// environment variables.
//
// # Secret Redaction
//
// Secrets are redacted at multiple layers:
//  1. Domain primitives (config.Secret type)
//  2. Encoder-level field name filtering (token, hmac_key, authorization, ...)
//  3. Encoder-level pattern matching (bearer tokens, GitHub PATs)
//
// Use helpers for manual redaction:
//
//	logger.Info(ctx, "ci auth received",
//	    logging.RedactedString("authorization", authHeader))
//
// # Sampling
//
// Sampling limits log floods in long-running invocations such as the
// CI-gate waiter or a `--watch` orchestrator loop. Entries below Error
// all go through one sampler configured from the Info entry of
// Sampling.Levels (by default: first 100 per tick, then 1 every 10); the
// Trace, Debug and Warn entries of that map are not consulted. Error and
// above are never sampled.
//
// Disabled by default since most swarmctl invocations are short-lived:
//
//	cfg.Sampling.Enabled = true
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//	tl.AssertNoSecrets(t)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
