// Package logging provides structured logging for daybook.
//
// Logger wraps Zap with:
//   - A Trace level (-2, below Debug) for wire-level request details
//   - stderr output (stdout is reserved for command output) plus an optional
//     OpenTelemetry bridge
//   - Context field injection (trace_id, request.id, command)
//   - Redaction of bearer tokens and credential fields
//   - Level-aware sampling (errors never sampled)
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithCommand(ctx, "write")
//	logger.Info(ctx, "entry created", zap.Int64("entry_id", id))
//
// Components below the CLI take a plain *zap.Logger (logger.Underlying()).
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "entry created")
//	tl.AssertLogged(t, zapcore.InfoLevel, "entry created")
//	tl.AssertNoSecrets(t)
package logging
