package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugEnv turns on debug diagnostics without the --verbose flag.
const DebugEnv = "INTENTGUARD_DEBUG"

// NewDiagnostic builds the stderr logger for internal diagnostics. Hooks
// run inside another tool's output stream, so only warnings surface unless
// verbose or INTENTGUARD_DEBUG=1 is set.
func NewDiagnostic(verbose bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose || os.Getenv(DebugEnv) == "1" {
		level.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Named("intentguard"), nil
}
