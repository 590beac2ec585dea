// Package logger is the agent's structured logging surface: JSON entries
// in a self-rotating file, behind package-level functions so call sites
// stay one line. All functions are safe no-ops before Init.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation policy for the on-device log file. The agent runs unattended,
// so the file has to bound its own disk usage.
const (
	maxLogSizeMB  = 50
	maxLogBackups = 3
	maxLogAgeDays = 28
)

var (
	log      *zap.Logger
	testMode bool
)

// SetTestMode downgrades Fatal to Error so test processes survive
// fatal-path assertions.
func SetTestMode(enabled bool) {
	testMode = enabled
}

// Init points the package logger at logPath, creating the directory when
// missing. Entries are JSON with an ISO8601 "timestamp" field; everything
// from debug up is recorded.
func Init(logPath string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
		return err
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	log = zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(rotator),
		zap.NewAtomicLevelAt(zap.DebugLevel),
	))
	zap.ReplaceGlobals(log)

	return nil
}

// Debug logs at debug level
func Debug(msg string, fields ...zap.Field) {
	if log != nil {
		log.Debug(msg, fields...)
	}
}

// Info logs at info level
func Info(msg string, fields ...zap.Field) {
	if log != nil {
		log.Info(msg, fields...)
	}
}

// Warn logs at warn level
func Warn(msg string, fields ...zap.Field) {
	if log != nil {
		log.Warn(msg, fields...)
	}
}

// Error logs at error level
func Error(msg string, fields ...zap.Field) {
	if log != nil {
		log.Error(msg, fields...)
	}
}

// Fatal logs and exits the process. In test mode it logs at error level
// instead, so the process keeps running.
func Fatal(msg string, fields ...zap.Field) {
	if log == nil {
		return
	}
	if testMode {
		log.Error(msg, fields...)
		return
	}
	log.Fatal(msg, fields...)
}

// Sync flushes buffered entries to the file
func Sync() error {
	if log != nil {
		return log.Sync()
	}
	return nil
}
