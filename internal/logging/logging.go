package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields carries structured context for a log entry.
type Fields map[string]interface{}

// Logger is a component-scoped structured logger.
type Logger struct {
	zl *zap.Logger
}

var root *zap.Logger

// Init builds the process-wide logger. Environment selection follows
// GIN_MODE: "release" gets JSON production output, anything else gets
// the colored development encoder.
func Init() {
	env := os.Getenv("GIN_MODE")

	var config zap.Config
	if env == "release" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	root = logger
}

// NewLogger returns a logger tagged with a component name.
func NewLogger(component string) *Logger {
	if root == nil {
		Init()
	}
	return &Logger{zl: root.With(zap.String("component", component))}
}

func (l *Logger) log(level zapcore.Level, msg string, fields []Fields) {
	zf := make([]zap.Field, 0, 8)
	for _, f := range fields {
		for k, v := range f {
			zf = append(zf, zap.Any(k, v))
		}
	}
	switch level {
	case zapcore.DebugLevel:
		l.zl.Debug(msg, zf...)
	case zapcore.InfoLevel:
		l.zl.Info(msg, zf...)
	case zapcore.WarnLevel:
		l.zl.Warn(msg, zf...)
	case zapcore.ErrorLevel:
		l.zl.Error(msg, zf...)
	case zapcore.FatalLevel:
		l.zl.Fatal(msg, zf...)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...Fields) { l.log(zapcore.DebugLevel, msg, fields) }

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Fields) { l.log(zapcore.InfoLevel, msg, fields) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...Fields) { l.log(zapcore.WarnLevel, msg, fields) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...Fields) { l.log(zapcore.ErrorLevel, msg, fields) }

// Fatal logs at fatal level and exits.
func (l *Logger) Fatal(msg string, fields ...Fields) { l.log(zapcore.FatalLevel, msg, fields) }

// Sync flushes buffered entries. Call on shutdown.
func Sync() {
	if root != nil {
		_ = root.Sync()
	}
}
