package gamelog

import (
	"io"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the type of log levels
type Level = zapcore.Level

const (
	// DebugLevel level
	DebugLevel = zapcore.DebugLevel
	// InfoLevel level
	InfoLevel = zapcore.InfoLevel
	// WarnLevel level
	WarnLevel = zapcore.WarnLevel
	// ErrorLevel level
	ErrorLevel = zapcore.ErrorLevel
	// PanicLevel level
	PanicLevel = zapcore.PanicLevel
	// FatalLevel level
	FatalLevel = zapcore.FatalLevel
)

var (
	// Debugf logs formatted debug message
	Debugf logFormatFunc
	// Infof logs formatted info message
	Infof logFormatFunc
	// Warnf logs formatted warn message
	Warnf logFormatFunc
	// Errorf logs formatted error message
	Errorf logFormatFunc
	Panicf logFormatFunc
	Fatalf logFormatFunc
	Fatal  func(args ...interface{})
	Panic  func(args ...interface{})
)

type logFormatFunc func(format string, args ...interface{})

var (
	outputWriter io.Writer = os.Stderr
	atomicLevel            = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	source       string
	logger       *zap.Logger
	sugar        *zap.SugaredLogger
)

func init() {
	rebuild()
}

func rebuild() {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:  "message",
		LevelKey:    "level",
		TimeKey:     "ts",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.ISO8601TimeEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(outputWriter), atomicLevel)
	logger = zap.New(core)
	if source != "" {
		logger = logger.With(zap.String("source", source))
	}
	setSugar(logger.Sugar())
}

func setSugar(s *zap.SugaredLogger) {
	sugar = s
	Debugf = sugar.Debugf
	Infof = sugar.Infof
	Warnf = sugar.Warnf
	Errorf = sugar.Errorf
	Panicf = sugar.Panicf
	Panic = sugar.Panic
	Fatalf = sugar.Fatalf
	Fatal = sugar.Fatal
}

// SetSource sets the component name of the process for all subsequent log lines
func SetSource(comp string) {
	source = comp
	rebuild()
}

// SetLevel sets the log level
func SetLevel(lv Level) {
	atomicLevel.SetLevel(lv)
}

// SetOutput sets the output writer
func SetOutput(out io.Writer) {
	outputWriter = out
	rebuild()
}

// GetOutput returns the output writer
func GetOutput() io.Writer {
	return outputWriter
}

// TraceError prints the stack and error
func TraceError(format string, args ...interface{}) {
	outputWriter.Write(debug.Stack())
	Errorf(format, args...)
}

// StringToLevel converts a level name to a Level
func StringToLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "panic":
		return PanicLevel
	case "fatal":
		return FatalLevel
	}
	Errorf("StringToLevel: unknown level: %s", s)
	return DebugLevel
}
