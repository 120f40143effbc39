package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// AccessLogFile receives every INFO+ record
	AccessLogFile = "access.log"
	// ErrorLogFile receives ERROR+ records as multi-line blocks
	ErrorLogFile = "error.log"

	// lineTimeLayout prefixes every access and console line
	lineTimeLayout = "2006-01-02T15:04:05"
)

// Config describes the three log sinks
type Config struct {
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int

	// Console defaults to os.Stdout
	Console io.Writer
}

// New builds the process logger: a rotating access sink, a rotating error
// sink and a console sink. The returned function syncs the logger and closes
// the rotating files.
func New(cfg Config) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	minLevel := ParseLevel(cfg.Level)

	accessFile := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, AccessLogFile),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	errorFile := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, ErrorLogFile),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	atLeast := func(floor zapcore.Level) zap.LevelEnablerFunc {
		return func(l zapcore.Level) bool {
			return l >= minLevel && l >= floor
		}
	}

	core := zapcore.NewTee(
		zapcore.NewCore(newLineEncoder(), zapcore.AddSync(accessFile), atLeast(zapcore.InfoLevel)),
		zapcore.NewCore(newErrorBlockEncoder(), zapcore.AddSync(errorFile), atLeast(zapcore.ErrorLevel)),
		zapcore.NewCore(newLineEncoder(), zapcore.AddSync(console), atLeast(zapcore.InfoLevel)),
	)

	logger := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))

	closeFn := func() error {
		// Sync on a console attached to a terminal returns EINVAL; ignore it
		_ = logger.Sync()
		return errors.Join(accessFile.Close(), errorFile.Close())
	}

	return logger, closeFn, nil
}

// ParseLevel maps a configured level name to a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// newLineEncoder renders "<timestamp> <message>" followed by any fields
func newLineEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(lineTimeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
}

var blockPool = buffer.NewPool()

// errorBlockEncoder renders
//
//	<timestamp> - Error: <message>[ key=value...]
//	Stack: <stack or None>
//
// Context fields added through With are kept in the embedded map encoder.
type errorBlockEncoder struct {
	*zapcore.MapObjectEncoder
}

func newErrorBlockEncoder() zapcore.Encoder {
	return &errorBlockEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder()}
}

func (e *errorBlockEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &errorBlockEncoder{MapObjectEncoder: clone}
}

func (e *errorBlockEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	merged := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		merged.Fields[k] = v
	}
	for _, f := range fields {
		f.AddTo(merged)
	}

	buf := blockPool.Get()
	buf.AppendString(ent.Time.Format(lineTimeLayout))
	buf.AppendString(" - Error: ")
	buf.AppendString(ent.Message)

	keys := make([]string, 0, len(merged.Fields))
	for k := range merged.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.AppendByte(' ')
		buf.AppendString(k)
		buf.AppendByte('=')
		buf.AppendString(fmt.Sprint(merged.Fields[k]))
	}

	buf.AppendString("\nStack: ")
	if ent.Stack == "" {
		buf.AppendString("None")
	} else {
		buf.AppendString(ent.Stack)
	}
	buf.AppendString(zapcore.DefaultLineEnding)

	return buf, nil
}
