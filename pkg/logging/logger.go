package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LevelTrace LogLevel = iota - 1
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level       LogLevel `json:"level"`
	Format      string   `json:"format"`       // "json" or "text"
	Output      string   `json:"output"`       // "stdout", "stderr", "discard" or file path
	FilePath    string   `json:"file_path"`    // used when Output is "file"
	EnableAsync bool     `json:"enable_async"` // buffer entries through a worker goroutine
}

// Context keys understood by the logger. Handlers put these on the request context.
type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	ClubIDKey    ctxKey = "club_id"
	ActorIDKey   ctxKey = "actor_id"
)

// Logger provides structured logging with context support
type Logger struct {
	config  LogConfig
	level   atomic.Int32
	slogger *slog.Logger
	file    *os.File
	asyncCh chan LogEntry
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	closed  atomic.Bool
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	ClubID    string                 `json:"club_id,omitempty"`
	ActorID   string                 `json:"actor_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// DefaultLogConfig returns sensible default logging configuration
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       LevelInfo,
		Format:      "json",
		Output:      "stdout",
		EnableAsync: true,
	}
}

// NewLogger creates a new structured logger
func NewLogger(config LogConfig) (*Logger, error) {
	ctx, cancel := context.WithCancel(context.Background())

	logger := &Logger{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
	logger.level.Store(int32(config.Level))

	var writer io.Writer
	switch config.Output {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	case "discard":
		writer = io.Discard
	default:
		if config.FilePath == "" {
			config.FilePath = config.Output
			logger.config.FilePath = config.Output
		}
		if err := logger.setupFileLogging(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to setup file logging: %w", err)
		}
		writer = logger.file
	}

	// slog filters nothing; level gating happens in logWithContext so it can change at runtime
	opts := &slog.HandlerOptions{Level: LevelTrace.slogLevel(), ReplaceAttr: renameLevel}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	logger.slogger = slog.New(handler)

	if config.EnableAsync {
		logger.asyncCh = make(chan LogEntry, 1000)
		logger.wg.Add(1)
		go logger.asyncWorker()
	}

	return logger, nil
}

// NewNop returns a synchronous logger that drops everything. Used by tests and as a nil fallback.
func NewNop() *Logger {
	l, _ := NewLogger(LogConfig{Level: LevelFatal + 1, Output: "discard", Format: "text"})
	return l
}

func (l *Logger) setupFileLogging() error {
	dir := filepath.Dir(l.config.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(l.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	l.file = file
	return nil
}

func (l *Logger) asyncWorker() {
	defer l.wg.Done()

	for {
		select {
		case entry, ok := <-l.asyncCh:
			if !ok {
				return
			}
			l.writeEntry(entry)
		case <-l.ctx.Done():
			for {
				select {
				case entry, ok := <-l.asyncCh:
					if !ok {
						return
					}
					l.writeEntry(entry)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) writeEntry(entry LogEntry) {
	level := levelFromString(entry.Level).slogLevel()

	attrs := []slog.Attr{slog.Time("timestamp", entry.Timestamp)}
	if entry.Component != "" {
		attrs = append(attrs, slog.String("component", entry.Component))
	}
	if entry.ClubID != "" {
		attrs = append(attrs, slog.String("club_id", entry.ClubID))
	}
	if entry.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", entry.ActorID))
	}
	if entry.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", entry.RequestID))
	}
	if entry.Error != "" {
		attrs = append(attrs, slog.String("error", entry.Error))
	}
	if entry.Caller != "" {
		attrs = append(attrs, slog.String("caller", entry.Caller))
	}
	for key, value := range entry.Fields {
		attrs = append(attrs, slog.Any(key, value))
	}

	l.slogger.LogAttrs(context.Background(), level, entry.Message, attrs...)
}

// SetLevel changes the minimum level at runtime (config hot reload).
func (l *Logger) SetLevel(level LogLevel) { l.level.Store(int32(level)) }

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel { return LogLevel(l.level.Load()) }

// Close gracefully shuts down the logger
func (l *Logger) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.cancel()
	if l.config.EnableAsync {
		close(l.asyncCh)
		l.wg.Wait()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithContext returns a logger that pulls request, club and actor ids from ctx.
func (l *Logger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: l, ctx: ctx}
}

// WithComponent returns a logger with component information
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger    *Logger
	ctx       context.Context
	component string
}

// ComponentLogger provides component-specific logging
type ComponentLogger struct {
	logger    *Logger
	component string
}

// WithContext binds a request context to the component logger.
func (cl *ComponentLogger) WithContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: cl.logger, ctx: ctx, component: cl.component}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, "", "", fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, "", "", fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, "", "", fields...) }

func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, errString(err), "", fields...)
}

func (cl *ComponentLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(LevelDebug, msg, "", cl.component, fields...)
}

func (cl *ComponentLogger) Info(msg string, fields ...Field) {
	cl.logger.log(LevelInfo, msg, "", cl.component, fields...)
}

func (cl *ComponentLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(LevelWarn, msg, "", cl.component, fields...)
}

func (cl *ComponentLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.log(LevelError, msg, errString(err), cl.component, fields...)
}

func (cl *ContextLogger) Debug(msg string, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelDebug, msg, "", cl.component, fields...)
}

func (cl *ContextLogger) Info(msg string, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelInfo, msg, "", cl.component, fields...)
}

func (cl *ContextLogger) Warn(msg string, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelWarn, msg, "", cl.component, fields...)
}

func (cl *ContextLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.logWithContext(cl.ctx, LevelError, msg, errString(err), cl.component, fields...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (l *Logger) log(level LogLevel, msg, errorStr, component string, fields ...Field) {
	l.logWithContext(context.Background(), level, msg, errorStr, component, fields...)
}

func (l *Logger) logWithContext(ctx context.Context, level LogLevel, msg, errorStr, component string, fields ...Field) {
	if level < l.Level() || l.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     levelToString(level),
		Message:   msg,
		Component: component,
		Error:     errorStr,
		Fields:    make(map[string]interface{}, len(fields)),
	}

	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		entry.RequestID = id
	}
	if id, ok := ctx.Value(ClubIDKey).(string); ok {
		entry.ClubID = id
	}
	if id, ok := ctx.Value(ActorIDKey).(string); ok {
		entry.ActorID = id
	}

	if level >= LevelWarn {
		if _, file, line, ok := runtime.Caller(3); ok {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	for _, field := range fields {
		field.AddTo(entry.Fields)
	}

	if l.config.EnableAsync {
		select {
		case l.asyncCh <- entry:
		default:
			// buffer full, write inline
			l.writeEntry(entry)
		}
		return
	}
	l.writeEntry(entry)
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// AddTo adds the field to the provided map
func (f Field) AddTo(m map[string]interface{}) {
	m[f.Key] = f.Value
}

func String(key, value string) Field           { return Field{Key: key, Value: value} }
func Strings(key string, value []string) Field { return Field{Key: key, Value: value} }
func Int(key string, value int) Field          { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field      { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field  { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field        { return Field{Key: key, Value: value} }
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}
func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

func Error(err error) Field {
	return Field{Key: "error", Value: errString(err)}
}

// ParseLevel maps a config string (trace, debug, info, warn, error, fatal) to a LogLevel.
func ParseLevel(s string) LogLevel {
	return levelFromString(strings.ToUpper(strings.TrimSpace(s)))
}

func levelToString(level LogLevel) string {
	switch level {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// slogLevel maps a LogLevel onto slog's scale, where the named levels are four apart.
func (lv LogLevel) slogLevel() slog.Level {
	switch lv {
	case LevelTrace:
		return slog.LevelDebug - 4
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// renameLevel prints TRACE and FATAL by name instead of slog's "DEBUG-4" and "ERROR+4".
func renameLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	switch a.Value.Any() {
	case LevelTrace.slogLevel():
		a.Value = slog.StringValue("TRACE")
	case LevelFatal.slogLevel():
		a.Value = slog.StringValue("FATAL")
	}
	return a
}

func levelFromString(level string) LogLevel {
	switch level {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}
