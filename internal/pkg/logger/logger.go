// Package logger writes leveled, structured JSON log lines with email
// redaction. Fields are passed as alternating key/value pairs.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger holds the output sink and filtering options.
type Logger struct {
	mu        sync.Mutex
	level     Level
	redactPII bool
	out       io.Writer
	parent    *Logger
	fields    []interface{}
}

var defaultLogger = &Logger{level: INFO, redactPII: true, out: os.Stderr}

// Configure sets the minimum level and redaction for the default logger.
func Configure(level string, redactPII bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = ParseLevel(level)
	defaultLogger.redactPII = redactPII
}

// SetOutput redirects the default logger, mainly for tests.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.out = w
}

// With returns a child logger that adds fields to every entry.
func With(fields ...interface{}) *Logger {
	return defaultLogger.With(fields...)
}

func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{parent: l, fields: merged}
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	root := l.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	if level < root.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	all := append(append([]interface{}{}, l.fields...), fields...)
	for i := 0; i < len(all)-1; i += 2 {
		key := fmt.Sprintf("%v", all[i])
		entry[key] = fieldValue(key, all[i+1], root.redactPII)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"log marshal failed: %v"}`, err))
	}
	fmt.Fprintln(root.out, string(data))
}

// root walks to the logger that owns the sink; children only carry fields.
func (l *Logger) root() *Logger {
	for l.parent != nil {
		l = l.parent
	}
	return l
}

// fieldValue keeps numbers and booleans as JSON scalars and stringifies the
// rest, redacting emails when enabled.
func fieldValue(key string, v interface{}, redact bool) interface{} {
	switch val := v.(type) {
	case bool, int, int64, float64, uint, uint64:
		return val
	case time.Duration:
		return val.String()
	case error:
		v = val.Error()
	}
	s := fmt.Sprintf("%v", v)
	if redact {
		s = redactPIIValue(key, s)
	}
	return s
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if (strings.Contains(key, "email") || strings.Contains(key, "approver")) && strings.Contains(val, "@") {
		return RedactEmail(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
