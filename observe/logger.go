package observe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents a logging severity level, ordered from least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// ParseLevel parses a string severity level. Unknown strings map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "critical":
		return LevelCritical
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "info"
	}
}

// Context carries request-scoped identifiers attached to a log entry.
// Well-known fields are typed; Extra holds arbitrary additional tags.
type Context struct {
	UserID        string
	ShopID        string
	CustomerID    string
	OrderID       string
	TransactionID string
	RequestID     string
	UserAgent     string
	IP            string
	Extra         map[string]any
}

// fields flattens the context into the key set of the wire format.
func (c *Context) fields() map[string]any {
	if c == nil {
		return nil
	}
	m := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		m[k] = v
	}
	if c.UserID != "" {
		m["userId"] = c.UserID
	}
	if c.ShopID != "" {
		m["shopId"] = c.ShopID
	}
	if c.CustomerID != "" {
		m["customerId"] = c.CustomerID
	}
	if c.OrderID != "" {
		m["orderId"] = c.OrderID
	}
	if c.TransactionID != "" {
		m["transactionId"] = c.TransactionID
	}
	if c.RequestID != "" {
		m["requestId"] = c.RequestID
	}
	if c.UserAgent != "" {
		m["userAgent"] = c.UserAgent
	}
	if c.IP != "" {
		m["ip"] = c.IP
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// ErrorDetail is the wire representation of an error attached to a log entry.
type ErrorDetail struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Logger is the single funnel for diagnostic output. In production it emits
// one JSON object per line; in development it emits a colorized
// human-readable line. Entries at error severity or above are additionally
// forwarded to the configured Reporter.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: logging is best-effort and must never panic; malformed entries
//   are dropped silently.
type Logger struct {
	env      Environment
	level    Level
	reporter Reporter
	mu       sync.Mutex
	writer   io.Writer
}

// NewLogger creates a logger writing to stdout. A nil reporter disables
// forwarding of severe entries.
func NewLogger(env Environment, level string, reporter Reporter) *Logger {
	return NewLoggerWithWriter(env, level, reporter, os.Stdout)
}

// NewLoggerWithWriter creates a logger with a custom output writer.
func NewLoggerWithWriter(env Environment, level string, reporter Reporter, w io.Writer) *Logger {
	return &Logger{
		env:      env,
		level:    ParseLevel(level),
		reporter: reporter,
		writer:   w,
	}
}

// Debug logs a message at debug severity.
func (l *Logger) Debug(msg string, lctx *Context) {
	l.Log(LevelDebug, msg, lctx, nil)
}

// Info logs a message at info severity.
func (l *Logger) Info(msg string, lctx *Context) {
	l.Log(LevelInfo, msg, lctx, nil)
}

// Warn logs a message at warn severity. err may be nil.
func (l *Logger) Warn(msg string, lctx *Context, err error) {
	l.Log(LevelWarn, msg, lctx, err)
}

// Error logs a message at error severity and reports it. err may be nil; a
// missing error is synthesized from the message before reporting.
func (l *Logger) Error(msg string, lctx *Context, err error) {
	l.Log(LevelError, msg, lctx, err)
}

// Critical logs a message at critical severity and reports it as fatal.
func (l *Logger) Critical(msg string, lctx *Context, err error) {
	l.Log(LevelCritical, msg, lctx, err)
}

// Log constructs and emits a log entry at the given severity.
func (l *Logger) Log(level Level, msg string, lctx *Context, err error) {
	if level < l.level {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)

	var detail *ErrorDetail
	if err != nil {
		detail = &ErrorDetail{
			Name:    fmt.Sprintf("%T", err),
			Message: err.Error(),
			Stack:   string(debug.Stack()),
		}
	}

	if l.env == EnvDevelopment {
		l.writeConsole(ts, level, msg, lctx, detail)
	} else {
		l.writeStructured(ts, level, msg, lctx, detail)
	}

	if level >= LevelError && l.reporter != nil {
		reported := err
		if reported == nil {
			reported = errors.New(msg)
		}
		severity := SeverityError
		if level == LevelCritical {
			severity = SeverityFatal
		}
		l.reporter.Report(context.Background(), reported, severity, lctx)
	}
}

// writeStructured emits the production wire format: one JSON object per line
// with the fields timestamp, level, message, context, error. This shape is a
// contract with downstream log scrapers and must not change.
func (l *Logger) writeStructured(ts string, level Level, msg string, lctx *Context, detail *ErrorDetail) {
	entry := map[string]any{
		"timestamp": ts,
		"level":     level.String(),
		"message":   msg,
	}
	if fields := lctx.fields(); fields != nil {
		entry["context"] = fields
	}
	if detail != nil {
		entry["error"] = detail
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // Silently drop malformed log entries
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// ANSI colors for the development console format.
const (
	colorReset   = "\x1b[0m"
	colorGray    = "\x1b[90m"
	colorCyan    = "\x1b[36m"
	colorYellow  = "\x1b[33m"
	colorRed     = "\x1b[31m"
	colorBoldRed = "\x1b[1;31m"
)

func levelColor(level Level) string {
	switch level {
	case LevelDebug:
		return colorGray
	case LevelInfo:
		return colorCyan
	case LevelWarn:
		return colorYellow
	case LevelError:
		return colorRed
	case LevelCritical:
		return colorBoldRed
	default:
		return colorReset
	}
}

// writeConsole emits the development format: a colorized single line with
// key=value context pairs in stable order.
func (l *Logger) writeConsole(ts string, level Level, msg string, lctx *Context, detail *ErrorDetail) {
	var b strings.Builder
	b.WriteString(colorGray)
	b.WriteString(ts)
	b.WriteString(colorReset)
	b.WriteString(" ")
	b.WriteString(levelColor(level))
	b.WriteString(strings.ToUpper(level.String()))
	b.WriteString(colorReset)
	b.WriteString(" ")
	b.WriteString(msg)

	if fields := lctx.fields(); len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	if detail != nil {
		fmt.Fprintf(&b, " %serror=%s%s", colorRed, detail.Message, colorReset)
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.writer, b.String())
}
