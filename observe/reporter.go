package observe

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Severity classifies an error forwarded to the reporting sink.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityFatal Severity = "fatal"
)

// Reporter is the external error-reporting sink. The logger forwards every
// entry at error severity or above to it.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: reporting is best-effort; implementations must not panic and
//   failures are not surfaced to the caller.
type Reporter interface {
	Report(ctx context.Context, err error, severity Severity, lctx *Context)
}

// WriterReporter is a Reporter that serializes reports as JSON lines to a
// writer. It stands in for a hosted error-tracking service in environments
// that have none.
type WriterReporter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewWriterReporter creates a reporter writing to w.
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{writer: w}
}

func (r *WriterReporter) Report(_ context.Context, err error, severity Severity, lctx *Context) {
	report := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"severity":  string(severity),
		"error":     err.Error(),
	}
	if fields := lctx.fields(); fields != nil {
		report["context"] = fields
	}

	data, marshalErr := json.Marshal(report)
	if marshalErr != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Write(data)
	r.writer.Write([]byte("\n"))
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) Report(context.Context, error, Severity, *Context) {}

var (
	_ Reporter = (*WriterReporter)(nil)
	_ Reporter = NopReporter{}
)
