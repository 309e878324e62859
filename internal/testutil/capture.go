package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Record is one captured log entry.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Capture is a slog handler that keeps every record in memory.
type Capture struct {
	mu      *sync.Mutex
	records *[]Record
	attrs   []slog.Attr
}

// NewCaptureLogger returns a logger and the handler recording its output.
func NewCaptureLogger() (*slog.Logger, *Capture) {
	c := &Capture{mu: &sync.Mutex{}, records: &[]Record{}}
	return slog.New(c), c
}

// Enabled implements slog.Handler.
func (c *Capture) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (c *Capture) Handle(_ context.Context, r slog.Record) error {
	rec := Record{Level: r.Level, Message: r.Message, Attrs: make(map[string]string)}
	for _, a := range c.attrs {
		rec.Attrs[a.Key] = a.Value.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.String()
		return true
	})
	c.mu.Lock()
	*c.records = append(*c.records, rec)
	c.mu.Unlock()
	return nil
}

// WithAttrs implements slog.Handler.
func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *c
	cp.attrs = append(append([]slog.Attr{}, c.attrs...), attrs...)
	return &cp
}

// WithGroup implements slog.Handler. Groups are flattened.
func (c *Capture) WithGroup(string) slog.Handler { return c }

// Records returns a copy of the captured records.
func (c *Capture) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), *c.records...)
}

// Contains reports whether a record at level or above has a message
// containing substr.
func (c *Capture) Contains(level slog.Level, substr string) bool {
	for _, r := range c.Records() {
		if r.Level >= level && strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}
