// Package sessionlog mirrors important log records to the connected UI
// session while leaving normal log output untouched.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

// EntryCallback receives each record at or above the capture threshold.
// msg already has the record's attributes appended as key=value pairs.
// source is the dot-separated slog group, or "".
type EntryCallback func(ts time.Time, level slog.Level, msg string, source string)

// TeeHandler forwards every record to a base [slog.Handler] and additionally
// hands records at or above minLevel to a callback.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
	// attrs are the pre-bound attributes rendered for the callback, with keys
	// qualified by the group that was open when they were added.
	attrs []string
}

// NewTeeHandler creates a TeeHandler. A nil callback turns it into a plain
// wrapper around base.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled defers to the base handler. minLevel only gates the callback.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle forwards the record to the base handler and then, if the level
// qualifies, to the callback. The callback runs even when the base handler
// fails; the base error is returned.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)

	if h.callback != nil && record.Level >= h.minLevel {
		h.invoke(record)
	}
	return err
}

func (h *TeeHandler) invoke(record slog.Record) {
	defer func() {
		if r := recover(); r != nil {
			// stderr, not slog: logging here would re-enter this handler.
			fmt.Fprintf(os.Stderr, "[sessionlog] callback panicked: %v\n%s\n", r, debug.Stack())
		}
	}()
	h.callback(record.Time, record.Level, h.render(record), h.group)
}

// render appends bound and record attributes to the message.
func (h *TeeHandler) render(record slog.Record) string {
	if len(h.attrs) == 0 && record.NumAttrs() == 0 {
		return record.Message
	}
	var b strings.Builder
	b.WriteString(record.Message)
	for _, a := range h.attrs {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		for _, s := range flattenAttr(h.group, a) {
			b.WriteByte(' ')
			b.WriteString(s)
		}
		return true
	})
	return b.String()
}

// flattenAttr renders a as key=value pairs, expanding nested groups into
// dotted keys. Empty attributes are dropped.
func flattenAttr(prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return nil
	}
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		var out []string
		for _, child := range a.Value.Group() {
			out = append(out, flattenAttr(key, child)...)
		}
		return out
	}

	value := a.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\n\"=") {
		value = fmt.Sprintf("%q", value)
	}
	return []string{key + "=" + value}
}

// WithAttrs binds attrs on the base handler and remembers them for the
// callback. Callback, threshold and group are preserved.
func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	rendered := append([]string(nil), h.attrs...)
	for _, a := range attrs {
		rendered = append(rendered, flattenAttr(h.group, a)...)
	}
	return &TeeHandler{
		base:     h.base.WithAttrs(attrs),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    h.group,
		attrs:    rendered,
	}
}

// WithGroup opens a group on the base handler and extends the source name
// reported to the callback.
func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TeeHandler{
		base:     h.base.WithGroup(name),
		callback: h.callback,
		minLevel: h.minLevel,
		group:    group,
		attrs:    h.attrs,
	}
}
