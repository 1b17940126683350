package logging

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimestampLayout = "2006-01-02 15:04:05"

// consoleHandler renders single-line human-readable output of the form
//
//	2026-03-02 09:15:04 INFO reconcile: pass complete updates=3 files=12
//
// Attributes supplied via WithAttrs are preformatted once so repeated log
// calls only pay for the record's own attributes. A component attribute is
// lifted out of the key=value tail and shown as the message prefix.
type consoleHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	prefix    string
	component string
	preformat string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var sb strings.Builder
	sb.Grow(96 + len(h.preformat))

	sb.WriteString(timestamp.In(time.Local).Format(consoleTimestampLayout))
	sb.WriteByte(' ')
	sb.WriteString(levelLabel(record.Level))
	sb.WriteByte(' ')

	component := h.component
	var tail strings.Builder
	record.Attrs(func(attr slog.Attr) bool {
		if component == "" && h.prefix == "" && attr.Key == FieldComponent {
			component = attr.Value.Resolve().String()
			return true
		}
		appendAttr(&tail, h.prefix, attr)
		return true
	})

	if component != "" {
		sb.WriteString(component)
		sb.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		sb.WriteString(msg)
	} else {
		sb.WriteString("(no message)")
	}
	sb.WriteString(h.preformat)
	sb.WriteString(tail.String())
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	var sb strings.Builder
	for _, attr := range attrs {
		if clone.component == "" && clone.prefix == "" && attr.Key == FieldComponent {
			clone.component = attr.Value.Resolve().String()
			continue
		}
		appendAttr(&sb, clone.prefix, attr)
	}
	clone.preformat += sb.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	clone := *h
	if clone.prefix == "" {
		clone.prefix = name
	} else {
		clone.prefix += "." + name
	}
	return &clone
}

func appendAttr(sb *strings.Builder, prefix string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			if next == "" {
				next = attr.Key
			} else {
				next += "." + attr.Key
			}
		}
		for _, nested := range attr.Value.Group() {
			appendAttr(sb, next, nested)
		}
		return
	}

	key := attr.Key
	if key == "" {
		return
	}
	if prefix != "" {
		key = prefix + "." + key
	}
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(formatValue(attr.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(v.String())
	default:
		return quoteIfNeeded(v.String())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
