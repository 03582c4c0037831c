package logsink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Handler lets slog loggers write into a Sink. Records below Info map to
// DEBUG, Error and above to ERROR. Info/Warn records go to ACCESS when
// they carry access=true and to DEBUG otherwise.
type Handler struct {
	sink   *Sink
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func NewHandler(sink *Sink, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{sink: sink, level: level}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)

	access := false
	write := func(prefix string, a slog.Attr) {
		if isAccess(a) {
			access = a.Value.Bool()
			return
		}
		if a.Equal(slog.Attr{}) {
			return
		}
		fmt.Fprintf(&b, " %s%s=%v", prefix, a.Key, a.Value.Resolve())
	}

	for _, a := range h.attrs {
		write("", a)
	}
	prefix := h.prefix()
	r.Attrs(func(a slog.Attr) bool {
		write(prefix, a)
		return true
	})

	return h.sink.Append(sinkLevel(r.Level, access), b.String())
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	prefix := h.prefix()
	for _, a := range attrs {
		// access picks the level, so it stays unprefixed under a group.
		if !isAccess(a) {
			a.Key = prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

func (h *Handler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func isAccess(a slog.Attr) bool {
	return a.Key == "access" && a.Value.Kind() == slog.KindBool
}

func sinkLevel(l slog.Level, access bool) Level {
	switch {
	case l >= slog.LevelError:
		return Error
	case l >= slog.LevelInfo && access:
		return Access
	default:
		return Debug
	}
}
