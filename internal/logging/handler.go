package logging

import (
	"context"
	"errors"
	"log/slog"
)

// AttrsFunc returns attributes to add to every record, such as the
// current tick and session.
type AttrsFunc func() []slog.Attr

// fanout hands every record to each handler enabled for its level.
type fanout []slog.Handler

// Fanout combines handlers, skipping nil ones. A failing handler does not
// keep the record from the others; their errors are joined.
func Fanout(handlers ...slog.Handler) slog.Handler {
	f := make(fanout, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// withAttrs adds the result of attrs to each record at the top level.
type withAttrs struct {
	inner slog.Handler
	attrs AttrsFunc
}

// WithDynamicAttrs wraps inner so that every record carries attrs() at
// the time it is handled. A nil attrs returns inner.
func WithDynamicAttrs(inner slog.Handler, attrs AttrsFunc) slog.Handler {
	if attrs == nil {
		return inner
	}
	return &withAttrs{inner: inner, attrs: attrs}
}

func (h *withAttrs) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *withAttrs) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs()...)
	return h.inner.Handle(ctx, r)
}

func (h *withAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &withAttrs{inner: h.inner.WithAttrs(attrs), attrs: h.attrs}
}

func (h *withAttrs) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &withAttrs{inner: h.inner.WithGroup(name), attrs: h.attrs}
}
