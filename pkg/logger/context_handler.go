package logger

import (
	"context"
	"log/slog"
	"slices"
)

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// ContextHandler runs extractors on every handled record and appends what
// they return. An extracted key that was already bound with WithAttrs is
// skipped, so a slot logger carrying tenant_id does not repeat it when the
// call context also names the tenant.
type ContextHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
	bound      []string // top-level keys fixed by WithAttrs
	grouped    bool
}

// NewContextHandler wraps next. Nil extractors are dropped.
func NewContextHandler(next slog.Handler, extractors ...ContextExtractor) *ContextHandler {
	h := &ContextHandler{next: next}
	for _, ex := range extractors {
		if ex != nil {
			h.extractors = append(h.extractors, ex)
		}
	}
	return h
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		attr, ok := ex(ctx)
		if !ok {
			continue
		}
		if !h.grouped && slices.Contains(h.bound, attr.Key) {
			continue
		}
		rec.AddAttrs(attr)
	}
	return h.next.Handle(ctx, rec)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.next = h.next.WithAttrs(attrs)
	if !h.grouped {
		for _, a := range attrs {
			c.bound = append(c.bound, a.Key)
		}
	}
	return c
}

// WithGroup nests subsequent attributes. Extracted attributes land inside
// the group too, so bound keys no longer collide with them.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.next = h.next.WithGroup(name)
	c.grouped = true
	return c
}

func (h *ContextHandler) clone() *ContextHandler {
	return &ContextHandler{
		next:       h.next,
		extractors: h.extractors,
		bound:      slices.Clone(h.bound),
		grouped:    h.grouped,
	}
}
