package feed

import (
	"context"
	"io"
)

// Source delivers events one at a time in canonical order. Next returns
// io.EOF when the stream is exhausted (file sources) or closed (live sources).
type Source interface {
	Next(ctx context.Context) (*Event, error)
}

// SliceSource replays a fixed slice of events. Used in tests and fixtures.
// Events are sorted once at construction.
type SliceSource struct {
	events []*Event
	pos    int
}

// NewSliceSource creates a source over the given events in canonical order.
func NewSliceSource(events []*Event) *SliceSource {
	sorted := make([]*Event, len(events))
	copy(sorted, events)
	SortEvents(sorted)
	return &SliceSource{events: sorted}
}

// Next returns the next event or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

var _ Source = (*SliceSource)(nil)
