package feed

import (
	"errors"
	"sort"
)

// ErrInvalidOrdering is returned when events are not in canonical chain order.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortEvents orders events by (blockNumber ASC, logIndex ASC). This is the
// canonical blockchain order the engine's sequential model depends on.
func SortEvents(events []*Event) {
	sort.Slice(events, func(i, j int) bool {
		return compareEvents(events[i], events[j]) < 0
	})
}

// ValidateOrdering checks that events are strictly increasing by
// (blockNumber, logIndex). Returns ErrInvalidOrdering on any regression or
// duplicate.
func ValidateOrdering(events []*Event) error {
	for i := 1; i < len(events); i++ {
		if compareEvents(events[i-1], events[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareEvents returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (blockNumber ASC, logIndex ASC)
func compareEvents(a, b *Event) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}
