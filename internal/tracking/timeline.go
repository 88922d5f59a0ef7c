package tracking

import (
	"slices"
	"time"
)

// SortEvents orders events chronologically. The sort is stable so events
// derived from one carrier record keep their relative order.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.When.Compare(b.When)
	})
}

// Chronological reports whether events are in non-decreasing time order.
func Chronological(events []Event) bool {
	for i := 1; i < len(events); i++ {
		if events[i].When.Before(events[i-1].When) {
			return false
		}
	}
	return true
}

// SameDay reports whether a and b fall on the same calendar day in a's zone.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
