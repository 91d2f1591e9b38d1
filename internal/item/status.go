package item

import "strings"

// Status is the lifecycle state of an item.
type Status string

const (
	StatusLost     Status = "lost"
	StatusFound    Status = "found"
	StatusClaimed  Status = "claimed"
	StatusReturned Status = "returned"
	// StatusPending marks legacy rows that were never triaged. Nothing leaves it
	// except an administrator override.
	StatusPending Status = "pending"
)

var allStatuses = []Status{StatusLost, StatusFound, StatusClaimed, StatusReturned, StatusPending}

// transitions lists every edge allowed outside the administrator override.
var transitions = map[Status][]Status{
	StatusFound:   {StatusClaimed, StatusReturned},
	StatusClaimed: {StatusFound, StatusReturned},
}

// ParseStatus normalises s and reports whether it names a known status.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, st := range allStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Open reports whether the item still shows up on the public board.
func (s Status) Open() bool {
	return s == StatusLost || s == StatusFound
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}
