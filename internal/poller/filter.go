package poller

import "fmt"

// SelectNew returns the entries of a chronological batch that have not been
// processed yet: sequence strictly above the cursor, in increasing order.
// Entries that do not increase on the previous kept entry are dropped too,
// which removes duplicates that appear when the feed shifts between pages.
func SelectNew(batch []Entry, cursor int64, hasCursor bool) []Entry {
	var fresh []Entry
	floor, hasFloor := cursor, hasCursor
	for _, e := range batch {
		if hasFloor && e.Seq <= floor {
			continue
		}
		fresh = append(fresh, e)
		floor, hasFloor = e.Seq, true
	}
	return fresh
}

// CursorPolicy decides where the cursor moves after a batch.
type CursorPolicy int

const (
	// AdvanceToNewestFetched moves the cursor to the newest fetched event,
	// whether or not it was dispatched. Events that fell out of the batch
	// window are never revisited.
	AdvanceToNewestFetched CursorPolicy = iota

	// AdvanceToNewestDispatched moves the cursor only as far as the newest
	// event that was handed to the bus.
	AdvanceToNewestDispatched
)

// ParseCursorPolicy maps the configured names "fetched" and "dispatched".
func ParseCursorPolicy(s string) (CursorPolicy, error) {
	switch s {
	case "", "fetched":
		return AdvanceToNewestFetched, nil
	case "dispatched":
		return AdvanceToNewestDispatched, nil
	default:
		return 0, fmt.Errorf("unknown cursor policy %q", s)
	}
}

func (p CursorPolicy) String() string {
	if p == AdvanceToNewestDispatched {
		return "dispatched"
	}
	return "fetched"
}

// Next returns the cursor candidate for a batch. ok is false when the batch
// gives the policy nothing to advance to.
func (p CursorPolicy) Next(batch, dispatched []Entry) (seq int64, ok bool) {
	switch p {
	case AdvanceToNewestDispatched:
		if len(dispatched) == 0 {
			return 0, false
		}
		return dispatched[len(dispatched)-1].Seq, true
	default:
		if len(batch) == 0 {
			return 0, false
		}
		return batch[len(batch)-1].Seq, true
	}
}
