package focus

import "time"

// DefaultHistorySize is the number of snapshots kept, about ten minutes at
// the default snapshot interval.
const DefaultHistorySize = 20

// Snapshot captures what the user was doing in one application.
type Snapshot struct {
	Timestamp         time.Time
	DurationInContext time.Duration
	FocusStreak       time.Duration

	AppName   string
	ProcessID uint32
	Window    uint32
	Category  Category

	Keystrokes      uint32
	MouseClicks     uint32
	MouseDistance   uint32
	ContextSwitches uint32

	Productive bool
}

// MinMeaningfulDuration is the shortest stay in an application worth keeping.
const MinMeaningfulDuration = 5 * time.Second

// Meaningful reports whether the snapshot is worth keeping: a known
// application, at least MinMeaningfulDuration spent in it, and some input.
func (s Snapshot) Meaningful() bool {
	if s.AppName == "" {
		return false
	}
	if s.DurationInContext < MinMeaningfulDuration {
		return false
	}
	return s.Keystrokes > 0 || s.MouseClicks > 0
}

// Brief is a short human-readable label for the snapshot.
func (s Snapshot) Brief() string {
	return s.AppName
}

// History is a fixed-size ring of snapshots; pushing onto a full history
// evicts the oldest entry. It is not safe for concurrent use.
type History struct {
	snaps []Snapshot
	head  int // next write position
	count int
}

// NewHistory creates a history holding up to size snapshots.
// Non-positive sizes use DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{snaps: make([]Snapshot, size)}
}

// Push appends s, evicting the oldest snapshot when full.
func (h *History) Push(s Snapshot) {
	h.snaps[h.head] = s
	h.head = (h.head + 1) % len(h.snaps)
	if h.count < len(h.snaps) {
		h.count++
	}
}

// At returns the i-th most recent snapshot; 0 is the newest.
func (h *History) At(i int) (Snapshot, bool) {
	if i < 0 || i >= h.count {
		return Snapshot{}, false
	}
	n := len(h.snaps)
	return h.snaps[(h.head+n-1-i)%n], true
}

// Last returns the newest snapshot.
func (h *History) Last() (Snapshot, bool) {
	return h.At(0)
}

// Recent returns up to n snapshots, newest first.
func (h *History) Recent(n int) []Snapshot {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]Snapshot, n)
	for i := range out {
		out[i], _ = h.At(i)
	}
	return out
}

// FindByApp returns the newest snapshot for app, matched exactly.
func (h *History) FindByApp(app string) (Snapshot, bool) {
	for i := 0; i < h.count; i++ {
		if s, _ := h.At(i); s.AppName == app {
			return s, true
		}
	}
	return Snapshot{}, false
}

// FindLastProductive returns the newest productive, meaningful snapshot.
func (h *History) FindLastProductive() (Snapshot, bool) {
	for i := 0; i < h.count; i++ {
		if s, _ := h.At(i); s.Productive && s.Meaningful() {
			return s, true
		}
	}
	return Snapshot{}, false
}

// TotalFocus sums the time in context of every productive snapshot.
func (h *History) TotalFocus() time.Duration {
	var total time.Duration
	for i := 0; i < h.count; i++ {
		if s, _ := h.At(i); s.Productive {
			total += s.DurationInContext
		}
	}
	return total
}

// Len returns the number of stored snapshots.
func (h *History) Len() int { return h.count }

// Cap returns the maximum number of snapshots.
func (h *History) Cap() int { return len(h.snaps) }

// Empty reports whether no snapshots are stored.
func (h *History) Empty() bool { return h.count == 0 }

// Full reports whether the next Push evicts.
func (h *History) Full() bool { return h.count == len(h.snaps) }

// Clear removes all snapshots.
func (h *History) Clear() {
	clear(h.snaps)
	h.head, h.count = 0, 0
}

// Clone returns an independent copy.
func (h *History) Clone() *History {
	c := &History{snaps: make([]Snapshot, len(h.snaps)), head: h.head, count: h.count}
	copy(c.snaps, h.snaps)
	return c
}

// resized returns a history of the given size holding the newest snapshots of h.
func (h *History) resized(size int) *History {
	r := NewHistory(size)
	recent := h.Recent(r.Cap())
	for i := len(recent) - 1; i >= 0; i-- {
		r.Push(recent[i])
	}
	return r
}
