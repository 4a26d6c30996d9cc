package focus

import (
	"fmt"
	"time"
)

// MaxRecentActivities bounds Recovery.Activities.
const MaxRecentActivities = 5

// Activity is one line of "what you were doing" shown on return.
type Activity struct {
	Description string
	Timestamp   time.Time
}

// Recovery describes a distraction that just ended and the work it
// interrupted.
type Recovery struct {
	// LastProductive is the newest productive snapshot before the
	// distraction; valid only when HasLastProductive is set.
	LastProductive    Snapshot
	HasLastProductive bool

	DistractionStart    time.Time
	DistractionEnd      time.Time
	DistractionDuration time.Duration
	DistractionApp      string

	Activities []Activity

	// FocusBefore is how long the user had been focused when the
	// distraction began.
	FocusBefore time.Duration
}

// buildRecovery summarizes h for a distraction from start to end in app.
func buildRecovery(h *History, start, end time.Time, app string) Recovery {
	r := Recovery{
		DistractionStart:    start,
		DistractionEnd:      end,
		DistractionDuration: end.Sub(start),
		DistractionApp:      app,
		FocusBefore:         h.TotalFocus(),
	}
	r.LastProductive, r.HasLastProductive = h.FindLastProductive()

	for _, s := range h.Recent(MaxRecentActivities) {
		if !s.Meaningful() {
			continue
		}
		r.Activities = append(r.Activities, Activity{
			Description: fmt.Sprintf("Working in %s", s.Brief()),
			Timestamp:   s.Timestamp,
		})
	}
	return r
}

// Summary is a one-line description suitable for a notification.
func (r Recovery) Summary() string {
	away := r.DistractionDuration.Round(time.Second)
	if !r.HasLastProductive {
		return fmt.Sprintf("Back after %s in %s", away, r.DistractionApp)
	}
	return fmt.Sprintf("Back after %s in %s; you were in %s", away, r.DistractionApp, r.LastProductive.Brief())
}
