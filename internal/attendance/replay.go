package attendance

import (
	"context"
	"fmt"

	"github.com/kozaktomas/presence-station/internal/presence"
)

// ReplayReport summarizes a registry rebuild.
type ReplayReport struct {
	Entries int
	Present int
	// Anomalies counts entries that broke IN/OUT alternation (an OUT without a
	// preceding IN, or an IN while already present). They are applied as toggles
	// would have been: the last event for a key wins.
	Anomalies int
}

// Replay rebuilds registry from entries in order. The registry is derived from the
// log, so a crash between a durable append and the in-memory update is repaired on
// the next start.
func Replay(entries []Entry, registry *presence.Registry) ReplayReport {
	report := ReplayReport{Entries: len(entries)}
	for _, e := range entries {
		switch e.Action {
		case ActionIn:
			if registry.Contains(e.Key) {
				report.Anomalies++
			}
			registry.CheckIn(e.Key, e.Timestamp)
		case ActionOut:
			if !registry.CheckOut(e.Key) {
				report.Anomalies++
			}
		}
	}
	report.Present = registry.Count()
	return report
}

// Restore reads the log and replays it into registry.
func Restore(ctx context.Context, log Log, registry *presence.Registry) (ReplayReport, error) {
	entries, err := log.Entries(ctx)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("reading attendance log: %w", err)
	}
	return Replay(entries, registry), nil
}
