// Package events carries render events from the playback engine to whatever
// sink is listening (the terminal UI, a logger, a test). Publishing never
// blocks the caller; slow subscribers cannot stall the scheduler.
package events

import (
	"time"

	"github.com/code-smore/smore/internal/songdoc"
)

// Event type identifiers for kelindar/event.
const (
	TypeCue uint32 = iota + 1
	TypeStateSync
	TypeTransportChanged
)

// Event is the interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CueEvent is emitted when playback reaches a cue. Emission order is
// non-decreasing in cue offset.
type CueEvent struct {
	Cue songdoc.Cue
}

// Type returns the event type identifier for CueEvent.
func (e CueEvent) Type() uint32 { return TypeCue }

// StateSyncEvent is emitted once after a position jump so the sink can
// repaint context without replaying history. Active is the cue in effect at
// Target; HasActive is false when the jump lands before the first cue.
type StateSyncEvent struct {
	Active    songdoc.Cue
	HasActive bool
	Target    time.Duration
}

// Type returns the event type identifier for StateSyncEvent.
func (e StateSyncEvent) Type() uint32 { return TypeStateSync }

// TransportChangedEvent is emitted on every transport state change.
type TransportChangedEvent struct {
	State    string
	Position time.Duration
}

// Type returns the event type identifier for TransportChangedEvent.
func (e TransportChangedEvent) Type() uint32 { return TypeTransportChanged }
