// Package sched maps the transport's playback position onto the song's cue
// list, emitting each cue exactly once at its offset. Emission order is
// non-decreasing in cue timestamp, a hard invariant held across seeks,
// pauses and clock anomalies.
package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/code-smore/smore/internal/events"
	"github.com/code-smore/smore/internal/songdoc"
	"github.com/code-smore/smore/internal/transport"
)

const (
	// DefaultTick is the polling cadence: fine enough not to visibly miss
	// cues, coarse enough not to busy-wait.
	DefaultTick = 20 * time.Millisecond
	// DefaultJitterTolerance is how far the playback clock may move
	// backward (device buffer jitter) before the scheduler treats the
	// movement as an implicit seek and resynchronizes.
	DefaultJitterTolerance = 150 * time.Millisecond
)

// Position is the transport view the scheduler polls. *transport.Controller
// satisfies it.
type Position interface {
	Snapshot() transport.Snapshot
}

// Emitter receives the scheduler's render events. *events.Bus satisfies it.
type Emitter interface {
	Publish(ev events.Event)
}

// Options tune the scheduling loop. Zero values select the defaults.
type Options struct {
	Tick            time.Duration
	JitterTolerance time.Duration
}

// Scheduler owns the schedule cursor: the index of the next not-yet-emitted
// cue. The cursor advances monotonically during normal playback and is
// recomputed on any position jump.
type Scheduler struct {
	mu   sync.Mutex
	song *songdoc.Song
	tr   Position
	bus  Emitter

	tick   time.Duration
	jitter time.Duration

	cursor      int
	lastPos     time.Duration
	lastSeekSeq uint64
}

// New creates a Scheduler for song, polling tr and emitting on bus.
func New(song *songdoc.Song, tr Position, bus Emitter, opts Options) *Scheduler {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.JitterTolerance <= 0 {
		opts.JitterTolerance = DefaultJitterTolerance
	}
	return &Scheduler{
		song:   song,
		tr:     tr,
		bus:    bus,
		tick:   opts.Tick,
		jitter: opts.JitterTolerance,
	}
}

// Run polls the transport until ctx is cancelled. It blocks only on its own
// tick wait, never on device I/O, and never waits on event delivery.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// Reload swaps the song mid-session (live editing) and resynchronizes the
// cursor at the current position.
func (s *Scheduler) Reload(song *songdoc.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.song = song
	s.resyncLocked(s.lastPos)
}

// step is one scheduler tick.
func (s *Scheduler) step() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.tr.Snapshot()

	switch snap.State {
	case transport.Seeking:
		// Position is in flux until the backend confirms; the confirmed
		// target arrives through SeekSeq on a later tick.
		return
	case transport.Stopped:
		s.cursor = 0
		s.lastPos = 0
		s.lastSeekSeq = snap.SeekSeq
		return
	}

	if snap.SeekSeq != s.lastSeekSeq {
		// Explicit seek confirmed by the transport.
		s.lastSeekSeq = snap.SeekSeq
		s.resyncLocked(snap.SeekPos)
	} else if snap.Position+s.jitter < s.lastPos {
		// Clock moved backward without a seek. Resynchronize instead of
		// emitting out of order.
		slog.Warn("playback clock moved backward, resynchronizing",
			"from", s.lastPos, "to", snap.Position)
		s.resyncLocked(snap.Position)
	}

	s.emitDueLocked(snap.Position)
	s.lastPos = snap.Position
}

// resyncLocked recomputes the cursor for a position jump: past cues are
// skipped, not replayed, and a single StateSync event carries the cue active
// at the target so the sink can repaint context. Must be called with s.mu
// held.
func (s *Scheduler) resyncLocked(target time.Duration) {
	s.cursor = s.song.SeekIndex(target)
	s.lastPos = target

	ev := events.StateSyncEvent{Target: target}
	if s.cursor > 0 {
		ev.Active = s.song.Cue(s.cursor - 1)
		ev.HasActive = true
	}
	s.bus.Publish(ev)
}

// emitDueLocked emits every cue with offset <= pos, in document order for
// equal offsets, all within this tick. Must be called with s.mu held.
func (s *Scheduler) emitDueLocked(pos time.Duration) {
	for s.cursor < s.song.Len() && s.song.Cue(s.cursor).At <= pos {
		s.bus.Publish(events.CueEvent{Cue: s.song.Cue(s.cursor)})
		s.cursor++
	}
}
