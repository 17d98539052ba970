// Package transport is the play/pause/seek/stop control surface over audio
// playback. The Controller owns the single source of truth for the current
// transport state and position.
package transport

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/code-smore/smore/internal/audio"
	"github.com/code-smore/smore/internal/events"
)

var (
	ErrNoSource       = errors.New("no audio source loaded")
	ErrAlreadyPlaying = errors.New("already playing")
	ErrNotPlaying     = errors.New("not currently playing")
)

// State is the transport state. Seeking is transient: it lasts from a seek
// request until the backend confirms the new position.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	Seeking
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Seeking:
		return "seeking"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent read-only view of the transport, polled by the
// scheduler. SeekSeq increments once per confirmed seek; SeekPos is the
// actual position the backend landed on for that seek.
type Snapshot struct {
	State    State
	Position time.Duration
	SeekSeq  uint64
	SeekPos  time.Duration
}

// Controller drives an audio.Backend through the transport state machine.
// All mutation goes through its public operations; state is never exposed
// mid-transition.
type Controller struct {
	mu      sync.RWMutex
	backend audio.Backend
	bus     *events.Bus

	state  State
	src    audio.Source
	loaded bool

	// generation invalidates stale async callbacks (finished streams,
	// in-flight seeks) after Stop or a new Start.
	generation uint64

	// Seek coalescing: while one backend seek is in flight, only the most
	// recent requested target survives in pending.
	seekInFlight bool
	pending      *time.Duration
	resumeAfter  bool // play intent to restore once the seek confirms

	seekSeq uint64
	seekPos time.Duration
}

// New creates a Controller over the given backend, publishing state changes
// on bus.
func New(backend audio.Backend, bus *events.Bus) *Controller {
	return &Controller{
		backend: backend,
		bus:     bus,
		state:   Stopped,
	}
}

// Load stages an audio source for playback. Any current playback is stopped.
func (c *Controller) Load(src audio.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.src = src
	c.loaded = true
}

// Play starts playback from Stopped or resumes from Paused. When it returns
// nil, the backend is producing audio; on ErrDeviceUnavailable the state
// remains Stopped.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Playing:
		return ErrAlreadyPlaying
	case Seeking:
		// Mid-seek: record the intent, the seek confirmation applies it.
		c.resumeAfter = true
		return nil
	case Paused:
		c.backend.Resume()
		c.setStateLocked(Playing)
		return nil
	default: // Stopped
		if !c.loaded {
			return ErrNoSource
		}
		c.generation++
		gen := c.generation
		if err := c.backend.Start(c.src, func() { c.finished(gen) }); err != nil {
			return err
		}
		c.setStateLocked(Playing)
		return nil
	}
}

// Pause pauses playback.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Playing:
		c.backend.Pause()
		c.setStateLocked(Paused)
		return nil
	case Seeking:
		c.resumeAfter = false
		return nil
	default:
		return ErrNotPlaying
	}
}

// Stop halts playback from any state, including mid-seek, and leaves the
// device idle before returning. The playback clock resets to zero.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
}

// stopLocked must be called with c.mu held.
func (c *Controller) stopLocked() {
	c.generation++ // abandon in-flight seeks and finish callbacks
	c.seekInFlight = false
	c.pending = nil
	c.backend.Stop()
	if c.state != Stopped {
		c.setStateLocked(Stopped)
	}
}

// Seek moves playback to t from any state, preserving the prior play/pause
// intent once the backend confirms. Concurrent requests are coalesced:
// only the latest target survives (last-seek-wins).
func (c *Controller) Seek(t time.Duration) error {
	if t < 0 {
		t = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seekInFlight {
		c.pending = &t
		return nil
	}

	switch c.state {
	case Playing:
		c.resumeAfter = true
	case Paused:
		c.resumeAfter = false
	case Stopped:
		// Seeking from Stopped primes the backend paused at the target.
		if !c.loaded {
			return ErrNoSource
		}
		c.generation++
		gen := c.generation
		if err := c.backend.Start(c.src, func() { c.finished(gen) }); err != nil {
			return err
		}
		c.backend.Pause()
		c.resumeAfter = false
	}

	c.setStateLocked(Seeking)
	c.seekInFlight = true
	go c.runSeek(c.generation, t)
	return nil
}

// runSeek performs backend seeks off the caller's goroutine, looping while
// newer coalesced targets arrive, then restores the prior play/pause state.
func (c *Controller) runSeek(gen uint64, target time.Duration) {
	for {
		actual, err := c.backend.Seek(target)

		c.mu.Lock()
		if gen != c.generation || c.state != Seeking {
			// Stopped or restarted while we were seeking; nothing to restore.
			c.mu.Unlock()
			return
		}
		if c.pending != nil {
			target = *c.pending
			c.pending = nil
			c.mu.Unlock()
			continue
		}

		c.seekInFlight = false
		if err != nil {
			slog.Warn("seek failed", "target", target, "error", err)
			actual = c.backend.Position()
		}
		c.seekSeq++
		c.seekPos = actual
		if c.resumeAfter {
			c.backend.Resume()
			c.setStateLocked(Playing)
		} else {
			c.backend.Pause()
			c.setStateLocked(Paused)
		}
		c.mu.Unlock()
		return
	}
}

// finished handles end-of-stream callbacks from the backend. Stale
// generations (stopped or restarted sessions) are ignored.
func (c *Controller) finished(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	c.backend.Stop()
	c.setStateLocked(Stopped)
}

// State returns the current transport state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Position returns the current playback position. It is frozen while paused
// and zero while stopped.
func (c *Controller) Position() time.Duration {
	return c.backend.Position()
}

// Snapshot returns a consistent view of state and position for the
// scheduler's polling loop.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	state := c.state
	seq := c.seekSeq
	seekPos := c.seekPos
	c.mu.RUnlock()

	return Snapshot{
		State:    state,
		Position: c.backend.Position(),
		SeekSeq:  seq,
		SeekPos:  seekPos,
	}
}

// setStateLocked records a state transition and publishes it. Must be
// called with c.mu held.
func (c *Controller) setStateLocked(s State) {
	c.state = s
	if c.bus != nil {
		c.bus.Publish(events.TransportChangedEvent{
			State:    s.String(),
			Position: c.backend.Position(),
		})
	}
}
