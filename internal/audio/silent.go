package audio

import (
	"sync"
	"time"
)

// silentBackend is a wall-clock Backend that produces no sound. It backs
// practice sessions for songs without an audio file, and every session in
// builds where the device is unavailable. The clock honors the same
// pause/seek/stop contract as the speaker backend.
type silentBackend struct {
	mu sync.Mutex

	running    bool
	playing    bool
	base       time.Duration // accumulated position at last state change
	since      time.Time     // wall-clock anchor while playing
	duration   time.Duration
	onDone     func()
	generation uint64
	timer      *time.Timer
}

// NewSilent creates a Backend that tracks time without touching the audio
// device. total is the song length used to detect end of playback; zero
// means play until stopped.
func NewSilent(total time.Duration) Backend {
	return &silentBackend{duration: total}
}

func (b *silentBackend) Start(src Source, onDone func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	b.running = true
	b.playing = true
	b.base = 0
	b.since = time.Now()
	b.onDone = onDone
	b.armTimerLocked()
	return nil
}

func (b *silentBackend) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || !b.playing {
		return
	}
	b.base = b.positionLocked()
	b.playing = false
	b.disarmTimerLocked()
}

func (b *silentBackend) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || b.playing {
		return
	}
	b.playing = true
	b.since = time.Now()
	b.armTimerLocked()
}

func (b *silentBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *silentBackend) stopLocked() {
	b.running = false
	b.playing = false
	b.base = 0
	b.onDone = nil
	b.disarmTimerLocked()
	b.generation++
}

func (b *silentBackend) Seek(d time.Duration) (time.Duration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return 0, ErrNoStream
	}
	if d < 0 {
		d = 0
	}
	if b.duration > 0 && d > b.duration {
		d = b.duration
	}
	b.base = d
	b.since = time.Now()
	if b.playing {
		b.armTimerLocked()
	}
	return d, nil
}

func (b *silentBackend) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positionLocked()
}

func (b *silentBackend) positionLocked() time.Duration {
	if !b.running {
		return 0
	}
	pos := b.base
	if b.playing {
		pos += time.Since(b.since)
	}
	if b.duration > 0 && pos > b.duration {
		pos = b.duration
	}
	return pos
}

func (b *silentBackend) Duration() time.Duration {
	return b.duration
}

func (b *silentBackend) Close() error {
	b.Stop()
	return nil
}

// armTimerLocked schedules the end-of-song callback for the remaining play
// time. Must be called with b.mu held.
func (b *silentBackend) armTimerLocked() {
	b.disarmTimerLocked()
	if b.duration <= 0 {
		return
	}
	remaining := b.duration - b.positionLocked()
	if remaining < 0 {
		remaining = 0
	}
	b.generation++
	gen := b.generation
	b.timer = time.AfterFunc(remaining, func() { b.finished(gen) })
}

func (b *silentBackend) disarmTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *silentBackend) finished(gen uint64) {
	b.mu.Lock()
	if gen != b.generation || !b.running || !b.playing || b.onDone == nil {
		b.mu.Unlock()
		return
	}
	b.base = b.duration
	b.playing = false
	done := b.onDone
	b.mu.Unlock()
	done()
}
