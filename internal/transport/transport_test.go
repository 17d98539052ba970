package transport

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/code-smore/smore/internal/audio"
)

// fakeBackend is a scriptable audio.Backend: positions advance only when
// the test says so, and seeks can be slowed down to exercise coalescing.
type fakeBackend struct {
	mu sync.Mutex

	started  bool
	playing  bool
	pos      time.Duration
	startErr error

	seekDelay time.Duration
	seeks     []time.Duration // targets actually applied to the device
	onDone    func()
}

func (f *fakeBackend) Start(src audio.Source, onDone func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	f.playing = true
	f.pos = 0
	f.onDone = onDone
	return nil
}

func (f *fakeBackend) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeBackend) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		f.playing = true
	}
}

func (f *fakeBackend) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	f.playing = false
	f.pos = 0
	f.onDone = nil
}

func (f *fakeBackend) Seek(d time.Duration) (time.Duration, error) {
	f.mu.Lock()
	delay := f.seekDelay
	f.mu.Unlock()
	time.Sleep(delay) // simulated device buffer flush

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return 0, audio.ErrNoStream
	}
	// Round to a coarse device granularity so callers must use the
	// reported position, not the requested one.
	actual := d.Truncate(10 * time.Millisecond)
	f.seeks = append(f.seeks, actual)
	f.pos = actual
	return actual, nil
}

func (f *fakeBackend) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeBackend) Duration() time.Duration { return time.Minute }
func (f *fakeBackend) Close() error            { return nil }

func (f *fakeBackend) appliedSeeks() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.seeks))
	copy(out, f.seeks)
	return out
}

func (f *fakeBackend) finish() {
	f.mu.Lock()
	done := f.onDone
	f.mu.Unlock()
	if done != nil {
		done()
	}
}

func newTestController() (*Controller, *fakeBackend) {
	fb := &fakeBackend{}
	c := New(fb, nil)
	c.Load(audio.Source{Name: "test"})
	return c, fb
}

// waitForState polls until the controller settles in want or the deadline
// passes.
func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("controller state = %v, want %v", c.State(), want)
}

func TestPlayFromStopped(t *testing.T) {
	c, fb := newTestController()

	if err := c.Play(); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if c.State() != Playing {
		t.Errorf("state = %v, want Playing", c.State())
	}
	if !fb.started {
		t.Error("backend was not started")
	}
}

func TestPlayWithoutSource(t *testing.T) {
	c := New(&fakeBackend{}, nil)
	if err := c.Play(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Play without source = %v, want ErrNoSource", err)
	}
}

func TestPlayDeviceUnavailableLeavesStopped(t *testing.T) {
	c, fb := newTestController()
	fb.startErr = audio.ErrDeviceUnavailable

	err := c.Play()
	if !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("Play = %v, want ErrDeviceUnavailable", err)
	}
	if c.State() != Stopped {
		t.Errorf("state after failed Play = %v, want Stopped", c.State())
	}
}

func TestPauseResume(t *testing.T) {
	c, fb := newTestController()

	if err := c.Pause(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Pause while stopped = %v, want ErrNotPlaying", err)
	}

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause returned error: %v", err)
	}
	if c.State() != Paused || fb.playing {
		t.Errorf("state = %v playing=%v, want Paused and backend paused", c.State(), fb.playing)
	}

	if err := c.Play(); err != nil {
		t.Fatalf("resume returned error: %v", err)
	}
	if c.State() != Playing || !fb.playing {
		t.Errorf("state = %v playing=%v, want Playing backend resumed", c.State(), fb.playing)
	}
}

func TestPlayWhilePlaying(t *testing.T) {
	c, _ := newTestController()
	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Play(); !errors.Is(err, ErrAlreadyPlaying) {
		t.Errorf("second Play = %v, want ErrAlreadyPlaying", err)
	}
}

func TestStopReleasesDeviceAndPlayAgainWorks(t *testing.T) {
	c, fb := newTestController()

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	if c.State() != Stopped {
		t.Fatalf("state = %v, want Stopped", c.State())
	}
	if fb.started {
		t.Error("backend still holds the stream after Stop")
	}
	if got := c.Position(); got != 0 {
		t.Errorf("position after Stop = %v, want 0", got)
	}

	// A fresh session must start without a process restart.
	if err := c.Play(); err != nil {
		t.Fatalf("Play after Stop returned error: %v", err)
	}
	if c.State() != Playing {
		t.Errorf("state = %v, want Playing", c.State())
	}
}

func TestSeekPreservesPlayIntent(t *testing.T) {
	c, fb := newTestController()

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Seek(10 * time.Second); err != nil {
		t.Fatalf("Seek returned error: %v", err)
	}
	waitForState(t, c, Playing)
	if got := fb.Position(); got != 10*time.Second {
		t.Errorf("position = %v, want 10s", got)
	}
}

func TestSeekPreservesPauseIntent(t *testing.T) {
	c, _ := newTestController()

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	if err := c.Seek(3 * time.Second); err != nil {
		t.Fatal(err)
	}
	waitForState(t, c, Paused)
}

func TestSeekFromStoppedLandsPaused(t *testing.T) {
	c, fb := newTestController()

	if err := c.Seek(4 * time.Second); err != nil {
		t.Fatalf("Seek from stopped returned error: %v", err)
	}
	waitForState(t, c, Paused)
	if got := fb.Position(); got != 4*time.Second {
		t.Errorf("position = %v, want 4s", got)
	}
}

func TestSeekReportsActualPosition(t *testing.T) {
	c, fb := newTestController()

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	// 1.234s rounds down to device granularity.
	if err := c.Seek(1234 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	waitForState(t, c, Playing)

	snap := c.Snapshot()
	if snap.SeekSeq != 1 {
		t.Errorf("SeekSeq = %d, want 1", snap.SeekSeq)
	}
	if snap.SeekPos != 1230*time.Millisecond {
		t.Errorf("SeekPos = %v, want the rounded 1.23s", snap.SeekPos)
	}
	if fb.Position() != 1230*time.Millisecond {
		t.Errorf("backend position = %v, want 1.23s", fb.Position())
	}
}

func TestRapidSeeksCoalesceToLatest(t *testing.T) {
	c, fb := newTestController()
	fb.seekDelay = 30 * time.Millisecond

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Seek(10 * time.Second); err != nil {
		t.Fatal(err)
	}
	// Both arrive while the first seek is still flushing; only the last
	// may survive.
	if err := c.Seek(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	if err := c.Seek(30 * time.Second); err != nil {
		t.Fatal(err)
	}
	waitForState(t, c, Playing)

	applied := fb.appliedSeeks()
	for _, s := range applied {
		if s == 2*time.Second {
			t.Errorf("superseded seek target 2s reached the device: %v", applied)
		}
	}
	if last := applied[len(applied)-1]; last != 30*time.Second {
		t.Errorf("last applied seek = %v, want 30s", last)
	}
	if got := fb.Position(); got != 30*time.Second {
		t.Errorf("position = %v, want 30s", got)
	}
}

func TestStopDuringSeek(t *testing.T) {
	c, fb := newTestController()
	fb.seekDelay = 30 * time.Millisecond

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Seek(10 * time.Second); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	if c.State() != Stopped {
		t.Fatalf("state = %v, want Stopped immediately after Stop", c.State())
	}

	// The in-flight seek must not resurrect the session.
	time.Sleep(100 * time.Millisecond)
	if c.State() != Stopped {
		t.Errorf("state = %v after in-flight seek settled, want Stopped", c.State())
	}

	if err := c.Play(); err != nil {
		t.Fatalf("Play after mid-seek Stop returned error: %v", err)
	}
	waitForState(t, c, Playing)
}

func TestPauseDuringSeekAppliesAfterConfirm(t *testing.T) {
	c, _ := newTestController()
	fb := c.backend.(*fakeBackend)
	fb.seekDelay = 30 * time.Millisecond

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Seek(10 * time.Second); err != nil {
		t.Fatal(err)
	}
	if err := c.Pause(); err != nil {
		t.Fatalf("Pause during seek returned error: %v", err)
	}
	waitForState(t, c, Paused)
}

func TestFinishedStreamStopsTransport(t *testing.T) {
	c, fb := newTestController()

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	fb.finish()
	waitForState(t, c, Stopped)
}

func TestStaleFinishCallbackIgnored(t *testing.T) {
	c, fb := newTestController()

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	fb.mu.Lock()
	stale := fb.onDone
	fb.mu.Unlock()

	c.Stop()
	if err := c.Play(); err != nil {
		t.Fatal(err)
	}

	stale() // belongs to the torn-down session
	if c.State() != Playing {
		t.Errorf("stale finish callback changed state to %v", c.State())
	}
}
