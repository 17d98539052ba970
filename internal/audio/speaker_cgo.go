//go:build (linux && cgo) || windows || darwin

package audio

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// Available indicates whether real audio output is supported in this build.
const Available = true

// speakerBackend plays decoded audio through the host device using beep.
type speakerBackend struct {
	mu sync.Mutex

	initialized bool
	sampleRate  beep.SampleRate
	ctrl        *beep.Ctrl
	streamer    beep.StreamSeekCloser
	format      beep.Format
	onDone      func()
	generation  uint64 // guards against finish callbacks from replaced streams
	closed      bool
}

// NewSpeaker creates a Backend over the host audio device. The device itself
// is opened lazily on the first Start.
func NewSpeaker(sampleRate int) Backend {
	return &speakerBackend{
		sampleRate: beep.SampleRate(sampleRate),
	}
}

// Probe checks whether the host audio device can be opened, and releases it
// again. Used by the doctor command.
func Probe(sampleRate int) error {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	speaker.Close()
	return nil
}

func (p *speakerBackend) Start(src Source, onDone func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrDeviceUnavailable
	}

	p.stopLocked()

	streamer, format, err := decode(src)
	if err != nil {
		return err
	}

	if !p.initialized {
		if err := speaker.Init(p.sampleRate, p.sampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		p.initialized = true
	}

	p.streamer = streamer
	p.format = format
	p.onDone = onDone
	p.generation++
	gen := p.generation

	resampled := beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	p.ctrl = &beep.Ctrl{Streamer: resampled}

	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine; hand off so the callback can
		// drive the transport without deadlocking.
		go p.finished(gen)
	})))

	return nil
}

// finished forwards the stream-complete callback unless the stream has been
// replaced or stopped since it was scheduled.
func (p *speakerBackend) finished(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.onDone == nil {
		p.mu.Unlock()
		return
	}
	done := p.onDone
	p.mu.Unlock()
	done()
}

func decode(src Source) (beep.StreamSeekCloser, beep.Format, error) {
	reader := nopCloser{bytes.NewReader(src.Data)}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch strings.ToLower(filepath.Ext(src.Name)) {
	case ".wav":
		streamer, format, err = wav.Decode(reader)
	default:
		streamer, format, err = mp3.Decode(reader)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("%w: %s: %v", ErrDecode, src.Name, err)
	}
	return streamer, format, nil
}

func (p *speakerBackend) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (p *speakerBackend) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
	}
}

func (p *speakerBackend) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopLocked releases the current stream. Must be called with p.mu held.
func (p *speakerBackend) stopLocked() {
	p.generation++ // invalidate any pending finish callback
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Paused = true
		speaker.Unlock()
	}
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	p.ctrl = nil
	p.onDone = nil
}

func (p *speakerBackend) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()

	return p.format.SampleRate.D(pos)
}

func (p *speakerBackend) Seek(d time.Duration) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return 0, ErrNoStream
	}

	if d < 0 {
		d = 0
	}

	speaker.Lock()
	defer speaker.Unlock()

	samples := p.format.SampleRate.N(d)
	if max := p.streamer.Len(); samples > max {
		samples = max
	}
	if err := p.streamer.Seek(samples); err != nil {
		return 0, fmt.Errorf("%w: seek: %v", ErrDecode, err)
	}
	// Device sample granularity may round; report where we actually landed.
	return p.format.SampleRate.D(p.streamer.Position()), nil
}

func (p *speakerBackend) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer == nil {
		return 0
	}

	return p.format.SampleRate.D(p.streamer.Len())
}

func (p *speakerBackend) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
	p.closed = true
	return nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
