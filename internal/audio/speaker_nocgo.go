//go:build (!linux || !cgo) && !windows && !darwin

package audio

import (
	"time"
)

// Available indicates whether real audio output is supported in this build.
// Device output requires cgo for the native sound libraries on linux.
const Available = false

// NewSpeaker returns a Backend whose Start always fails with
// ErrDeviceUnavailable. Callers fall back to the silent backend.
func NewSpeaker(sampleRate int) Backend {
	return unavailableBackend{}
}

// Probe reports that no audio device is reachable in this build.
func Probe(sampleRate int) error {
	return ErrDeviceUnavailable
}

type unavailableBackend struct{}

func (unavailableBackend) Start(src Source, onDone func()) error { return ErrDeviceUnavailable }
func (unavailableBackend) Pause()                                {}
func (unavailableBackend) Resume()                               {}
func (unavailableBackend) Stop()                                 {}
func (unavailableBackend) Seek(d time.Duration) (time.Duration, error) {
	return 0, ErrNoStream
}
func (unavailableBackend) Position() time.Duration { return 0 }
func (unavailableBackend) Duration() time.Duration { return 0 }
func (unavailableBackend) Close() error            { return nil }
