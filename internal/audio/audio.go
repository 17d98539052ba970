// Package audio abstracts the host audio subsystem behind a Backend that
// decodes a source stream into the output device and reports a monotonic
// playback position back to the transport.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrDeviceUnavailable means the host audio device could not be opened.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrDecode means the source stream is corrupt or in an unsupported
	// encoding. It aborts the current song but never the process.
	ErrDecode = errors.New("audio stream decode failed")
	// ErrNoStream means an operation needing a loaded stream was called
	// while the backend was idle.
	ErrNoStream = errors.New("no audio stream loaded")
	// ErrUnsupportedFormat means the source file extension is not one the
	// backend can decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format: must be mp3 or wav")
)

// Source is an audio stream held fully in memory.
type Source struct {
	Name string // Display name, usually the file base name
	Data []byte
}

// SourceFromFile reads an audio file into memory.
func SourceFromFile(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav":
	default:
		return Source{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return Source{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Source{}, err
	}

	return Source{
		Name: filepath.Base(path),
		Data: data,
	}, nil
}

// Backend streams decoded samples to the host output device and exposes the
// playback clock. A backend owns the device exclusively for the session;
// only one instance may hold it at a time.
//
// Position is monotonic while playing, frozen while paused, and resets to
// zero on Stop. Seek may incur a bounded resynchronization delay and returns
// the actual resulting position, which can differ from the request by device
// sample granularity.
type Backend interface {
	// Start begins playback of src from the beginning. onDone is invoked
	// once, from its own goroutine, when the stream plays to completion.
	// Fails with ErrDeviceUnavailable if the device cannot be opened and
	// ErrDecode if the stream is corrupt.
	Start(src Source, onDone func()) error
	Pause()
	Resume()
	// Stop halts playback and releases the stream. The device is left idle
	// before Stop returns. Safe to call in any state.
	Stop()
	Seek(d time.Duration) (time.Duration, error)
	Position() time.Duration
	Duration() time.Duration
	// Close releases the device entirely. The backend is unusable after.
	Close() error
}
