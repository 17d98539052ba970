// Package songdoc parses and holds the in-memory representation of a song
// document: ordered timed cues (lyric lines, chord symbols, control markers)
// anchored to playback offsets.
//
// The on-disk format is a versioned UTF-8 text format:
//
//	#smore 1
//	#title:  Midnight Campfire
//	#artist: The Graham Crackers
//	#audio:  midnight-campfire.mp3
//	#length: 3m12.5s
//	[0:01.250] Gather round the fire now
//	[0:03.000] @Am
//	[0:05.500] !chorus
//
// Header directives start with '#'. The version line must come first.
// Unknown directives are ignored for forward compatibility. Cue lines carry a
// [m:ss.mmm] timestamp followed by a payload: '@' introduces a chord symbol,
// '!' a control marker, anything else is a lyric line. Timestamps must be
// non-decreasing; equal timestamps mark simultaneous cues.
package songdoc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrParse is wrapped by every error returned for a malformed song document.
var ErrParse = errors.New("malformed song document")

// CueKind discriminates the payload of a cue.
type CueKind int

const (
	CueLyric CueKind = iota
	CueChord
	CueMarker
)

// String returns the string representation of the cue kind.
func (k CueKind) String() string {
	switch k {
	case CueLyric:
		return "lyric"
	case CueChord:
		return "chord"
	case CueMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// Cue is a single timed unit of content. Immutable once parsed.
type Cue struct {
	At   time.Duration // Offset from song start
	Kind CueKind
	Text string // Lyric text, chord symbol or marker name
}

// Song is the parsed document. Immutable after Parse; all accessors are
// read-only and safe for concurrent use.
type Song struct {
	Title    string
	Artist   string
	Audio    string        // Audio file reference from the #audio directive, may be empty
	Duration time.Duration // From #length, or the last cue offset if absent

	cues []Cue
}

// Len returns the number of cues in the document.
func (s *Song) Len() int {
	return len(s.cues)
}

// Cue returns the cue at index i in document order.
func (s *Song) Cue(i int) Cue {
	return s.cues[i]
}

// Cues returns a copy of all cues in document order.
func (s *Song) Cues() []Cue {
	out := make([]Cue, len(s.cues))
	copy(out, s.cues)
	return out
}

// CuesInRange returns all cues with offset in the half-open range
// [start, end), in timestamp then document order.
func (s *Song) CuesInRange(start, end time.Duration) []Cue {
	lo := sort.Search(len(s.cues), func(i int) bool { return s.cues[i].At >= start })
	hi := sort.Search(len(s.cues), func(i int) bool { return s.cues[i].At >= end })
	out := make([]Cue, hi-lo)
	copy(out, s.cues[lo:hi])
	return out
}

// SeekIndex returns the index of the first cue with offset >= t, or Len()
// if no such cue exists. This is the schedule cursor position after a seek
// to t: everything before it is history, everything from it on is upcoming.
func (s *Song) SeekIndex(t time.Duration) int {
	return sort.Search(len(s.cues), func(i int) bool { return s.cues[i].At >= t })
}

// ActiveAt returns the cue considered active at offset t: the last cue with
// offset <= t. ok is false before the first cue.
func (s *Song) ActiveAt(t time.Duration) (Cue, bool) {
	i := sort.Search(len(s.cues), func(i int) bool { return s.cues[i].At > t })
	if i == 0 {
		return Cue{}, false
	}
	return s.cues[i-1], true
}

// Load reads and parses a song document from disk.
func Load(path string) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

var timestampRe = regexp.MustCompile(`^\[(-?\d+):(\d{2}(?:\.\d{1,3})?)\]\s?(.*)$`)

// Parse reads a song document. It fails with an error wrapping ErrParse on
// a missing or unsupported version header, negative or decreasing
// timestamps, empty payloads, or malformed cue lines.
func Parse(r io.Reader) (*Song, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	song := &Song{}
	sawVersion := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}

		if !sawVersion {
			if err := parseVersion(line); err != nil {
				return nil, err
			}
			sawVersion = true
			continue
		}

		if strings.HasPrefix(line, "#") {
			parseDirective(song, line)
			continue
		}

		cue, err := parseCueLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		if n := len(song.cues); n > 0 && cue.At < song.cues[n-1].At {
			return nil, fmt.Errorf("%w: line %d: timestamp %v decreases below %v",
				ErrParse, lineNo, cue.At, song.cues[n-1].At)
		}
		song.cues = append(song.cues, cue)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !sawVersion {
		return nil, fmt.Errorf("%w: truncated document, missing version header", ErrParse)
	}

	if song.Duration == 0 && len(song.cues) > 0 {
		song.Duration = song.cues[len(song.cues)-1].At
	}
	return song, nil
}

func parseVersion(line string) error {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "#smore" {
		return fmt.Errorf("%w: first line must be a '#smore <version>' header, got %q", ErrParse, line)
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil || v != 1 {
		return fmt.Errorf("%w: unsupported format version %q", ErrParse, fields[1])
	}
	return nil
}

// parseDirective applies a '#key: value' header line. Unknown keys are
// ignored so newer documents stay loadable.
func parseDirective(song *Song, line string) {
	body := strings.TrimPrefix(line, "#")
	key, value, found := strings.Cut(body, ":")
	if !found {
		return // plain comment
	}
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "title":
		song.Title = value
	case "artist":
		song.Artist = value
	case "audio":
		song.Audio = value
	case "length":
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			song.Duration = d
		}
	}
}

func parseCueLine(line string, lineNo int) (Cue, error) {
	m := timestampRe.FindStringSubmatch(line)
	if m == nil {
		return Cue{}, fmt.Errorf("%w: line %d: expected '[m:ss.mmm] payload', got %q", ErrParse, lineNo, line)
	}

	minutes, err := strconv.Atoi(m[1])
	if err != nil || minutes < 0 {
		return Cue{}, fmt.Errorf("%w: line %d: negative timestamp", ErrParse, lineNo)
	}
	seconds, err := strconv.ParseFloat(m[2], 64)
	if err != nil || seconds >= 60 {
		return Cue{}, fmt.Errorf("%w: line %d: bad seconds field %q", ErrParse, lineNo, m[2])
	}
	at := time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second))

	payload := m[3]
	if payload == "" {
		return Cue{}, fmt.Errorf("%w: line %d: empty payload", ErrParse, lineNo)
	}

	cue := Cue{At: at}
	switch payload[0] {
	case '@':
		cue.Kind = CueChord
		cue.Text = strings.TrimSpace(payload[1:])
		if cue.Text == "" {
			return Cue{}, fmt.Errorf("%w: line %d: empty chord symbol", ErrParse, lineNo)
		}
	case '!':
		cue.Kind = CueMarker
		cue.Text = strings.TrimSpace(payload[1:])
		if cue.Text == "" {
			return Cue{}, fmt.Errorf("%w: line %d: empty marker name", ErrParse, lineNo)
		}
	default:
		cue.Kind = CueLyric
		cue.Text = payload
	}
	return cue, nil
}
