package play

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/code-smore/smore/cmd/common"
	"github.com/code-smore/smore/internal/events"
	"github.com/code-smore/smore/internal/songdoc"
	"github.com/code-smore/smore/internal/transport"
)

const historyLines = 8

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	lyricStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	chordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// view accumulates render events into the current screen state. It is the
// render sink: event handlers only mutate state under the mutex, painting
// happens on the repaint ticker, so the scheduler is never blocked.
type view struct {
	mu sync.Mutex

	title  string
	artist string
	lines  []string // recent lyric lines, last one is current
	chord  string
	marker string
	state  string
}

func newView(song *songdoc.Song) *view {
	return &view{
		title:  song.Title,
		artist: song.Artist,
		state:  transport.Stopped.String(),
	}
}

func (v *view) applyCue(c songdoc.Cue) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch c.Kind {
	case songdoc.CueLyric:
		v.lines = append(v.lines, c.Text)
		if len(v.lines) > historyLines {
			v.lines = v.lines[len(v.lines)-historyLines:]
		}
	case songdoc.CueChord:
		v.chord = c.Text
	case songdoc.CueMarker:
		v.marker = c.Text
	}
}

// applySync repaints context after a position jump: history is discarded
// and replaced by the single active cue.
func (v *view) applySync(ev events.StateSyncEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.lines = nil
	v.chord = ""
	v.marker = ""
	if !ev.HasActive {
		return
	}
	switch ev.Active.Kind {
	case songdoc.CueLyric:
		v.lines = []string{ev.Active.Text}
	case songdoc.CueChord:
		v.chord = ev.Active.Text
	case songdoc.CueMarker:
		v.marker = ev.Active.Text
	}
}

func (v *view) setState(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = s
}

// render paints the whole screen. Lines end in \r\n because the terminal is
// in raw mode.
func (v *view) render(pos, dur time.Duration) string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var b strings.Builder
	b.WriteString("\033[H") // home

	header := v.title
	if v.artist != "" {
		header += " — " + v.artist
	}
	if header == "" {
		header = "code-smore"
	}
	writeLine(&b, headerStyle.Render(header))
	writeLine(&b, "")

	for i, line := range v.lines {
		if i == len(v.lines)-1 {
			writeLine(&b, lyricStyle.Render(line))
		} else {
			writeLine(&b, dimStyle.Render(line))
		}
	}
	for i := len(v.lines); i < historyLines; i++ {
		writeLine(&b, "")
	}
	writeLine(&b, "")

	if v.chord != "" {
		writeLine(&b, chordStyle.Render("♪ "+v.chord))
	} else {
		writeLine(&b, "")
	}
	if v.marker != "" {
		writeLine(&b, markerStyle.Render("["+v.marker+"]"))
	} else {
		writeLine(&b, "")
	}

	symbol := "▶"
	if v.state != transport.Playing.String() {
		symbol = "⏸"
	}
	status := symbol + "  " + common.FormatOffset(pos)
	if dur > 0 {
		status += " / " + common.FormatOffset(dur)
	}
	status += "  (" + v.state + ")"
	writeLine(&b, status)
	writeLine(&b, statusStyle.Render("space pause · ←/→ seek · r restart · q quit"))

	b.WriteString("\033[J") // clear below
	return b.String()
}

func writeLine(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteString("\033[K\r\n")
}
