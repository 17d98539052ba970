package play

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/code-smore/smore/cmd/common"
	"github.com/code-smore/smore/internal/audio"
	"github.com/code-smore/smore/internal/config"
	"github.com/code-smore/smore/internal/events"
	"github.com/code-smore/smore/internal/sched"
	"github.com/code-smore/smore/internal/songdoc"
	"github.com/code-smore/smore/internal/transport"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type Params struct {
	File   string `pos:"true" help:"Song document to play"`
	Config string `short:"c" optional:"true" help:"Engine tunables TOML file (defaults to ~/.config/smore/engine.toml if present)"`
	Watch  bool   `short:"w" help:"Reload the song document when it changes on disk"`
	Silent bool   `help:"Play without audio output (wall-clock timing)"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "play",
		Short: "Play a song with synchronized lyrics and chords",
		Long: `Play a song document in the terminal.

Controls:
  SPACE          - Pause / resume
  LEFT / RIGHT   - Seek 5 seconds back / forward
  r              - Restart from the beginning
  q or Ctrl+C    - Quit`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := runPlay(params); err != nil {
				fmt.Fprintf(os.Stderr, "play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

const seekStep = 5 * time.Second

func runPlay(params *Params) error {
	cfgPath := params.Config
	if cfgPath == "" {
		cfgPath = common.DefaultEngineConfig()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	song, err := songdoc.Load(params.File)
	if err != nil {
		return err
	}

	backend, src, err := pickBackend(params, song, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	bus := events.New()
	ctrl := transport.New(backend, bus)
	ctrl.Load(src)
	defer ctrl.Stop()

	scheduler := sched.New(song, ctrl, bus, sched.Options{
		Tick:            time.Duration(cfg.TickInterval),
		JitterTolerance: time.Duration(cfg.JitterTolerance),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	v := newView(song)
	finished := make(chan struct{}, 1)
	defer bus.Subscribe(func(e events.CueEvent) { v.applyCue(e.Cue) })()
	defer bus.Subscribe(func(e events.StateSyncEvent) { v.applySync(e) })()
	defer bus.Subscribe(func(e events.TransportChangedEvent) {
		v.setState(e.State)
		if e.State == transport.Stopped.String() {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})()

	if params.Watch {
		stopWatch, err := watchSong(params.File, scheduler)
		if err != nil {
			slog.Warn("song file watch disabled", "error", err)
		} else {
			defer stopWatch()
		}
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	// Clear screen and hide cursor
	fmt.Print("\033[2J\033[H\033[?25l")
	defer fmt.Print("\033[?25h\r\n")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	keys := readKeys()

	if err := ctrl.Play(); err != nil {
		return err
	}

	repaint := time.NewTicker(100 * time.Millisecond)
	defer repaint.Stop()

	for {
		select {
		case <-sigChan:
			return nil
		case <-finished:
			fmt.Print(v.render(ctrl.Position(), backend.Duration()))
			return nil
		case k := <-keys:
			switch k {
			case keyQuit:
				return nil
			case keyToggle:
				toggle(ctrl)
			case keySeekBack:
				_ = ctrl.Seek(ctrl.Position() - seekStep)
			case keySeekFwd:
				_ = ctrl.Seek(ctrl.Position() + seekStep)
			case keyRestart:
				_ = ctrl.Seek(0)
				if err := ctrl.Play(); err != nil && !errors.Is(err, transport.ErrAlreadyPlaying) {
					slog.Warn("restart failed", "error", err)
				}
			}
		case <-repaint.C:
			fmt.Print(v.render(ctrl.Position(), backend.Duration()))
		}
	}
}

// pickBackend chooses the audio backend for the session. Songs without an
// audio reference, --silent sessions and builds without device support all
// run on the wall-clock silent backend.
func pickBackend(params *Params, song *songdoc.Song, cfg config.Engine) (audio.Backend, audio.Source, error) {
	if params.Silent || song.Audio == "" {
		return audio.NewSilent(song.Duration), audio.Source{Name: song.Title}, nil
	}
	if !audio.Available {
		slog.Warn("audio output unavailable in this build, playing silent")
		return audio.NewSilent(song.Duration), audio.Source{Name: song.Title}, nil
	}

	path := song.Audio
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(params.File), path)
	}
	src, err := audio.SourceFromFile(path)
	if err != nil {
		return nil, audio.Source{}, err
	}

	return audio.NewSpeaker(cfg.SampleRate), src, nil
}

func toggle(ctrl *transport.Controller) {
	switch ctrl.State() {
	case transport.Playing:
		_ = ctrl.Pause()
	default:
		if err := ctrl.Play(); err != nil && !errors.Is(err, transport.ErrAlreadyPlaying) {
			slog.Warn("resume failed", "error", err)
		}
	}
}

// watchSong reloads the song document into the scheduler whenever it is
// rewritten on disk. Parse failures keep the current document.
func watchSong(path string, scheduler *sched.Scheduler) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	abs, _ := filepath.Abs(path)
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				evAbs, _ := filepath.Abs(ev.Name)
				if evAbs != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				song, err := songdoc.Load(path)
				if err != nil {
					slog.Warn("song reload skipped", "error", err)
					continue
				}
				scheduler.Reload(song)
				slog.Info("song document reloaded", "file", path)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return func() { watcher.Close() }, nil
}
