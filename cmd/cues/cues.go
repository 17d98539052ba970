package cues

import (
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/code-smore/smore/cmd/common"
	"github.com/code-smore/smore/internal/songdoc"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type Params struct {
	File string `pos:"true" help:"Song document to inspect"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "cues",
		Short:       "Validate a song document and list its cues",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			exitCode := Run(params, os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func Run(params *Params, stdout, stderr *os.File) int {
	song, err := songdoc.Load(params.File)
	if err != nil {
		fmt.Fprintf(stderr, "cues: %v\n", err)
		return 1
	}

	if song.Title != "" {
		if song.Artist != "" {
			fmt.Fprintf(stdout, "%s — %s\n", song.Title, song.Artist)
		} else {
			fmt.Fprintln(stdout, song.Title)
		}
	}
	fmt.Fprintf(stdout, "duration %s, %d cues\n\n", common.FormatOffset(song.Duration), song.Len())

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Offset", "Kind", "Payload"})
	for i, cue := range song.Cues() {
		t.AppendRow(table.Row{i + 1, common.FormatOffset(cue.At), cue.Kind.String(), cue.Text})
	}
	t.Render()

	counts := lo.CountValuesBy(song.Cues(), func(c songdoc.Cue) songdoc.CueKind {
		return c.Kind
	})
	fmt.Fprintf(stdout, "\n%d lyrics, %d chords, %d markers\n",
		counts[songdoc.CueLyric], counts[songdoc.CueChord], counts[songdoc.CueMarker])

	return 0
}
