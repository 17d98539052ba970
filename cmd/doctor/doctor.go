package doctor

import (
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/code-smore/smore/cmd/common"
	"github.com/code-smore/smore/internal/audio"
	"github.com/spf13/cobra"
)

type Params struct {
	SampleRate int `long:"sample-rate" help:"Sample rate to open the device with" default:"44100"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "doctor",
		Short:       "Check that the host audio device can be opened",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if !audio.Available {
				fmt.Fprintln(os.Stderr, "audio output is disabled in this build (no cgo); playback falls back to silent timing")
				os.Exit(1)
			}
			if err := audio.Probe(params.SampleRate); err != nil {
				fmt.Fprintf(os.Stderr, "audio device check failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("audio device ok at %d Hz\n", params.SampleRate)
		},
	}.ToCobra()
}
