package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/code-smore/smore/cmd/cues"
	"github.com/code-smore/smore/cmd/doctor"
	"github.com/code-smore/smore/cmd/play"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "smore",
		Short:   "Sing-along lyrics and chords in your terminal, in time with the music",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			play.Cmd(),
			cues.Cmd(),
			doctor.Cmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
