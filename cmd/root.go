package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audioengine",
	Short: "Multi-passage crossfading playback engine",
	Long: `audioengine runs the playback engine described in SPEC_FULL.md: a
queue of time-bounded audio passages decoded, resampled, faded, and
sample-accurately crossfaded into a single output stream.

Commands:
  - serve: run the engine as a long-lived service, queue persisted to disk
  - enqueue: play a single local audio file standalone, for quick testing
  - transform: decode and resample a file offline, writing it out as WAV`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
