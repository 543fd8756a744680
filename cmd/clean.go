package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emunet/emunet/engine"
)

// cleanCmd releases process-wide emulation resources left over from a
// crashed or interrupted run.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Release leftover emulation resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		logrus.Info("cleaning up leftover emulation state")
		return engine.CleanupAll()
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
