package main

import (
	"github.com/spf13/cobra"

	"github.com/Billy-Davies-2/fantasy-draft-assistant/internal/logger"
)

// NewRootCmd builds the draftsim command tree
func NewRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "draftsim",
		Short:         "Fantasy draft simulator and roster-need calculator",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitWriter(cmd.ErrOrStderr(), logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(), newNeedsCmd())
	return root
}
