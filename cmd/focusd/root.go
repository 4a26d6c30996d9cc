package main

import (
	"github.com/spf13/cobra"

	"focusd/internal/config"
)

// globalOptions are flags shared by every subcommand.
type globalOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "focusd",
		Short: "Focus tracking over a lock-free input event pipeline",
		Long: `focusd captures input events into a lock-free ring buffer and feeds them
to a focus tracker. When you come back from a distraction it reports
what you were working on before you left.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"config file (default is "+config.ConfigPath()+")")

	root.AddCommand(
		newRunCmd(opts),
		newBenchCmd(),
		newLayoutCmd(),
		newConfigCmd(opts),
	)
	return root
}
