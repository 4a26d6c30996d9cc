package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"focusd/internal/config"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	var (
		showPath bool
		format   string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration focusd would run with: defaults, overlaid with the
config file if it exists, overlaid with FOCUSD_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.ConfigPath()
			}
			if showPath {
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if validate {
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			switch format {
			case "toml", "json", "yaml", "yml":
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			data, err := config.Encode(cfg, "."+format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showPath, "path", false, "print the config file path and exit")
	cmd.Flags().StringVarP(&format, "format", "f", "toml", "output format: toml, json or yaml")
	cmd.Flags().BoolVar(&validate, "validate", false, "fail if the configuration is invalid")
	return cmd
}
