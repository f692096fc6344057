package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/labelpr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or write label-pr configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path] [refpattern:basebranches:urlprefix...]",
	Short: "Write a config file with the current settings",
	Long: `Write the effective configuration to path (default .label-pr.yaml). Any
specs given after the path are validated and stored under 'specs'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ".label-pr.yaml"
		if len(args) > 0 {
			path, args = args[0], args[1:]
		}

		if len(args) > 0 {
			if _, err := config.ParseRefSpecs(args); err != nil {
				return err
			}
			cfg.Specs = args
		}

		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
