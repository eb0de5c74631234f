package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write a config.yaml populated with the current effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"

		if !configInitForce {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}

		if err := os.WriteFile(path, out, 0o644); err != nil {
			return eris.Wrap(err, "write config file")
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(configInitCmd)
}
