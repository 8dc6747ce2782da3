package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/eld/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "eld",
	Short:        "Economic load dispatch for thermal generator fleets",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
