// Missionguide - Conversational guide for the Orbitarium simulator
// License: MIT

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/orbitarium/missionguide/pkg/config"
	"github.com/orbitarium/missionguide/pkg/logger"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

var (
	flagConfig string
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:   "missionguide",
		Short: "Conversational guide for the Orbitarium space simulator",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if flagDebug {
				logger.SetLevel(logger.DEBUG)
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.missionguide/config.json)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newConsoleCmd(),
		newCommandsCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			v := version
			if gitCommit != "" {
				v += fmt.Sprintf(" (git: %s)", gitCommit)
			}
			fmt.Printf("missionguide %s\n", v)
			if buildTime != "" {
				fmt.Printf("  Build: %s\n", buildTime)
			}
			fmt.Printf("  Go: %s\n", runtime.Version())
		},
	}
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(configPath())
}
