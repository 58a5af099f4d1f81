// Phevctl talks to a Mitsubishi Outlander PHEV over the car's WiFi access point.
//
// Usage:
//
//	phevctl run                 stay connected and forward events to the message queue
//	phevctl register            pair with the car
//	phevctl headlights on|off   and the other actuation commands
//	phevctl status              print cached registers as JSON
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "phevctl",
	Short: "Mitsubishi Outlander PHEV remote client",
	Long: `A client for the Outlander PHEV remote protocol.

Connect your machine to the car's WiFi access point first. The car's address,
the MAC used to register and the message queue are read from the config file
and may be overridden with PHEV_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to config file (empty = defaults and environment only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also log to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
