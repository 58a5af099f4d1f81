// Phevsim pretends to be a PHEV head unit so phevctl can be run without a car.
//
//	phevsim --port 8080 --vin JMBXTGG2WNZ000001 --battery 80
//	PHEV_VEHICLE_HOST=127.0.0.1 phevctl status
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phev-gateway/internal/config"
	"phev-gateway/internal/logging"
	"phev-gateway/internal/simulator"
)

var (
	host     string
	port     int
	vin      string
	battery  uint8
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "phevsim",
	Short:        "Simulated PHEV head unit",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&host, "host", "127.0.0.1", "Listen address")
	rootCmd.Flags().IntVar(&port, "port", 8080, "Listen port")
	rootCmd.Flags().StringVar(&vin, "vin", "JMBXTGG2WNZ000001", "VIN reported to clients")
	rootCmd.Flags().Uint8Var(&battery, "battery", 80, "Battery state of charge in percent")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(config.LogConfig{Level: logLevel}, true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	srv := simulator.NewServer(host, port, simulator.NewCar(vin, battery, logger), logger)

	errC := make(chan error, 1)
	go func() {
		errC <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errC:
		return err
	case <-quit:
		logger.Info("Shutting down...")
		if err := srv.Stop(context.Background()); err != nil {
			logger.Warn("Stop failed", zap.Error(err))
		}
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
