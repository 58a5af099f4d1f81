package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phev-gateway/internal/usecase/phev"
)

var (
	timeout     time.Duration
	statusWait  time.Duration
	airConMode  string
	airConTime  int
	errTimedOut = errors.New("timed out waiting for the car")
)

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "How long one-shot commands wait for the car")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(switchCommand("headlights", "Switch the head lights", func(c *phev.Client, on bool, cb phev.Callback) error {
		return c.HeadLights(on, cb)
	}))
	rootCmd.AddCommand(switchCommand("parking-lights", "Switch the parking lights", func(c *phev.Client, on bool, cb phev.Callback) error {
		return c.ParkingLights(on, cb)
	}))
	rootCmd.AddCommand(switchCommand("horn", "Sound the horn", func(c *phev.Client, on bool, cb phev.Callback) error {
		return c.Horn(on, cb)
	}))
	rootCmd.AddCommand(switchCommand("lock", "Lock (on) or unlock (off) the doors", func(c *phev.Client, on bool, cb phev.Callback) error {
		return c.Lock(on, cb)
	}))
	rootCmd.AddCommand(switchCommand("aircon", "Switch the air conditioning", func(c *phev.Client, on bool, cb phev.Callback) error {
		return c.AirCon(on, cb)
	}))

	airConModeCmd.Flags().StringVar(&airConMode, "mode", "cool", "Mode (cool, heat, windscreen)")
	airConModeCmd.Flags().IntVar(&airConTime, "time", 10, "Run time in minutes (10, 20 or 30)")
	rootCmd.AddCommand(airConModeCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stay connected and forward vehicle events to the message queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(configPath, verbose)
		if err != nil {
			return err
		}
		defer a.stop()
		if err := a.start(); err != nil {
			return err
		}

		// 优雅停机
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			a.logger.Info("Shutting down...")
		case <-a.transport.Done():
			a.logger.Warn("Vehicle disconnected")
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this client with the car",
	Long: `Register this client's MAC with the car.

Put the car into registration mode from the head unit first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(ctx context.Context, a *app) error {
			if _, err := a.waitFor(ctx, phev.EventConnected); err != nil {
				return err
			}
			if err := a.client.RegisterDevice(); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			if _, err := a.waitFor(ctx, phev.EventRegistrationComplete); err != nil {
				return err
			}
			fmt.Println("Registration complete")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Listen for register updates and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(ctx context.Context, a *app) error {
			wait, cancel := context.WithTimeout(ctx, statusWait)
			defer cancel()
			<-wait.Done()

			out, err := a.client.StatusJSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		})
	},
}

func init() {
	statusCmd.Flags().DurationVar(&statusWait, "wait", 10*time.Second, "How long to collect register updates")
}

var airConModeCmd = &cobra.Command{
	Use:   "aircon-mode",
	Short: "Start the air conditioning in a mode for a time",
	Example: `  phevctl aircon-mode --mode heat --time 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseAirConMode(airConMode)
		if err != nil {
			return err
		}
		return actuate(func(c *phev.Client, cb phev.Callback) error {
			return c.AirConMode(mode, phev.AirConTime(airConTime), cb)
		})
	},
}

func parseAirConMode(s string) (phev.AirConMode, error) {
	switch s {
	case "cool":
		return phev.AirConCool, nil
	case "heat":
		return phev.AirConHeat, nil
	case "windscreen":
		return phev.AirConWindscreen, nil
	default:
		return 0, fmt.Errorf("unknown air conditioning mode %q", s)
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func switchCommand(use, short string, send func(c *phev.Client, on bool, cb phev.Callback) error) *cobra.Command {
	return &cobra.Command{
		Use:       use + " on|off",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return actuate(func(c *phev.Client, cb phev.Callback) error {
				return send(c, on, cb)
			})
		},
	}
}

// actuate waits until the car reports a register (the session is live), sends
// one command and returns when the car acknowledges it.
func actuate(send func(c *phev.Client, cb phev.Callback) error) error {
	return oneShot(func(ctx context.Context, a *app) error {
		if _, err := a.waitFor(ctx, phev.EventRegisterUpdate, phev.EventVIN); err != nil {
			return err
		}

		acked := make(chan struct{})
		err := send(a.client, func(c *phev.Client, err error) {
			close(acked)
		})
		if err != nil {
			return err
		}

		select {
		case <-acked:
			fmt.Println("OK")
			return nil
		case <-ctx.Done():
			return errTimedOut
		}
	})
}

func oneShot(fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(configPath, verbose)
	if err != nil {
		return err
	}
	defer a.stop()
	if err := a.start(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, a)
}

// waitFor returns the first event of one of the given types.
func (a *app) waitFor(ctx context.Context, types ...phev.EventType) (*phev.Event, error) {
	for {
		select {
		case ev := <-a.events:
			for _, t := range types {
				if ev.Type == t {
					a.logger.Debug("Got event", zap.Stringer("type", ev.Type))
					return ev, nil
				}
			}
		case <-a.transport.Done():
			return nil, errors.New("vehicle disconnected")
		case <-ctx.Done():
			return nil, errTimedOut
		}
	}
}
