package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sht21/cmd/sht21/console"
	"github.com/mklimuk/sht21/environment"
)

var yesFlag = &cli.BoolFlag{
	Name:    "yes",
	Aliases: []string{"y"},
	Usage:   "do not ask for confirmation",
}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "read or change the status register",
	Subcommands: cli.Commands{
		&statusGetCmd,
		&statusSetCmd,
		&statusHeaterCmd,
		&statusResolutionCmd,
	},
}

var statusGetCmd = cli.Command{
	Name: "get",
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		s, err := openSensor(ctx, cfg)
		if err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}
		defer func() {
			_ = s.Close()
		}()
		status, err := s.ReadStatus(ctx)
		if err != nil {
			return console.Exit(1, "could not read status: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(console.Writer())
		defer func() {
			_ = enc.Close()
		}()
		if err := enc.Encode(environment.DecodeStatus(status)); err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}

var statusSetCmd = cli.Command{
	Name:      "set",
	ArgsUsage: "<hex byte>",
	Flags:     []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected 1 argument, got %d", c.NArg())
		}
		b, err := hex.DecodeString(c.Args().Get(0))
		if err != nil || len(b) != 1 {
			return console.Exit(1, "could not decode status byte %q", c.Args().Get(0))
		}
		return updateStatus(c, func(byte) (byte, error) {
			return b[0], nil
		})
	},
}

var statusHeaterCmd = cli.Command{
	Name:      "heater",
	ArgsUsage: "<on|off>",
	Flags:     []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		var on bool
		switch c.Args().First() {
		case "on":
			on = true
		case "off":
		default:
			return console.Exit(1, "expected on or off, got %q", c.Args().First())
		}
		return updateStatus(c, func(status byte) (byte, error) {
			return environment.WithHeater(status, on), nil
		})
	},
}

var statusResolutionCmd = cli.Command{
	Name:      "resolution",
	ArgsUsage: "<humidity bits> <temperature bits>",
	Flags:     []cli.Flag{yesFlag},
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return console.Exit(1, "expected 2 arguments, got %d", c.NArg())
		}
		rh, err := strconv.Atoi(c.Args().Get(0))
		if err != nil {
			return console.Exit(1, "invalid humidity resolution: %v", err)
		}
		t, err := strconv.Atoi(c.Args().Get(1))
		if err != nil {
			return console.Exit(1, "invalid temperature resolution: %v", err)
		}
		return updateStatus(c, func(status byte) (byte, error) {
			return environment.WithResolution(status, environment.Resolution{Humidity: rh, Temperature: t})
		})
	},
}

// updateStatus reads the register, applies change and writes the result back
// after confirmation.
func updateStatus(c *cli.Context, change func(byte) (byte, error)) error {
	ctx := commandContext(c)
	s, err := openSensor(ctx, cfg)
	if err != nil {
		return console.Exit(1, "sensor initialization error: %s", console.Red(err))
	}
	defer func() {
		_ = s.Close()
	}()
	current, err := s.ReadStatus(ctx)
	if err != nil {
		return console.Exit(1, "could not read status: %s", console.Red(err))
	}
	next, err := change(current)
	if err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	if next == current {
		console.Infof("status already %#02x", current)
		return nil
	}
	if !c.Bool("yes") {
		ok, err := console.Confirm(fmt.Sprintf("write status %#02x (was %#02x)?", next, current))
		if err != nil {
			return console.Exit(1, "prompt error: %v", err)
		}
		if !ok {
			console.PInfof(console.PictoStop, "aborted")
			return nil
		}
	}
	if err := writeStatus(ctx, s, next); err != nil {
		return console.Exit(1, "%s", console.Red(err))
	}
	console.Infof("status set to %s", console.Green(fmt.Sprintf("%#02x", next)))
	return nil
}

func writeStatus(ctx context.Context, s *session, value byte) error {
	if err := s.WriteStatus(ctx, value); err != nil {
		return fmt.Errorf("could not write status: %w", err)
	}
	got, err := s.ReadStatus(ctx)
	if err != nil {
		return fmt.Errorf("could not verify status: %w", err)
	}
	// bit 6 (low voltage) is read-only
	if got&^0x40 != value&^0x40 {
		return fmt.Errorf("status reads back %#02x after writing %#02x", got, value)
	}
	return nil
}
