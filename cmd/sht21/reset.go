package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sht21/cmd/sht21/console"
)

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "recover the bus and optionally reboot the sensor",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "soft",
			Usage: "also send the soft reset command (restores the default status)",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		// opening the sensor already runs a bus reset
		s, err := openSensor(ctx, cfg)
		if err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}
		defer func() {
			_ = s.Close()
		}()
		console.Infof("bus reset on %s", console.White(s.port))
		if !c.Bool("soft") {
			return nil
		}
		if err := s.SoftReset(ctx); err != nil {
			return console.Exit(1, "soft reset failed: %s", console.Red(err))
		}
		console.Infof("sensor rebooted")
		return nil
	},
}
