package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sht21/cmd/sht21/console"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "print the effective configuration",
	Action: func(c *cli.Context) error {
		if err := cfg.Encode(console.Writer()); err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return nil
	},
}
