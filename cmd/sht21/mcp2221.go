package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sht21/adapter"
	"github.com/mklimuk/sht21/cmd/sht21/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the USB bridge",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		return withAdapter(c, func(ctx context.Context, a *adapter.MCP2221) (any, error) {
			return a.Status(ctx)
		})
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a stuck I2C transfer",
	Action: func(c *cli.Context) error {
		return withAdapter(c, func(ctx context.Context, a *adapter.MCP2221) (any, error) {
			return a.ReleaseBus(ctx)
		})
	},
}

type gpioDump struct {
	Flash  adapter.MCP2221GPIOParameters `yaml:"flash"`
	Values adapter.MCP2221GPIOValues     `yaml:"values"`
}

var mcp2221GPIOCmd = cli.Command{
	Name:  "gpio",
	Usage: "dump GP pin designations and levels",
	Action: func(c *cli.Context) error {
		return withAdapter(c, func(ctx context.Context, a *adapter.MCP2221) (any, error) {
			params, err := a.GetGPIOParameters(ctx)
			if err != nil {
				return nil, err
			}
			values, err := a.ReadGPIO(ctx)
			if err != nil {
				return nil, err
			}
			return gpioDump{Flash: params, Values: values}, nil
		})
	},
}

// withAdapter runs f against the adapter selected in the config and prints
// its result as YAML.
func withAdapter(c *cli.Context, f func(ctx context.Context, a *adapter.MCP2221) (any, error)) error {
	ctx, cancel := context.WithTimeout(commandContext(c), 5*time.Second)
	defer cancel()
	a := newMCP2221(cfg.Port)
	if err := a.Open(); err != nil {
		return console.Exit(1, "adapter initialization error: %s", console.Red(err))
	}
	defer func() {
		_ = a.Close()
	}()
	out, err := f(ctx, a)
	if err != nil {
		return console.Exit(1, "adapter communication error: %s", console.Red(err))
	}
	enc := yaml.NewEncoder(console.Writer())
	defer func() {
		_ = enc.Close()
	}()
	if err := enc.Encode(out); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}
