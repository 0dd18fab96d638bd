package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sht21/pkg/config"
	"github.com/mklimuk/sht21/snsctx"
)

var cfg config.Config

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "sht21"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", config.Version, config.Date, config.Commit)
	app.Usage = "SHT21 humidity and temperature sensor cli"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file (defaults to the simulated sensor)",
			EnvVars: []string{"SHT21_CONFIG"},
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
		&cli.BoolFlag{
			Name:  "trace",
			Usage: "log every bus transaction",
		},
	}
	app.Before = func(c *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if c.Bool("verbose") || c.Bool("trace") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		var err error
		cfg, err = config.Load(c.String("config"))
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		return nil
	}
	app.Commands = cli.Commands{
		&readCmd,
		&statusCmd,
		&resetCmd,
		&configCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}

// commandContext carries the logger and trace flag of one invocation.
func commandContext(c *cli.Context) context.Context {
	ctx := snsctx.SetLogger(c.Context, slog.Default())
	return snsctx.SetVerbose(ctx, c.Bool("trace"))
}
