package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sht21/cmd/sht21/console"
	"github.com/mklimuk/sht21/environment"
	"github.com/mklimuk/sht21/pkg/config"
	"github.com/mklimuk/sht21/report"
)

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"r"},
	Usage:   "measure temperature and humidity",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "mqtt",
			Usage: "publish the reading to the broker from the config",
		},
		&cli.BoolFlag{
			Name:  "yaml",
			Usage: "print the reading as YAML",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "keep reading at this interval until interrupted",
		},
	},
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(commandContext(c), os.Interrupt)
		defer stop()

		s, err := openSensor(ctx, cfg)
		if err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}
		defer func() {
			_ = s.Close()
		}()

		var pub *report.Publisher
		if c.Bool("mqtt") {
			if cfg.MQTT == nil {
				return console.Exit(2, "no mqtt section in config")
			}
			pub, err = report.Dial(ctx, mqttOptions(cfg.MQTT))
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			defer pub.Close()
		}

		interval := c.Duration("interval")
		for {
			r, err := measure(ctx, s.port, s)
			if err != nil {
				if interval == 0 || ctx.Err() != nil {
					return console.Exit(1, "error getting reading: %s", console.Red(err))
				}
				console.Errorf("error getting reading: %s", err)
			} else {
				if err := printReading(r, c.Bool("yaml")); err != nil {
					return console.Exit(1, "encoding error: %s", console.Red(err))
				}
				if pub != nil {
					if err := pub.Publish(ctx, r); err != nil {
						console.Errorf("%s", err)
					}
				}
			}
			if interval == 0 {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(interval):
			}
		}
	},
}

func measure(ctx context.Context, port string, s environment.Thermohygrometer) (report.Reading, error) {
	temp, hum, err := s.GetTempAndHum(ctx)
	if err != nil {
		return report.Reading{}, err
	}
	return report.Reading{
		Time:        time.Now(),
		Port:        port,
		Temperature: temp,
		Humidity:    hum,
		Dewpoint:    environment.Dewpoint(hum, temp),
	}, nil
}

func printReading(r report.Reading, asYAML bool) error {
	if asYAML {
		enc := yaml.NewEncoder(console.Writer())
		defer func() {
			_ = enc.Close()
		}()
		return enc.Encode(r)
	}
	console.Printf("%s  %s °C\n%s %s %%RH\n%s  %s °C\n",
		console.PictoThermometer, console.White(fmt.Sprintf("%.2f", r.Temperature)),
		console.PictoHumidity, console.White(fmt.Sprintf("%.2f", r.Humidity)),
		console.PictoDewpoint, console.Cyan(fmt.Sprintf("%.2f", r.Dewpoint)))
	return nil
}

func mqttOptions(m *config.MQTT) report.Options {
	return report.Options{
		Broker:   m.Broker,
		ClientID: m.ClientID,
		Topic:    m.Topic,
		QoS:      m.QoS,
		Retained: m.Retained,
		Timeout:  m.Timeout,
	}
}
