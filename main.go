package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/CyrilB1531/Domosharp-sub000/cmd"
)

func main() {
	app := &cli.App{
		Name:   "domosharp-hub",
		Usage:  "home automation hub for mqtt, tasmota and dummy hardware",
		Action: cmd.HubCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "migrations-folder",
				EnvVars: []string{"MIGRATIONS_FOLDER"},
				Value:   "./migrations",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				EnvVars: []string{"METRICS_ADDR"},
				Value:   "0.0.0.0:9100",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
