package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "carburanti",
		Usage: "Find nearby fuel stations and their prices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file (default from CARBURANTI_DB or carburanti.db)",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Price feed endpoint (default from CARBURANTI_API_URL)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
		},
		Commands: []*cli.Command{
			nearbyCommand(),
			cheapestCommand(),
			favoritesCommand(),
			settingsCommand(),
			searchesCommand(),
			cacheCommand(),
			watchCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
