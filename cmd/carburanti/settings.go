package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/carburanti/internal/settings"
	"github.com/rubiojr/carburanti/internal/station"
)

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change preferences",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the current settings",
				Action: showSettingsAction,
			},
			{
				Name:  "set",
				Usage: "Change one or more settings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "fuel", Usage: "Default fuel type"},
					&cli.StringFlag{Name: "language", Usage: "it or en"},
					&cli.BoolFlag{Name: "notify-price", Usage: "Price notifications"},
					&cli.BoolFlag{Name: "notify-proximity", Usage: "Nearby station notifications"},
				},
				Action: setSettingsAction,
			},
		},
	}
}

func printSettings(s settings.Settings) {
	fmt.Printf("Fuel:                    %s\n", s.FuelType.Label(s.Language))
	fmt.Printf("Language:                %s\n", s.Language)
	fmt.Printf("Price notifications:     %t\n", s.NotifyPrice)
	fmt.Printf("Proximity notifications: %t\n", s.NotifyProximity)
}

func showSettingsAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.settings.Load(c.Context)
	if err != nil {
		return err
	}
	printSettings(s)
	return nil
}

func setSettingsAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var fuel station.FuelType
	if c.IsSet("fuel") {
		if fuel, err = station.ParseFuel(c.String("fuel")); err != nil {
			return err
		}
	}

	s, err := a.settings.Update(c.Context, func(s *settings.Settings) {
		if fuel != "" {
			s.FuelType = fuel
		}
		if c.IsSet("language") {
			s.Language = c.String("language")
		}
		if c.IsSet("notify-price") {
			s.NotifyPrice = c.Bool("notify-price")
		}
		if c.IsSet("notify-proximity") {
			s.NotifyProximity = c.Bool("notify-proximity")
		}
	})
	if err != nil {
		return err
	}
	printSettings(s)
	return nil
}
