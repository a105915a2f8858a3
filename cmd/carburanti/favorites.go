package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/translations"
)

func favoritesCommand() *cli.Command {
	idFlag := &cli.StringFlag{
		Name:     "id",
		Usage:    "Station id",
		Required: true,
	}
	return &cli.Command{
		Name:  "favorites",
		Usage: "Manage saved stations",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved stations grouped by city",
				Action: listFavoritesAction,
			},
			{
				Name:   "toggle",
				Usage:  "Save or forget a station from the last lookup",
				Flags:  []cli.Flag{idFlag},
				Action: toggleFavoriteAction,
			},
			{
				Name:   "remove",
				Usage:  "Forget a saved station",
				Flags:  []cli.Flag{idFlag},
				Action: removeFavoriteAction,
			},
		},
	}
}

func listFavoritesAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	prefs, err := a.settings.Load(c.Context)
	if err != nil {
		return err
	}

	groups, err := a.favorites.Grouped(c.Context)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println(translations.GetTranslations(prefs.Language).NoFavorites)
		return nil
	}

	for _, g := range groups {
		fmt.Printf("%s (%d)\n", g.City, len(g.Stations))
		for _, s := range g.Stations {
			fmt.Printf("  %s  %s - %s\n", s.ID, s.Brand, s.Address)
			for _, fuel := range station.Fuels() {
				if price, ok := s.Price(fuel); ok {
					fmt.Printf("      %s: %.3f €\n", fuel.Label(prefs.Language), price)
				}
			}
		}
	}
	return nil
}

func toggleFavoriteAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	id := c.String("id")
	s, ok, err := a.knownStation(c, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Newf("station %s not found in saved or recently fetched stations", id)
	}

	added, err := a.favorites.Toggle(c.Context, s)
	if err != nil {
		return err
	}
	if added {
		fmt.Printf("Saved %s (%s)\n", s.Brand, s.ID)
	} else {
		fmt.Printf("Removed %s (%s)\n", s.Brand, s.ID)
	}
	return nil
}

func removeFavoriteAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.favorites.Remove(c.Context, c.String("id"))
	if err != nil {
		return err
	}
	if !removed {
		return errors.Newf("station %s is not saved", c.String("id"))
	}
	fmt.Println("Removed", c.String("id"))
	return nil
}

// knownStation finds id among favorites and the last fetched stations.
func (a *app) knownStation(c *cli.Context, id string) (station.Station, bool, error) {
	favs, err := a.favorites.List(c.Context)
	if err != nil {
		return station.Station{}, false, err
	}
	snap, _, err := a.handoff.LoadSnapshot(c.Context)
	if err != nil {
		return station.Station{}, false, err
	}
	for _, s := range append(favs, snap.Stations...) {
		if s.ID == id {
			return s, true, nil
		}
	}
	return station.Station{}, false, nil
}
