package main

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/rubiojr/carburanti/internal/address"
	"github.com/rubiojr/carburanti/internal/finder"
	"github.com/rubiojr/carburanti/internal/ranking"
	"github.com/rubiojr/carburanti/internal/station"
	"github.com/rubiojr/carburanti/internal/status"
	"github.com/rubiojr/carburanti/internal/translations"
)

func lookupFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "location",
			Usage: "Place name to search around",
		},
		&cli.Float64Flag{
			Name:  "lat",
			Usage: "Latitude of the location",
		},
		&cli.Float64Flag{
			Name:  "long",
			Usage: "Longitude of the location",
		},
		&cli.Float64Flag{
			Name:    "radius",
			Aliases: []string{"r"},
			Usage:   "Search radius in kilometers (default from CARBURANTI_RADIUS_KM)",
		},
		&cli.StringFlag{
			Name:    "fuel",
			Aliases: []string{"f"},
			Usage:   "Fuel type: diesel, unleaded, lpg, cng (default from settings)",
		},
	}
}

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "nearby",
		Usage: "List nearby stations sorted by price",
		Flags: append(lookupFlags(),
			&cli.IntFlag{
				Name:  "top",
				Usage: "Only show the N cheapest stations",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Filter by brand or name",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Order by price or distance",
				Value: "price",
			},
		),
		Action: nearbyAction,
	}
}

func cheapestCommand() *cli.Command {
	return &cli.Command{
		Name:   "cheapest",
		Usage:  "Show the cheapest nearby station",
		Flags:  lookupFlags(),
		Action: cheapestAction,
	}
}

// find resolves the lookup flags and runs the station lookup.
func (a *app) find(c *cli.Context) (finder.Request, finder.Result, string, error) {
	fuel, lang, err := a.fuelFlag(c)
	if err != nil {
		return finder.Request{}, finder.Result{}, "", err
	}

	req := finder.Request{
		Latitude:  c.Float64("lat"),
		Longitude: c.Float64("long"),
		RadiusKm:  a.cfg.RadiusKm,
		Fuel:      fuel,
	}
	if c.IsSet("radius") {
		req.RadiusKm = c.Float64("radius")
	}

	if loc := c.String("location"); loc != "" {
		res, err := a.geocoder.Locate(c.Context, loc)
		if err != nil {
			return req, finder.Result{}, lang, err
		}
		fmt.Println("Location found:", res.DisplayName)
		req.Latitude, req.Longitude = res.Latitude, res.Longitude
	} else if req.Latitude == 0 && req.Longitude == 0 {
		return req, finder.Result{}, lang, errors.New("location or latitude and longitude are required")
	}

	res, err := a.finder.Find(c.Context, req)
	if err != nil {
		return req, res, lang, err
	}
	if res.FetchErr != nil {
		fmt.Printf("Warning: price feed unavailable (%v)\n", res.FetchErr)
	}
	return req, res, lang, nil
}

func nearbyAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	req, res, lang, err := a.find(c)
	if err != nil {
		return err
	}

	stations := ranking.Rank(res.Stations, req.Fuel)
	if q := c.String("query"); q != "" {
		stations = ranking.Search(stations, q, ranking.DefaultSearchLimit)
	}
	if n := c.Int("top"); n > 0 && n < len(stations) {
		stations = stations[:n]
	}
	switch c.String("sort") {
	case "price":
	case "distance":
		stations = ranking.SortByDistance(stations, req.Point())
	default:
		return errors.Newf("unknown sort %q, use price or distance", c.String("sort"))
	}

	now := time.Now()
	for i, s := range stations {
		printStation(i+1, s, req.Fuel, lang, now)
	}

	fmt.Printf("Found %d stations within %g km radius (%s)\n", len(stations), req.RadiusKm, res.Source)
	if len(stations) > 0 {
		fmt.Println(translations.GetTranslations(lang).StatusApproximated)
	}
	return nil
}

func cheapestAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	req, res, lang, err := a.find(c)
	if err != nil {
		return err
	}

	cheapest, ok := ranking.Cheapest(res.Stations, req.Fuel)
	if !ok {
		fmt.Printf("No station sells %s within %g km\n", req.Fuel.Label(lang), req.RadiusKm)
		return nil
	}
	printStation(1, cheapest, req.Fuel, lang, time.Now())

	sum := ranking.Summarize(res.Stations, req.Fuel)
	fmt.Printf("Prices for %s across %d stations: lowest %.3f €, average %.3f €, highest %.3f €\n",
		req.Fuel.Label(lang), sum.Count, sum.LowestPrice, sum.AveragePrice, sum.HighestPrice)
	return nil
}

func printStation(n int, s station.Station, fuel station.FuelType, lang string, now time.Time) {
	st := status.ForStation(s, now, lang)
	fmt.Printf("%d. %s (%s)\n", n, s.Brand, s.Address)
	fmt.Printf("   ID: %s\n", s.ID)
	fmt.Printf("   City: %s\n", address.ExtractCity(s.Address))
	if s.Distance != nil {
		fmt.Printf("   Distance: %.2f km\n", *s.Distance)
	}
	if price, ok := s.Price(fuel); ok {
		fmt.Printf("   %s: %.3f €\n", fuel.Label(lang), price)
	}
	fmt.Printf("   Status: %s (%s)\n", st.Label, st.Subtext)
	fmt.Printf("   Coordinates: %.5f, %.5f\n\n", s.Latitude, s.Longitude)
}
