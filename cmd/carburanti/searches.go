package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func searchesCommand() *cli.Command {
	return &cli.Command{
		Name:  "searches",
		Usage: "Show the most searched areas",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of areas",
				Value: 10,
			},
		},
		Action: func(c *cli.Context) error {
			a, err := newApp(c, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.store.SearchLogs(c.Context, c.Int("limit"))
			if err != nil {
				return err
			}
			if len(logs) == 0 {
				fmt.Println("No searches logged yet.")
				return nil
			}
			for i, l := range logs {
				fmt.Printf("%d. %.2f, %.2f  %s  %g km  searched %d times, last %s\n",
					i+1, l.Latitude, l.Longitude, l.Fuel, l.Radius, l.SearchCount, l.LastSearch.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
