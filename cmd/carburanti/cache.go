package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage cached station lists",
		Subcommands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Drop every cached station list",
				Action: func(c *cli.Context) error {
					a, err := newApp(c, nil)
					if err != nil {
						return err
					}
					defer a.Close()

					n, err := a.stations.Clear(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Removed %d cached station lists\n", n)
					return nil
				},
			},
		},
	}
}
