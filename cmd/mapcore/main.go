package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/jaennil/guide_helper/backend/mapcore/internal/app"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/config"
	"github.com/jaennil/guide_helper/backend/mapcore/pkg/logger"
)

const (
	LATITUDE      string = `centerLatitude`
	LONGITUDE     string = `centerLongitude`
	ZOOMLEVEL     string = `zoomLevel`
	HEADING       string = `heading`
	WIDTH         string = `width`
	HEIGHT        string = `height`
	PROJECTION    string = `projection`
	TEMPLATE      string = `urlTemplate`
	TILEMATRIXSET string = `tileMatrixSet`
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

//nolint:funlen
func newApp() *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = "mapcore"
	cliApp.Usage = "Map view and tile pyramid service"
	cliApp.Version = versioninfo.Short()

	cliApp.Commands = []*cli.Command{
		{
			Name:  "serve",
			Usage: "Serve the map view over HTTP. Configured through the environment or a .env file",
			Action: func(c *cli.Context) error {
				cfg, err := config.New()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return app.Run(ctx, cfg)
			},
		},
		{
			Name:  "tiles",
			Usage: "Print the tile matrices and tile addresses covering a view, without fetching",
			Flags: []cli.Flag{
				&cli.Float64Flag{
					Name:    LATITUDE,
					Aliases: []string{"lat"},
					Usage:   "Latitude of the view center in degrees",
					Value:   55.7558,
					EnvVars: []string{strcase.ToScreamingSnake("map_" + LATITUDE)},
				},
				&cli.Float64Flag{
					Name:    LONGITUDE,
					Aliases: []string{"lon"},
					Usage:   "Longitude of the view center in degrees",
					Value:   37.6173,
					EnvVars: []string{strcase.ToScreamingSnake("map_" + LONGITUDE)},
				},
				&cli.Float64Flag{
					Name:    ZOOMLEVEL,
					Aliases: []string{"z"},
					Usage:   "Zoom level of the view",
					Value:   10,
					EnvVars: []string{strcase.ToScreamingSnake("map_" + ZOOMLEVEL)},
				},
				&cli.Float64Flag{
					Name:    HEADING,
					Usage:   "Heading of the view in degrees",
					EnvVars: []string{strcase.ToScreamingSnake("map_" + HEADING)},
				},
				&cli.Float64Flag{
					Name:    WIDTH,
					Usage:   "View width in pixels",
					Value:   1024,
					EnvVars: []string{strcase.ToScreamingSnake("map_" + WIDTH)},
				},
				&cli.Float64Flag{
					Name:    HEIGHT,
					Usage:   "View height in pixels",
					Value:   768,
					EnvVars: []string{strcase.ToScreamingSnake("map_" + HEIGHT)},
				},
				&cli.StringFlag{
					Name:    PROJECTION,
					Aliases: []string{"p"},
					Usage:   "CRS of the map projection. E.g.: EPSG:3857, AUTO2:42003",
					Value:   "EPSG:3857",
					EnvVars: []string{strcase.ToScreamingSnake("map_" + PROJECTION)},
				},
				&cli.StringFlag{
					Name:    TEMPLATE,
					Aliases: []string{"t"},
					Usage:   "Tile address template. E.g.: https://tile.openstreetmap.org/{z}/{x}/{y}.png",
					Value:   "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
					EnvVars: []string{strcase.ToScreamingSnake("layer_" + TEMPLATE)},
				},
				&cli.StringFlag{
					Name:    TILEMATRIXSET,
					Aliases: []string{"tms"},
					Usage:   "ID of a bundled tile matrix set or path to a JSON one. Switches the template to WMTS",
					EnvVars: []string{strcase.ToScreamingSnake("layer_" + TILEMATRIXSET)},
				},
			},
			Action: func(c *cli.Context) error {
				cfg, err := config.New()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				cfg.Map.CenterLatitude = c.Float64(LATITUDE)
				cfg.Map.CenterLongitude = c.Float64(LONGITUDE)
				cfg.Map.ZoomLevel = c.Float64(ZOOMLEVEL)
				cfg.Map.Heading = c.Float64(HEADING)
				cfg.Map.Width = c.Float64(WIDTH)
				cfg.Map.Height = c.Float64(HEIGHT)
				cfg.Map.Projection = c.String(PROJECTION)
				cfg.Layer.URLTemplate = c.String(TEMPLATE)
				cfg.Layer.TileMatrixSet = c.String(TILEMATRIXSET)
				return printTiles(c.App.Writer, cfg)
			},
		},
	}
	return cliApp
}

func printTiles(w io.Writer, cfg *config.Config) error {
	m, err := app.NewMap(cfg, nil, logger.NewNop())
	if err != nil {
		return err
	}
	defer m.Close()

	view := m.View()
	fmt.Fprintf(w, "view %s center %s zoom %.2f heading %.1f size %.0fx%.0f\n",
		view.CRS, view.Center, view.ZoomLevel, view.Heading, view.Width, view.Height)

	layers := m.Layers()
	for i, state := range m.LayerStates() {
		source := layers[i].Source()
		for _, matrix := range state.Matrices {
			fmt.Fprintf(w, "%s matrix %s\n", state.Name, matrix)
		}
		for _, p := range state.Placements {
			uri, ok := source.URL(p.Tile.Column, p.Tile.Y, p.Tile.ZoomLevel)
			if !ok {
				uri = "-"
			}
			fmt.Fprintf(w, "%s %s %s\n", state.Name, p.Tile, uri)
		}
	}
	return nil
}
