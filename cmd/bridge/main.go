package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/brutella/hc/log"
	"github.com/urfave/cli/v2"

	almond "github.com/cloudkucooland/almond-homekit"
	"github.com/cloudkucooland/almond-homekit/config"
	"github.com/cloudkucooland/almond-homekit/platform"
)

func main() {
	var dir, file string
	var debug bool

	app := cli.App{
		Name:  "almond-homekit",
		Usage: "bridge an Almond+ hub's devices into HomeKit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Value:       "config",
				Usage:       "configuration directory",
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "config",
				Value:       "bridge.yaml",
				Usage:       "configuration file, JSON or YAML",
				Destination: &file,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "log every characteristic read, write and update",
				Destination: &debug,
			},
		},
		Action: func(c *cli.Context) error {
			if debug {
				log.Debug.Enable()
			}

			fulldir, err := filepath.Abs(dir)
			if err != nil {
				return cli.Exit("unable to get config directory "+dir, 1)
			}
			conf, err := config.Load(filepath.Join(fulldir, file))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			config.Set(conf)

			// spin up platforms to listen to the hub and HomeKit
			if err := almond.BootstrapPlatforms(conf); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			err = almond.Run(ctx, conf)
			log.Info.Print("shutting down")
			platform.ShutdownAllPlatforms()
			return err
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Info.Panic(err)
	}
}
