// Starts an http server to respond to ActivityPub requests.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tkrehbiel/activitystreams/server"
	"github.com/tkrehbiel/activitystreams/server/telemetry"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "activitystreams",
		Usage: "publish a blog feed as ActivityStreams notes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.json", Usage: "config json or yaml file"},
			&cli.StringFlag{Name: "host", Usage: "this hostname"},
			&cli.StringFlag{Name: "cert", Usage: "public certificate"},
			&cli.StringFlag{Name: "key", Usage: "private key"},
			&cli.IntFlag{Name: "port", Usage: "listen port"},
			&cli.BoolFlag{Name: "trace", Usage: "log request details"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		telemetry.Error(err, "exiting")
		telemetry.Sync()
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	telemetry.SetTrace(c.Bool("trace"))
	defer telemetry.Sync()

	cfg, err := server.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("host") {
		cfg.Server.HostName = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("cert") {
		cfg.Server.Certificate = c.String("cert")
	}
	if c.IsSet("key") {
		cfg.Server.PrivateKey = c.String("key")
	}

	telemetry.Log("starting activitystreams")
	svc, err := server.NewService(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Startup the service to listen for http requests
	svc.Start(ctx)

	// Wait for ^C
	<-ctx.Done()
	telemetry.Log("stopping activitystreams")

	// Shut down the service
	shutdown, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()
	svc.Stop(shutdown)
	telemetry.Log("stopped activitystreams cleanly")
	return nil
}
