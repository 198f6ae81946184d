package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/villager-coder/skynet-go/cmd/dashboard"
	"github.com/villager-coder/skynet-go/config"
)

const (
	ServiceName      = "skynet-go"
	ServiceNamespace = "villager-coder"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Run parses os.Args and dispatches to the server or dashboard subcommand.
func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Multi-threaded actor runtime node",
		Commands: []*cli.Command{
			serverCmd(),
			dashboardCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run a node",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
			&cli.IntFlag{
				Name:  "node_id",
				Usage: "This node's 8-bit harbor id",
				Value: 1,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config_file"), nil)
			if err != nil {
				return err
			}

			app := NewApp(cfg, uint8(c.Int("node_id")))

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}

func dashboardCmd() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Watch a running node's registered-service count",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "admin_addr",
				Usage: "Admin HTTP address of the node to watch",
				Value: "localhost:7000",
			},
		},
		Action: func(c *cli.Context) error {
			return dashboard.Run(c.String("admin_addr"))
		},
	}
}
