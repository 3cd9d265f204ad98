package main

import (
	"context"
	"os"

	"github.com/desertthunder/scrapectl/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger, ConfigPath: "config.toml"})
	app := newApp(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Shutdown(context.Background(), app)
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "scrapectl",
		Usage:   "Submit, watch and interrupt crawl tasks",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("SCRAPECTL_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "ephemeral",
				Usage: "Keep the session in memory instead of the local database",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before:   r.Bootstrap,
		After:    r.Shutdown,
		Commands: r.register(),
	}
}
