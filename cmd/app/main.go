package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/clipper/internal"
	pkgconfig "github.com/starford/clipper/pkg/config"
)

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("config", "config.yaml")
	}
	return filepath.Join(dir, "clipper", "config.yaml")
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// run starts the helper. The browser launches it with the extension
// origin as the first argument.
func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithArgs(cmd.Args().Slice()),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runRecent(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ListRecent(ctx, os.Stdout, int(cmd.Int("limit")), internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// newCommand builds the root command. run is the helper action.
func newCommand(run cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:   "clipper",
		Usage:  "Native-messaging helper that saves browser clips as Markdown",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "<user config dir>/clipper/config.yaml",
				Value:       defaultConfigPath(),
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			// Chrome on Windows appends --parent-window=<hwnd> to the origin.
			&cli.StringFlag{
				Name:   "parent-window",
				Hidden: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "recent",
				Usage:  "List the most recently saved clips",
				Action: runRecent,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of clips to list (defaults to storage.recent_limit)",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve clip tools over the Model Context Protocol on stdio",
				Action: runMCP,
			},
		},
	}
}

func main() {
	if err := newCommand(run).Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
