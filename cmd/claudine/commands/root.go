package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/claudine-gateway/internal/app"
	"github.com/florianilch/claudine-gateway/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "claudine",
		Usage:   "Anthropic Messages API gateway",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars(app.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: "text",
			},
		},
		Commands: []*cli.Command{
			proxyStartCommand(app.BuildInfo{Version: version, Commit: commit}),
			authCommand(),
			modelsCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

func proxyStartCommand(build app.BuildInfo) *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Starts the gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "listen host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "listen port",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "upstream provider (gemini|anthropic)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return proxyStartAction(ctx, cmd, build)
		},
	}
}

func proxyStartAction(ctx context.Context, cmd *cli.Command, build app.BuildInfo) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	shutdownTelemetry, err := observability.Instrument(ctx, observability.Options{
		Level:        cfg.SlogLevel(),
		Format:       cfg.LogFormat,
		LogsExporter: cfg.Telemetry.LogsExporter,
		MinSeverity:  cfg.Telemetry.MinSeverity,
	})
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush telemetry: %v\n", err)
		}
	}()

	application, err := app.New(ctx, cfg, build)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting", "version", build.Version, "provider", cfg.Upstream.Provider)

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
