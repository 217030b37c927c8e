package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/gots/slice"
	"github.com/tstr-dev/tstr/pkg/cli/config"
	"github.com/tstr-dev/tstr/pkg/controller/supervisor"
	"github.com/tstr-dev/tstr/pkg/infra"
	"github.com/tstr-dev/tstr/pkg/usecase"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func workerCommand() *cli.Command {
	var (
		configPath string
		genConfig  bool
		once       bool

		database config.Database
		sentry   config.Sentry
	)
	workerFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Worker config file (YAML or JSON)",
			Aliases:     []string{"c"},
			Sources:     cli.EnvVars("TSTR_WORKER_CONFIG"),
			Destination: &configPath,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "gen-config",
			Usage:       "Write a default config file to --config and exit",
			Destination: &genConfig,
		},
		&cli.BoolFlag{
			Name:        "once",
			Usage:       "Process at most one queue entry and exit",
			Destination: &once,
		},
	}

	return &cli.Command{
		Name:    "worker",
		Aliases: []string{"w"},
		Usage:   "Build queued jobs",
		Flags: slice.Flatten(
			workerFlags,
			sentry.Flags(),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			if genConfig {
				if err := config.WriteDefaultWorker(configPath); err != nil {
					return err
				}
				logging.Default().Info("config file generated", slog.String("path", configPath))
				return nil
			}

			cfg, err := config.LoadWorker(configPath)
			if err != nil {
				return err
			}
			logging.Default().Info("starting worker",
				slog.Any("Worker", cfg),
				slog.Any("Sentry", &sentry),
			)
			if err := sentry.Configure(ctx); err != nil {
				return err
			}

			opts, err := workerOptions(cfg)
			if err != nil {
				return err
			}

			database.SetDSN(cfg.QueueURL)
			repo, closer, err := database.Open(ctx)
			if err != nil {
				return err
			}
			defer closeOnExit(ctx, closer)

			uc := usecase.New(
				infra.New(append(opts, infra.WithRepository(repo))...),
				usecase.WithPipeline(cfg.Pipeline()),
			)

			if once {
				processed, err := uc.ProcessNext(ctx)
				if err != nil {
					return err
				}
				logging.Default().Info("worker finished", slog.Bool("processed", processed))
				return nil
			}

			return runUntilSignal(ctx, supervisor.New(workerLoop(uc, cfg)), nil)
		},
	}
}
