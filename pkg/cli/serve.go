package cli

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gots/slice"
	"github.com/tstr-dev/tstr/pkg/cli/config"
	"github.com/tstr-dev/tstr/pkg/controller/server"
	"github.com/tstr-dev/tstr/pkg/controller/supervisor"
	"github.com/tstr-dev/tstr/pkg/infra"
	"github.com/tstr-dev/tstr/pkg/usecase"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/tstr-dev/tstr/pkg/utils/metrics"

	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		workerConfig string

		srvCfg   config.Server
		github   config.GitHub
		database config.Database
		sentry   config.Sentry
	)
	serveFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "worker-config",
			Usage:       "Also run a build worker in this process with the given config file",
			Sources:     cli.EnvVars("TSTR_WORKER_CONFIG"),
			Destination: &workerConfig,
		},
	}

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Monitor revisions, schedule jobs and serve the dashboard API",
		Flags: slice.Flatten(
			serveFlags,
			srvCfg.Flags(),
			github.Flags(),
			database.Flags(),
			sentry.Flags(),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("starting serve",
				slog.Any("Server", srvCfg),
				slog.Any("GitHub", github),
				slog.Any("Database", database),
				slog.Any("Sentry", &sentry),
				slog.String("WorkerConfig", workerConfig),
			)

			// Configuration is fully validated before any loop starts.
			if err := srvCfg.Validate(); err != nil {
				return err
			}
			var worker *config.Worker
			if workerConfig != "" {
				cfg, err := config.LoadWorker(workerConfig)
				if err != nil {
					return err
				}
				worker = cfg
			}
			sc, err := github.New()
			if err != nil {
				return err
			}
			if err := sentry.Configure(ctx); err != nil {
				return err
			}

			repo, closer, err := database.Open(ctx)
			if err != nil {
				return err
			}
			defer closeOnExit(ctx, closer)

			infraOptions := []infra.Option{
				infra.WithRepository(repo),
				infra.WithSourceControl(sc),
			}
			var ucOptions []usecase.Option
			if worker != nil {
				opts, err := workerOptions(worker)
				if err != nil {
					return err
				}
				infraOptions = append(infraOptions, opts...)
				ucOptions = append(ucOptions, usecase.WithPipeline(worker.Pipeline()))
			}

			uc := usecase.New(infra.New(infraOptions...), ucOptions...)

			loops := []supervisor.Loop{
				{
					Name:     "monitor",
					Interval: srvCfg.PollInterval(),
					Run: func(ctx context.Context) (bool, error) {
						_, err := uc.PollRevisions(ctx)
						return false, err
					},
				},
				{
					Name:     "scheduler",
					Interval: srvCfg.ScheduleInterval(),
					Run: func(ctx context.Context) (bool, error) {
						_, err := uc.ScanAndSchedule(ctx)
						return false, err
					},
				},
			}
			if worker != nil {
				loops = append(loops, workerLoop(uc, worker))
			}

			s := server.New(uc, server.WithMetrics(metrics.NewRegistry()))
			httpServer := &http.Server{
				Addr:    srvCfg.Addr(),
				Handler: s.Mux(),

				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				logging.Default().Info("starting http server", slog.String("addr", srvCfg.Addr()))
				if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
					serverErr <- goerr.Wrap(err, "failed to listen and serve")
				}
			}()

			runErr := runUntilSignal(ctx, supervisor.New(loops...), serverErr)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server")
			}

			return runErr
		},
	}
}
