package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/gots/slice"
	"github.com/tstr-dev/tstr/pkg/cli/config"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	var database config.Database

	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations",
		Flags: slice.Flatten(database.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("starting migrate", slog.Any("Database", database))

			// Opening a store applies pending migrations.
			_, closer, err := database.Open(ctx)
			if err != nil {
				return err
			}
			defer closeOnExit(ctx, closer)

			logging.Default().Info("database is up to date")
			return nil
		},
	}
}
