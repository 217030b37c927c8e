package cli

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gots/slice"
	"github.com/tstr-dev/tstr/pkg/cli/config"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/infra"
	"github.com/tstr-dev/tstr/pkg/usecase"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func requeueCommand() *cli.Command {
	var database config.Database

	return &cli.Command{
		Name:      "requeue",
		Usage:     "Put a failed queue entry back to the queue",
		ArgsUsage: "<entry-id>",
		Flags:     slice.Flatten(database.Flags()),
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := parseEntryID(c.Args().Slice())
			if err != nil {
				return err
			}

			repo, closer, err := database.Open(ctx)
			if err != nil {
				return err
			}
			defer closeOnExit(ctx, closer)

			uc := usecase.New(infra.New(infra.WithRepository(repo)))
			if err := uc.Requeue(ctx, id); err != nil {
				return err
			}

			logging.Default().Info("requeued", slog.Any("entry_id", id))
			return nil
		},
	}
}

func parseEntryID(args []string) (types.EntryID, error) {
	if len(args) != 1 {
		return 0, goerr.Wrap(types.ErrInvalidOption, "exactly one queue entry ID is required",
			goerr.V("args", args))
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(types.ErrInvalidOption, "invalid queue entry ID", goerr.V("value", args[0]))
	}
	return types.EntryID(id), nil
}
