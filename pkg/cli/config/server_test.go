package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/cli/config"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

func runServerFlags(t *testing.T, args ...string) (*config.Server, error) {
	t.Helper()
	var cfg config.Server
	var validateErr error
	cmd := &cli.Command{
		Name:  "test",
		Flags: cfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			validateErr = cfg.Validate()
			return nil
		},
	}
	gt.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, args...)))
	return &cfg, validateErr
}

func TestServerDefaults(t *testing.T) {
	cfg, err := runServerFlags(t)
	gt.NoError(t, err)
	gt.V(t, cfg.Addr()).Equal("127.0.0.1:8000")
	gt.V(t, cfg.PollInterval()).Equal(30 * time.Second)
	gt.V(t, cfg.ScheduleInterval()).Equal(10 * time.Second)
}

func TestServerFlags(t *testing.T) {
	cfg, err := runServerFlags(t, "--addr", ":9000", "--poll-interval", "1m")
	gt.NoError(t, err)
	gt.V(t, cfg.Addr()).Equal(":9000")
	gt.V(t, cfg.PollInterval()).Equal(time.Minute)
}

func TestServerValidate(t *testing.T) {
	_, err := runServerFlags(t, "--schedule-interval", "0s")
	gt.True(t, errors.Is(err, types.ErrConfiguration))
}
