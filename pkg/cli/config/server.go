package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Server holds the dashboard address and the intervals of the monitor and
// scheduler loops.
type Server struct {
	addr             string
	pollInterval     time.Duration
	scheduleInterval time.Duration
}

func (x *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Binding address of the dashboard API",
			Category:    "Server",
			Value:       "127.0.0.1:8000",
			Sources:     cli.EnvVars("TSTR_ADDR"),
			Destination: &x.addr,
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			Usage:       "Interval of revision polling",
			Category:    "Server",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("TSTR_POLL_INTERVAL"),
			Destination: &x.pollInterval,
		},
		&cli.DurationFlag{
			Name:        "schedule-interval",
			Usage:       "Interval of job scheduling",
			Category:    "Server",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("TSTR_SCHEDULE_INTERVAL"),
			Destination: &x.scheduleInterval,
		},
	}
}

func (x *Server) Validate() error {
	if x.pollInterval <= 0 || x.scheduleInterval <= 0 {
		return goerr.Wrap(types.ErrConfiguration, "loop intervals must be positive",
			goerr.V("poll_interval", x.pollInterval),
			goerr.V("schedule_interval", x.scheduleInterval))
	}
	return nil
}

func (x *Server) Addr() string                    { return x.addr }
func (x *Server) PollInterval() time.Duration     { return x.pollInterval }
func (x *Server) ScheduleInterval() time.Duration { return x.scheduleInterval }

func (x Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("Addr", x.addr),
		slog.Duration("PollInterval", x.pollInterval),
		slog.Duration("ScheduleInterval", x.scheduleInterval),
	)
}
