package config

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository/memory"
	"github.com/tstr-dev/tstr/pkg/repository/postgres"
	"github.com/tstr-dev/tstr/pkg/repository/sqlite"
	"github.com/urfave/cli/v3"
)

type DatabaseKind string

const (
	DatabaseMemory   DatabaseKind = "memory"
	DatabaseSQLite   DatabaseKind = "sqlite"
	DatabasePostgres DatabaseKind = "postgres"
)

// ParseDSN tells which repository a DSN selects and returns what that
// repository is opened with. Accepted forms are "memory",
// "sqlite:///path/to.db", "postgres://..." and a bare file path for SQLite.
func ParseDSN(dsn string) (DatabaseKind, string, error) {
	switch {
	case dsn == "":
		return "", "", goerr.Wrap(types.ErrConfiguration, "database DSN is empty")
	case dsn == "memory" || dsn == "memory://":
		return DatabaseMemory, "", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DatabasePostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", goerr.Wrap(types.ErrConfiguration, "sqlite DSN has no path", goerr.V("dsn", dsn))
		}
		return DatabaseSQLite, path, nil
	case strings.Contains(dsn, "://"):
		return "", "", goerr.Wrap(types.ErrConfiguration, "unsupported database scheme", goerr.V("dsn", maskDSN(dsn)))
	default:
		return DatabaseSQLite, dsn, nil
	}
}

// maskDSN drops everything after the scheme so credentials never reach logs.
func maskDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "***"
	}
	return dsn
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type Database struct {
	dsn string `masq:"secret"`
}

func (x *Database) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "database",
			Usage:       "Database DSN [memory|sqlite:///path|postgres://...]",
			Category:    "Database",
			Aliases:     []string{"d"},
			Destination: &x.dsn,
			Sources:     cli.EnvVars("TSTR_DATABASE"),
			Value:       "sqlite://tstr.db",
		},
	}
}

// SetDSN overrides the flag value, e.g. with the queue URL of a worker
// config file.
func (x *Database) SetDSN(dsn string) {
	x.dsn = dsn
}

// Open connects to the database and applies pending migrations. The returned
// closer releases the connection.
func (x *Database) Open(ctx context.Context) (interfaces.Repository, io.Closer, error) {
	kind, target, err := ParseDSN(x.dsn)
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case DatabaseMemory:
		return memory.New(), nopCloser{}, nil
	case DatabasePostgres:
		repo, err := postgres.New(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	default:
		repo, err := sqlite.New(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	}
}

func (x Database) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("DSN", maskDSN(x.dsn)),
	)
}
