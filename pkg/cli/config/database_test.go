package config_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/cli/config"
	"github.com/tstr-dev/tstr/pkg/domain/types"
)

func TestParseDSN(t *testing.T) {
	testCases := []struct {
		dsn    string
		kind   config.DatabaseKind
		target string
	}{
		{"memory", config.DatabaseMemory, ""},
		{"sqlite:///var/lib/tstr.db", config.DatabaseSQLite, "/var/lib/tstr.db"},
		{"sqlite://tstr.db", config.DatabaseSQLite, "tstr.db"},
		{"/tmp/tstr.db", config.DatabaseSQLite, "/tmp/tstr.db"},
		{"postgres://u:p@localhost/tstr?sslmode=disable", config.DatabasePostgres, "postgres://u:p@localhost/tstr?sslmode=disable"},
		{"postgresql://localhost/tstr", config.DatabasePostgres, "postgresql://localhost/tstr"},
	}

	for _, tc := range testCases {
		t.Run(tc.dsn, func(t *testing.T) {
			kind, target, err := config.ParseDSN(tc.dsn)
			gt.NoError(t, err)
			gt.V(t, kind).Equal(tc.kind)
			gt.V(t, target).Equal(tc.target)
		})
	}

	for _, dsn := range []string{"", "sqlite://", "mysql://localhost/tstr"} {
		t.Run("invalid "+dsn, func(t *testing.T) {
			_, _, err := config.ParseDSN(dsn)
			gt.True(t, errors.Is(err, types.ErrConfiguration))
		})
	}
}
