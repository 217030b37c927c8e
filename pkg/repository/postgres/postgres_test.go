package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/interfaces"
	"github.com/tstr-dev/tstr/pkg/repository/postgres"
	"github.com/tstr-dev/tstr/pkg/repository/testhelper"
	"github.com/tstr-dev/tstr/pkg/utils/safe"
	"github.com/tstr-dev/tstr/pkg/utils/testutil"
)

// withSearchPath returns dsn with search_path set to schema. Both URL and
// key=value forms are accepted.
func withSearchPath(t *testing.T, dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u := gt.R1(url.Parse(dsn)).NoError(t)
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " search_path=" + schema
}

func newFactory(dsn string) testhelper.Factory {
	return func(t *testing.T) interfaces.Repository {
		ctx := context.Background()
		schema := "tstr_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

		admin := gt.R1(sql.Open("postgres", dsn)).NoError(t)
		t.Cleanup(func() { safe.Close(admin) })
		gt.R1(admin.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))).NoError(t)
		t.Cleanup(func() {
			_, _ = admin.ExecContext(context.Background(), fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		})

		repo := gt.R1(postgres.New(ctx, withSearchPath(t, dsn, schema))).NoError(t)
		t.Cleanup(func() { safe.Close(repo) })
		return repo
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := testutil.GetEnvOrSkip(t, "TEST_POSTGRES_DSN")
	testhelper.TestAll(t, newFactory(dsn))
}

func TestMigrateIsIdempotent(t *testing.T) {
	dsn := testutil.GetEnvOrSkip(t, "TEST_POSTGRES_DSN")
	repo := newFactory(dsn)(t).(*postgres.Repository)

	gt.NoError(t, repo.Migrate(context.Background()))
	gt.NoError(t, repo.Migrate(context.Background()))
}
