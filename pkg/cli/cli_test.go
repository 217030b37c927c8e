package cli_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/cli"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository"
)

func TestMigrate(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		gt.NoError(t, cli.New().Run([]string{"tstr", "migrate", "--database", "memory"}))
	})

	t.Run("sqlite file is created", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tstr.db")
		gt.NoError(t, cli.New().Run([]string{"tstr", "migrate", "--database", "sqlite://" + path}))

		_, err := os.Stat(path)
		gt.NoError(t, err)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		err := cli.New().Run([]string{"tstr", "migrate", "--database", "mysql://localhost/tstr"})
		gt.True(t, errors.Is(err, types.ErrConfiguration))
	})
}

func TestWorkerCommand(t *testing.T) {
	t.Run("missing config is a configuration error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.yaml")
		err := cli.New().Run([]string{"tstr", "worker", "--config", path})
		gt.True(t, errors.Is(err, types.ErrConfiguration))
	})

	t.Run("generate config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "worker.yaml")
		gt.NoError(t, cli.New().Run([]string{"tstr", "worker", "--config", path, "--gen-config"}))

		raw := gt.R1(os.ReadFile(path)).NoError(t)
		gt.True(t, len(raw) > 0)

		// The generated template has no token yet
		err := cli.New().Run([]string{"tstr", "worker", "--config", path})
		gt.True(t, errors.Is(err, types.ErrConfiguration))
	})

	t.Run("once with an empty queue", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "worker.yaml")
		body := "queue_url: memory\n" +
			"scratch_dir: " + dir + "\n" +
			"token: t\n" +
			"toolchain: {url: https://example.com/toolchain.git}\n" +
			"target: {url: https://example.com/product.git}\n"
		gt.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		gt.NoError(t, cli.New().Run([]string{"tstr", "worker", "--config", path, "--once"}))
	})
}

func TestRequeueCommand(t *testing.T) {
	t.Run("unknown entry", func(t *testing.T) {
		err := cli.New().Run([]string{"tstr", "requeue", "--database", "memory", "1"})
		gt.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("invalid entry id", func(t *testing.T) {
		err := cli.New().Run([]string{"tstr", "requeue", "--database", "memory", "x"})
		gt.True(t, errors.Is(err, types.ErrInvalidOption))
	})
}

func TestParseEntryID(t *testing.T) {
	id := gt.R1(cli.ParseEntryIDForTest([]string{"42"})).NoError(t)
	gt.V(t, id).Equal(types.EntryID(42))

	for _, args := range [][]string{nil, {"0"}, {"-1"}, {"1", "2"}, {"abc"}} {
		_, err := cli.ParseEntryIDForTest(args)
		gt.True(t, errors.Is(err, types.ErrInvalidOption))
	}
}

func TestInvalidLogLevel(t *testing.T) {
	err := cli.New().Run([]string{"tstr", "--log-level", "verbose", "migrate", "--database", "memory"})
	gt.True(t, errors.Is(err, types.ErrInvalidOption))
}
