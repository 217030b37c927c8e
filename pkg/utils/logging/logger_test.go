package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
)

func TestConfigure(t *testing.T) {
	t.Run("configure with json format to stdout", func(t *testing.T) {
		err := logging.Configure("json", "info", "stdout")
		gt.NoError(t, err)
		// Successful configuration is validated by no error
		// Actual log format testing requires output interception
	})

	t.Run("configure with text format", func(t *testing.T) {
		err := logging.Configure("text", "debug", "stdout")
		gt.NoError(t, err)
		// Successful configuration is validated by no error
	})

	t.Run("configure with invalid format returns error", func(t *testing.T) {
		err := logging.Configure("invalid", "info", "stdout")
		gt.Error(t, err)
	})

	t.Run("configure with invalid level returns error", func(t *testing.T) {
		err := logging.Configure("json", "invalid", "stdout")
		gt.Error(t, err)
	})

	t.Run("tokens are masked in file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tstr.log")
		gt.NoError(t, logging.Configure("json", "info", path))
		t.Cleanup(func() { _ = logging.Configure("text", "info", "stdout") })

		logging.Default().Info("worker config",
			"token", types.WorkerToken("ghp_supersecretvalue"),
			"github_token", types.GitHubToken("ghs_anothersecret"),
		)

		data := gt.R1(os.ReadFile(path)).NoError(t)
		gt.True(t, strings.Contains(string(data), "worker config"))
		gt.False(t, strings.Contains(string(data), "ghp_supersecretvalue"))
		gt.False(t, strings.Contains(string(data), "ghs_anothersecret"))
	})
}

func TestDefault(t *testing.T) {
	// Test that Default() returns a functional logger
	logger := logging.Default()
	logger.Info("test message", "key", "value")
	// If this doesn't panic, the logger is functional
}
