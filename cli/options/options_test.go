package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/network-map-service/pkg/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runWithFlags(t *testing.T, args []string, action cli.ActionFunc) {
	t.Helper()
	app := cli.NewApp()
	app.Flags = Flags
	app.Action = action
	require.NoError(t, app.Run(append([]string{"network-map-service"}, args...)))
}

func TestGetConfigFromContextLoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9999\n"), 0o644))

	runWithFlags(t, []string{"--config", path}, func(ctx *cli.Context) error {
		cfg, err := GetConfigFromContext(ctx)
		require.NoError(t, err)
		require.Equal(t, 9999, cfg.Port)
		return nil
	})
}

func TestGetConfigFromContextMissingFile(t *testing.T) {
	runWithFlags(t, []string{"--config", "/nonexistent/path.yml"}, func(ctx *cli.Context) error {
		_, err := GetConfigFromContext(ctx)
		require.Error(t, err)
		return nil
	})
}

func TestHandleLoggingParamsDebugOverridesLevel(t *testing.T) {
	runWithFlags(t, []string{"--debug"}, func(ctx *cli.Context) error {
		log, level, err := HandleLoggingParams(ctx, config.Logger{Level: "error"})
		require.NoError(t, err)
		require.NotNil(t, log)
		require.Equal(t, "debug", level.String())
		return nil
	})
}

func TestHandleLoggingParamsRejectsBadLevel(t *testing.T) {
	runWithFlags(t, nil, func(ctx *cli.Context) error {
		_, _, err := HandleLoggingParams(ctx, config.Logger{Level: "not-a-level"})
		require.Error(t, err)
		return nil
	})
}
