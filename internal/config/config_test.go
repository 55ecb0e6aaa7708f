package config_test

import (
	"testing"
	"time"

	"github.com/okranz/steady/internal/config"
	"github.com/okranz/steady/internal/log"

	"github.com/romshark/yamagiconf"
	"github.com/stretchr/testify/require"
)

func TestValidateType(t *testing.T) {
	err := yamagiconf.ValidateType[config.Config]()
	require.NoError(t, err)
}

func TestIndicatorValidate(t *testing.T) {
	require.NoError(t, config.ConfigIndicator{}.Validate())
	require.NoError(t, config.ConfigIndicator{
		ShowDelay: 300 * time.Millisecond,
		MinShow:   700 * time.Millisecond,
	}.Validate())

	require.Error(t, config.ConfigIndicator{
		ShowDelay: -time.Millisecond,
	}.Validate())
	require.Error(t, config.ConfigIndicator{
		MinShow: -time.Millisecond,
	}.Validate())
}

func TestRefreshValidate(t *testing.T) {
	require.NoError(t, config.ConfigRefresh{}.Validate())
	require.Error(t, config.ConfigRefresh{
		Coalesce: -time.Millisecond,
	}.Validate())
}

func TestGlobListValidate(t *testing.T) {
	require.NoError(t, config.GlobList{"*.log", "node_modules*"}.Validate())
	require.Error(t, config.GlobList{"[invalid"}.Validate())
}

func TestLogLevelUnmarshal(t *testing.T) {
	f := func(input string, expect config.LogLevel) {
		t.Helper()
		var l config.LogLevel
		require.NoError(t, l.UnmarshalText([]byte(input)))
		require.Equal(t, expect, l)
	}
	f("", config.LogLevel(log.LogLevelErrOnly))
	f("erronly", config.LogLevel(log.LogLevelErrOnly))
	f("verbose", config.LogLevel(log.LogLevelVerbose))
	f("debug", config.LogLevel(log.LogLevelDebug))

	var l config.LogLevel
	require.Error(t, l.UnmarshalText([]byte("unknown")))
}

func TestCmdStrUnmarshal(t *testing.T) {
	var c config.CmdStr
	require.NoError(t, c.UnmarshalText([]byte("  go build ./...\n")))
	require.Equal(t, config.CmdStr("go build ./..."), c)
}
