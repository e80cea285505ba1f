package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envDataDir, envAssets, envDebugLevel, envRPCHost, envRPCUser, envRPCPass} {
		t.Setenv(k, "")
	}
}

func TestLoadAppConfigDefaultsUnderDataDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadAppConfig(ConfigOverrides{DataDir: dir})
	require.NoError(t, err)
	require.Equal(t, dir, cfg.DataDir)
	require.Equal(t, filepath.Join(dir, "assets"), cfg.AssetsDir)
	require.Equal(t, filepath.Join(dir, "logs", "labitbu.log"), cfg.LogFile)
	require.Equal(t, defaultDebugLevel, cfg.DebugLevel)
	require.Equal(t, "127.0.0.1:8332", cfg.RPCHost)
}

func TestLoadAppConfigRPC(t *testing.T) {
	clearEnv(t)
	t.Setenv(envRPCUser, "alice")
	t.Setenv(envRPCPass, "secret")
	cfg, err := LoadAppConfig(ConfigOverrides{DataDir: t.TempDir(), RPCHost: "node:18443"})
	require.NoError(t, err)
	require.Equal(t, "node:18443", cfg.RPCHost)
	require.Equal(t, "alice", cfg.RPCUser)
	require.Equal(t, "secret", cfg.RPCPass)
}

func TestLoadAppConfigEnvAndOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(envDataDir, dir)
	t.Setenv(envAssets, "/from/env")
	t.Setenv(envDebugLevel, "DEBUG")

	cfg, err := LoadAppConfig(ConfigOverrides{})
	require.NoError(t, err)
	require.Equal(t, dir, cfg.DataDir)
	require.Equal(t, "/from/env", cfg.AssetsDir)
	require.Equal(t, "debug", cfg.DebugLevel)

	cfg, err = LoadAppConfig(ConfigOverrides{AssetsDir: "/from/flag", DebugLevel: "warn"})
	require.NoError(t, err)
	require.Equal(t, "/from/flag", cfg.AssetsDir)
	require.Equal(t, "warn", cfg.DebugLevel)
}

func TestLoadAppConfigEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	os.Unsetenv(envAssets)
	os.Unsetenv(envDebugLevel)
	envFile := "LABITBU_ASSETS=/from/file\nLABITBU_DEBUGLEVEL=trace\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, envFileName), []byte(envFile), 0o600))

	cfg, err := LoadAppConfig(ConfigOverrides{DataDir: dir})
	require.NoError(t, err)
	require.Equal(t, "/from/file", cfg.AssetsDir)
	require.Equal(t, "trace", cfg.DebugLevel)
}

func TestLoadAppConfigBadLevel(t *testing.T) {
	clearEnv(t)
	_, err := LoadAppConfig(ConfigOverrides{DataDir: t.TempDir(), DebugLevel: "loud"})
	require.Error(t, err)
}

func TestGetDebugLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"debug", slog.LevelDebug},
		{"trace", slog.LevelTrace},
		{"critical", slog.LevelCritical},
		{"off", slog.LevelOff},
	}
	for _, tc := range tests {
		got, err := GetDebugLevel(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
	_, err := GetDebugLevel("verbose")
	require.Error(t, err)
}

func TestLogBackendWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "labitbu.log")
	lb, err := NewLogBackend(LogConfig{LogFile: logFile, DebugLevel: "info"})
	require.NoError(t, err)

	log := lb.Logger("TEST")
	log.Debugf("hidden")
	log.Infof("visible %d", 42)
	require.NoError(t, lb.Close())

	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(b), "[INF] TEST: visible 42")
	require.NotContains(t, string(b), "hidden")
}
