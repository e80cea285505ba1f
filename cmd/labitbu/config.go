package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/joho/godotenv"
)

const (
	envDataDir    = "LABITBU_DATADIR"
	envAssets     = "LABITBU_ASSETS"
	envDebugLevel = "LABITBU_DEBUGLEVEL"
	envRPCHost    = "LABITBU_RPCHOST"
	envRPCUser    = "LABITBU_RPCUSER"
	envRPCPass    = "LABITBU_RPCPASS"

	defaultDebugLevel = "info"
	envFileName       = "labitbu.env"
)

// ConfigOverrides carries optional CLI overrides for config values.
type ConfigOverrides struct {
	DataDir    string
	AssetsDir  string
	DebugLevel string
	RPCHost    string
	RPCUser    string
	RPCPass    string
}

// AppConfig is the consolidated configuration used by the labitbu tool.
type AppConfig struct {
	// Absolute directory where logs and the env file live.
	DataDir string
	// Directory holding bases/ and accessories/ image sets.
	AssetsDir  string
	DebugLevel string
	LogFile    string

	// Node RPC used by the watch command.
	RPCHost string
	RPCUser string
	RPCPass string
}

// LoadAppConfig reads .env in the working directory and labitbu.env in the
// data dir (neither is required), takes values from the environment and lets
// non-empty overrides win.
func LoadAppConfig(ov ConfigOverrides) (*AppConfig, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	datadir := firstNonEmpty(ov.DataDir, os.Getenv(envDataDir),
		btcutil.AppDataDir("labitbu", false))
	datadir, err := filepath.Abs(datadir)
	if err != nil {
		return nil, fmt.Errorf("resolve datadir: %w", err)
	}
	if err := loadEnvFile(filepath.Join(datadir, envFileName)); err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		DataDir:    datadir,
		AssetsDir:  firstNonEmpty(ov.AssetsDir, os.Getenv(envAssets), filepath.Join(datadir, "assets")),
		DebugLevel: strings.ToLower(firstNonEmpty(ov.DebugLevel, os.Getenv(envDebugLevel), defaultDebugLevel)),
		LogFile:    filepath.Join(datadir, "logs", "labitbu.log"),
		RPCHost:    firstNonEmpty(ov.RPCHost, os.Getenv(envRPCHost), "127.0.0.1:8332"),
		RPCUser:    firstNonEmpty(ov.RPCUser, os.Getenv(envRPCUser)),
		RPCPass:    firstNonEmpty(ov.RPCPass, os.Getenv(envRPCPass)),
	}
	if _, err := GetDebugLevel(cfg.DebugLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
