package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/slog"
	"github.com/spf13/cobra"

	"github.com/stutxo/labitbu/artgen"
)

type app struct {
	ov  ConfigOverrides
	cfg *AppConfig
	lb  *LogBackend
	log slog.Logger

	stdout io.Writer
	quiet  bool
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadAppConfig(a.ov)
	if err != nil {
		return err
	}
	lb, err := NewLogBackend(LogConfig{
		LogFile:     cfg.LogFile,
		DebugLevel:  cfg.DebugLevel,
		MaxLogFiles: 10,
		UseStderr:   !a.quiet,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.lb = lb
	a.log = lb.Logger("LBTU")
	a.log.Debugf("Using datadir %s, assets %s", cfg.DataDir, cfg.AssetsDir)
	return nil
}

// closeLog closes the log backend opened by setup, if any.
func (a *app) closeLog() error {
	if a.lb == nil {
		return nil
	}
	err := a.lb.Close()
	a.lb = nil
	return err
}

// withCloseLog wraps the RunE of every subcommand so the log file is closed
// whether or not the command fails.
func (a *app) withCloseLog(cmds []*cobra.Command) {
	for _, c := range cmds {
		run := c.RunE
		if run == nil {
			continue
		}
		c.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				if cerr := a.closeLog(); err == nil {
					err = cerr
				}
			}()
			return run(cmd, args)
		}
	}
}

// generator loads the asset sets from the configured assets dir.
func (a *app) generator() (*artgen.Generator, error) {
	dir := a.cfg.AssetsDir
	bases, baseNames, err := loadAssetDir(filepath.Join(dir, "bases"))
	if err != nil {
		return nil, err
	}
	accs, accNames, err := loadAssetDir(filepath.Join(dir, "accessories"))
	if err != nil {
		return nil, err
	}
	a.log.Debugf("Loaded bases %v and accessories %v from %s", baseNames, accNames, dir)
	return artgen.NewGenerator(artgen.Config{
		Bases:       bases,
		Accessories: accs,
		Log:         a.lb.Logger("ARTG"),
	})
}

// payloadFlags selects the committed payload: explicit hex, a file, or the
// artifact generated for the key.
type payloadFlags struct {
	hex  string
	file string
}

func (pf *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pf.hex, "payload-hex", "", "Payload as hex (default: generated artifact)")
	cmd.Flags().StringVar(&pf.file, "payload-file", "", "Read payload from file (default: generated artifact)")
}

// resolve returns the explicit payload, or nil when the artifact should be
// generated.
func (pf *payloadFlags) resolve() ([]byte, error) {
	switch {
	case pf.hex != "" && pf.file != "":
		return nil, fmt.Errorf("--payload-hex and --payload-file are exclusive")
	case pf.hex != "":
		b, err := hex.DecodeString(strings.TrimSpace(pf.hex))
		if err != nil {
			return nil, fmt.Errorf("bad --payload-hex: %w", err)
		}
		return b, nil
	case pf.file != "":
		return os.ReadFile(pf.file)
	}
	return nil, nil
}

// artifactPayload generates the padded artifact for xonly.
func (a *app) artifactPayload(xonly []byte) ([]byte, error) {
	g, err := a.generator()
	if err != nil {
		return nil, err
	}
	art, err := g.Generate(xonly)
	if err != nil {
		return nil, err
	}
	a.log.Infof("Generated artifact %s (%d bytes, %s)", art.Traits, art.Len, art.Mode)
	return art.Bytes[:], nil
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.stdout, format, args...)
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	return newApp(stdout).rootCmd()
}

func newApp(stdout io.Writer) *app {
	return &app{stdout: stdout}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "labitbu",
		Short:             "Generate labitbu artifacts and commit them to taproot outputs",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	pf := root.PersistentFlags()
	pf.StringVar(&a.ov.DataDir, "datadir", "", "Directory for logs and labitbu.env (env "+envDataDir+")")
	pf.StringVar(&a.ov.AssetsDir, "assets", "", "Directory with bases/ and accessories/ (env "+envAssets+")")
	pf.StringVar(&a.ov.DebugLevel, "debuglevel", "", "Logging level: trace, debug, info, warn, error, critical, off (env "+envDebugLevel+")")
	pf.StringVar(&a.ov.RPCHost, "rpchost", "", "Node RPC host:port (env "+envRPCHost+")")
	pf.StringVar(&a.ov.RPCUser, "rpcuser", "", "Node RPC user (env "+envRPCUser+")")
	pf.StringVar(&a.ov.RPCPass, "rpcpass", "", "Node RPC password (env "+envRPCPass+")")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Only log to the log file")

	root.AddCommand(
		newGenerateCmd(a),
		newDepositCmd(a),
		newMintCmd(a),
		newSpendCmd(a),
		newExtractCmd(a),
		newStressCmd(a),
		newWatchCmd(a),
	)
	a.withCloseLog(root.Commands())
	return root
}

func main() {
	a := newApp(os.Stdout)
	err := a.rootCmd().ExecuteContext(context.Background())
	a.closeLog()
	if err != nil {
		os.Exit(1)
	}
}
