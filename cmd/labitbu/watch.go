package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/spf13/cobra"

	"github.com/stutxo/labitbu"
	"github.com/stutxo/labitbu/commit"
	"github.com/stutxo/labitbu/watch"
)

// waitFunded blocks until the watcher reports pkScript funded with minConfs.
func waitFunded(ctx context.Context, w *watch.Watcher, pkScript []byte, minConfs uint32, interval time.Duration) (watch.DepositUpdate, error) {
	ch, unsub := w.Subscribe(pkScript)
	defer unsub()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.Run(ctx, interval)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return watch.DepositUpdate{}, ctx.Err()
		case u := <-ch:
			if u.Funded(minConfs) {
				return u, nil
			}
		}
	}
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		pubHex   string
		pf       payloadFlags
		fee      uint64
		dest     string
		minConfs uint32
		interval time.Duration
		useTLS   bool
		out      string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Wait for the deposit address to be funded and write a mint request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := labitbu.ParseXOnlyPubKey(pubHex)
			if err != nil {
				return err
			}
			xonly := schnorr.SerializePubKey(pub)
			payload, err := pf.resolve()
			if err != nil {
				return err
			}
			if payload == nil {
				if payload, err = a.artifactPayload(xonly); err != nil {
					return err
				}
			}
			c, err := commit.Build(pub, payload)
			if err != nil {
				return err
			}
			pkScript, err := c.PkScript()
			if err != nil {
				return err
			}
			addr, err := c.Address()
			if err != nil {
				return err
			}

			client, err := watch.Dial(a.cfg.RPCHost, a.cfg.RPCUser, a.cfg.RPCPass, useTLS)
			if err != nil {
				return err
			}
			defer client.Shutdown()

			a.log.Infof("Watching %s for %d confirmations", addr, minConfs)
			w := watch.New(a.lb.Logger("WTCH"), client)
			u, err := waitFunded(cmd.Context(), w, pkScript, minConfs, interval)
			if err != nil {
				return err
			}
			a.log.Infof("Deposit funded: %d outputs, %d sats, %d confs", len(u.UTXOs), u.Total(), u.Confs)

			req := u.Request(hex.EncodeToString(xonly), fee, dest)
			if pf.hex != "" || pf.file != "" {
				req.PayloadHex = hex.EncodeToString(payload)
			}
			b, err := json.MarshalIndent(req, "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				a.printf("%s\n", b)
				return nil
			}
			if err := os.WriteFile(out, b, 0o600); err != nil {
				return fmt.Errorf("write request: %w", err)
			}
			a.log.Infof("Wrote mint request to %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&pubHex, "pubkey", "", "x-only public key (64 hex chars)")
	pf.register(cmd)
	cmd.Flags().Uint64Var(&fee, "fee", 1000, "Fee in sats for the mint request")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination address for the mint request")
	cmd.Flags().Uint32Var(&minConfs, "minconf", 1, "Confirmations required")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Poll interval")
	cmd.Flags().BoolVar(&useTLS, "rpctls", false, "Use TLS for the node RPC")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the request JSON here instead of stdout")
	_ = cmd.MarkFlagRequired("pubkey")
	_ = cmd.MarkFlagRequired("dest")
	return cmd
}
