package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/spf13/cobra"

	"github.com/stutxo/labitbu"
	"github.com/stutxo/labitbu/artgen"
	"github.com/stutxo/labitbu/commit"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		pubHex string
		out    string
		padded bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render the artifact for an x-only public key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := labitbu.ParseXOnlyPubKey(pubHex)
			if err != nil {
				return err
			}
			xonly := schnorr.SerializePubKey(pub)
			seed, err := artgen.DeriveSeed(xonly)
			if err != nil {
				return err
			}
			g, err := a.generator()
			if err != nil {
				return err
			}
			art, err := g.Generate(xonly)
			if err != nil {
				return err
			}

			data := art.Image()
			if padded {
				data = art.Bytes[:]
			}
			a.printf("seed: %s\ntraits: %s\nsize: %d bytes (%s, indexed=%v)\n",
				seed, art.Traits, art.Len, art.Mode, art.Indexed)
			if out == "" {
				a.printf("%s\n", hex.EncodeToString(data))
				return nil
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}
			a.log.Infof("Wrote %d bytes to %s", len(data), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&pubHex, "pubkey", "", "x-only public key (64 hex chars)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the image to this file instead of printing hex")
	cmd.Flags().BoolVar(&padded, "padded", false, "Emit the zero-padded 4096-byte buffer")
	_ = cmd.MarkFlagRequired("pubkey")
	return cmd
}

func newDepositCmd(a *app) *cobra.Command {
	var (
		pubHex string
		pf     payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Print the taproot address committing to a payload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pub, err := labitbu.ParseXOnlyPubKey(pubHex)
			if err != nil {
				return err
			}
			payload, err := pf.resolve()
			if err != nil {
				return err
			}
			if payload == nil {
				payload, err = a.artifactPayload(schnorr.SerializePubKey(pub))
				if err != nil {
					return err
				}
			}
			c, err := commit.BuildWithLog(pub, payload, a.lb.Logger("CMIT"))
			if err != nil {
				return err
			}
			if err := c.Verify(); err != nil {
				return fmt.Errorf("commitment self-check: %w", err)
			}
			addr, err := c.Address()
			if err != nil {
				return err
			}
			a.printf("%s\n", addr)
			a.log.Infof("Deposit address %s commits %d hidden nodes", addr, c.Chunks)
			return nil
		},
	}
	cmd.Flags().StringVar(&pubHex, "pubkey", "", "x-only public key (64 hex chars)")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("pubkey")
	return cmd
}
