package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/spf13/cobra"

	"github.com/stutxo/labitbu"
	"github.com/stutxo/labitbu/mint"
)

// loadParams reads a JSON mint request and fills in the payload, generating
// the artifact when neither the flags nor the request carry one.
func (a *app) loadParams(reqPath string, pf *payloadFlags) (mint.Params, error) {
	f, err := os.Open(reqPath)
	if err != nil {
		return mint.Params{}, fmt.Errorf("open request: %w", err)
	}
	defer f.Close()

	req, err := mint.DecodeRequest(f)
	if err != nil {
		return mint.Params{}, err
	}
	payload, err := pf.resolve()
	if err != nil {
		return mint.Params{}, err
	}
	p, err := req.Params(payload)
	if err != nil {
		return mint.Params{}, err
	}
	p.Log = a.lb.Logger("MINT")
	return p, nil
}

func (a *app) fillArtifact(p *mint.Params) error {
	if p.Payload != nil || p.PubKey == nil {
		return nil
	}
	payload, err := a.artifactPayload(schnorr.SerializePubKey(p.PubKey))
	if err != nil {
		return err
	}
	p.Payload = payload
	return nil
}

func newMintCmd(a *app) *cobra.Command {
	var (
		reqPath string
		out     string
		pf      payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Build an unsigned PSBT spending commitment outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadParams(reqPath, &pf)
			if err != nil {
				return err
			}
			if err := a.fillArtifact(&p); err != nil {
				return err
			}
			if out != "" {
				raw, err := mint.MintPSBT(p)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, raw, 0o644); err != nil {
					return fmt.Errorf("write psbt: %w", err)
				}
				a.log.Infof("Wrote %d byte PSBT to %s", len(raw), out)
				return nil
			}
			b64, err := mint.MintPSBTBase64(p)
			if err != nil {
				return err
			}
			a.printf("%s\n", b64)
			return nil
		},
	}
	cmd.Flags().StringVar(&reqPath, "request", "", "JSON mint request")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the binary PSBT here instead of printing base64")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func newSpendCmd(a *app) *cobra.Command {
	var (
		reqPath string
		privHex string
		pf      payloadFlags
	)
	cmd := &cobra.Command{
		Use:   "spend",
		Short: "Sign a transaction spending commitment outputs via the script path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if privHex == "" {
				privHex = os.Getenv("LABITBU_PRIVKEY")
			}
			priv, err := labitbu.ParsePrivKey(privHex)
			if err != nil {
				return err
			}
			p, err := a.loadParams(reqPath, &pf)
			if err != nil {
				return err
			}
			if p.PubKey == nil {
				p.PubKey = priv.PubKey()
			}
			if err := a.fillArtifact(&p); err != nil {
				return err
			}
			txHex, err := mint.SpendHex(p, priv)
			if err != nil {
				return err
			}
			a.printf("%s\n", txHex)
			return nil
		},
	}
	cmd.Flags().StringVar(&reqPath, "request", "", "JSON mint request")
	cmd.Flags().StringVar(&privHex, "privkey", "", "32-byte private key hex (env LABITBU_PRIVKEY)")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("request")
	return cmd
}
