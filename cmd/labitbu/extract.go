package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stutxo/labitbu"
	"github.com/stutxo/labitbu/mint"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		txHex   string
		txFile  string
		inputID string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Recover the image revealed by a commitment spend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if txFile != "" {
				b, err := os.ReadFile(txFile)
				if err != nil {
					return fmt.Errorf("read tx: %w", err)
				}
				txHex = strings.TrimSpace(string(b))
			}
			if txHex == "" {
				return fmt.Errorf("one of --tx or --tx-file is required")
			}
			tx, err := labitbu.ParseTxHex(txHex)
			if err != nil {
				return err
			}
			img, err := mint.ExtractArtifact(tx, inputID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			a.printf("wrote %d byte image from %s to %s\n", len(img), tx.TxHash(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&txHex, "tx", "", "Signed transaction hex")
	cmd.Flags().StringVar(&txFile, "tx-file", "", "File holding the signed transaction hex")
	cmd.Flags().StringVar(&inputID, "input", "", "Input to read as txid:vout (default: first commitment spend)")
	cmd.Flags().StringVarP(&out, "out", "o", "labitbu.webp", "Output image file")
	return cmd
}
