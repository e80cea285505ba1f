// Package commit builds the taproot output that hides a payload as a chain of
// hidden nodes next to a single-key spend script.
package commit

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"

	"github.com/stutxo/labitbu"
)

// SpendScript returns <x-only pub> OP_CHECKSIG.
func SpendScript(pub *btcec.PublicKey) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	b.AddData(schnorr.SerializePubKey(pub))
	b.AddOp(txscript.OP_CHECKSIG)
	s, err := b.Script()
	if err != nil {
		return nil, fmt.Errorf("%w: build spend script: %v", labitbu.ErrSerialization, err)
	}
	return s, nil
}
