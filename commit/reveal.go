package commit

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"

	"github.com/stutxo/labitbu"
)

// RevealPayload returns the padded payload carried in a serialized control
// block, along with the parsed block.
func RevealPayload(controlBlock []byte) ([]byte, *txscript.ControlBlock, error) {
	cb, err := txscript.ParseControlBlock(controlBlock)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", labitbu.ErrSerialization, err)
	}
	payload := make([]byte, len(cb.InclusionProof))
	copy(payload, cb.InclusionProof)
	return payload, cb, nil
}

// IsCommitmentWitness reports whether a witness stack has the shape of a
// script-path spend of a commitment: signature, spend script, control block
// (an optional annex is not expected).
func IsCommitmentWitness(w [][]byte) bool {
	if len(w) != 3 {
		return false
	}
	if len(w[1]) != 34 || w[1][33] != txscript.OP_CHECKSIG {
		return false
	}
	cb := w[2]
	return len(cb) >= txscript.ControlBlockBaseSize &&
		(len(cb)-txscript.ControlBlockBaseSize)%txscript.ControlBlockNodeSize == 0
}
