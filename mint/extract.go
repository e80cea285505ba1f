package mint

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/stutxo/labitbu"
	"github.com/stutxo/labitbu/artgen"
	"github.com/stutxo/labitbu/commit"
)

// ErrNoCommitment is returned when no input spends a commitment.
var ErrNoCommitment = errors.New("no commitment spend in transaction")

// Revealed is the payload disclosed by one commitment spend.
type Revealed struct {
	Input   int
	Payload []byte // padded to a multiple of 32 bytes
	Image   []byte // nil when the payload holds no webp image
}

// ExtractArtifacts returns the payload of every input of tx that spends a
// commitment through its script path.
func ExtractArtifacts(tx *wire.MsgTx) ([]Revealed, error) {
	var out []Revealed
	for i, in := range tx.TxIn {
		if !commit.IsCommitmentWitness(in.Witness) {
			continue
		}
		payload, _, err := commit.RevealPayload(in.Witness[2])
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		r := Revealed{Input: i, Payload: payload}
		if img, err := artgen.ExtractWebP(payload); err == nil {
			r.Image = img
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrNoCommitment
	}
	return out, nil
}

// ExtractArtifact returns the image revealed by the input spending inputID
// ("txid:vout"), or by the first commitment input when inputID is empty.
// With no inputID and no commitment spend it falls back to ScanImage.
func ExtractArtifact(tx *wire.MsgTx, inputID string) ([]byte, error) {
	revealed, err := ExtractArtifacts(tx)
	if errors.Is(err, ErrNoCommitment) && inputID == "" {
		return ScanImage(tx)
	}
	if err != nil {
		return nil, err
	}
	want := revealed[0]
	if inputID != "" {
		idx, err := labitbu.FindInputIndex(tx, inputID)
		if err != nil {
			return nil, err
		}
		found := false
		for _, r := range revealed {
			if r.Input == idx {
				want, found = r, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: input %s", ErrNoCommitment, inputID)
		}
	}
	if want.Image == nil {
		return nil, fmt.Errorf("input %d: %w", want.Input, artgen.ErrNoWebP)
	}
	return want.Image, nil
}

// ScanImage looks for a WebP image in the joined witness data of all inputs,
// then anywhere in the serialized transaction.
func ScanImage(tx *wire.MsgTx) ([]byte, error) {
	var joined []byte
	for _, in := range tx.TxIn {
		for _, item := range in.Witness {
			joined = append(joined, item...)
		}
	}
	if img, err := artgen.ExtractWebP(joined); err == nil {
		return img, nil
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", labitbu.ErrSerialization, err)
	}
	img, err := artgen.ExtractWebP(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoCommitment, err)
	}
	return img, nil
}
