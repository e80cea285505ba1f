// Package mint assembles transactions that spend labitbu commitments: an
// unsigned PSBT for external signers and a directly signed script-path
// spend.
package mint

import (
	"bytes"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/slog"

	"github.com/stutxo/labitbu"
	"github.com/stutxo/labitbu/commit"
)

const txVersion = 2

// Params describes a mint. Inputs and PrevOuts are parallel: PrevOuts[i] is
// the output spent by Inputs[i].
type Params struct {
	PubKey      *btcec.PublicKey
	Payload     []byte
	Amount      uint64
	Fee         uint64
	Destination string
	Inputs      []*wire.TxIn
	PrevOuts    []*wire.TxOut

	Log slog.Logger
}

func (p *Params) log() slog.Logger {
	if p.Log == nil {
		return slog.Disabled
	}
	return p.Log
}

// validate checks everything that does not depend on the commitment and
// returns the destination script and output value.
func (p *Params) validate() ([]byte, int64, error) {
	if p.PubKey == nil {
		return nil, 0, fmt.Errorf("%w: missing public key", labitbu.ErrInvalidKeyEncoding)
	}
	if len(p.Inputs) == 0 {
		return nil, 0, fmt.Errorf("%w: no inputs", labitbu.ErrSerialization)
	}
	if len(p.Inputs) != len(p.PrevOuts) {
		return nil, 0, fmt.Errorf("%w: %d inputs but %d prevouts",
			labitbu.ErrSerialization, len(p.Inputs), len(p.PrevOuts))
	}
	seen := make(map[wire.OutPoint]struct{}, len(p.Inputs))
	for i, in := range p.Inputs {
		if in == nil || p.PrevOuts[i] == nil {
			return nil, 0, fmt.Errorf("%w: nil input or prevout at %d", labitbu.ErrSerialization, i)
		}
		if _, dup := seen[in.PreviousOutPoint]; dup {
			return nil, 0, fmt.Errorf("%w: outpoint %s spent twice",
				labitbu.ErrSerialization, in.PreviousOutPoint)
		}
		seen[in.PreviousOutPoint] = struct{}{}
	}
	var total int64
	for i, prev := range p.PrevOuts {
		if prev.Value < 0 || prev.Value > btcutil.MaxSatoshi {
			return nil, 0, fmt.Errorf("%w: prevout %d value %d out of range",
				labitbu.ErrSerialization, i, prev.Value)
		}
		total += prev.Value
		if total > btcutil.MaxSatoshi {
			return nil, 0, fmt.Errorf("%w: prevouts total exceeds %d sats",
				labitbu.ErrSerialization, int64(btcutil.MaxSatoshi))
		}
	}

	if p.Fee > p.Amount {
		return nil, 0, fmt.Errorf("%w: fee %d exceeds amount %d",
			labitbu.ErrArithmeticUnderflow, p.Fee, p.Amount)
	}
	value := p.Amount - p.Fee
	if value > math.MaxInt64 {
		return nil, 0, fmt.Errorf("%w: output value %d overflows int64",
			labitbu.ErrSerialization, value)
	}

	pkScript, err := labitbu.PayToAddrScript(p.Destination)
	if err != nil {
		return nil, 0, err
	}
	return pkScript, int64(value), nil
}

// unsignedTx builds the version 2, locktime 0 transaction with the given
// inputs stripped of any signature data and a single output.
func unsignedTx(p *Params, pkScript []byte, value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(txVersion)
	tx.LockTime = 0
	for _, in := range p.Inputs {
		op := in.PreviousOutPoint
		txIn := wire.NewTxIn(&op, nil, nil)
		txIn.Sequence = in.Sequence
		tx.AddTxIn(txIn)
	}
	tx.AddTxOut(wire.NewTxOut(value, pkScript))
	return tx
}

func prepare(p *Params) (*wire.MsgTx, *commit.Commitment, error) {
	pkScript, value, err := p.validate()
	if err != nil {
		return nil, nil, err
	}
	c, err := commit.BuildWithLog(p.PubKey, p.Payload, p.log())
	if err != nil {
		return nil, nil, err
	}

	var total int64
	for _, prev := range p.PrevOuts {
		total += prev.Value
	}
	// Totals are bounded by validate.
	if total < value {
		p.log().Warnf("Inputs carry %d sats but output pays %d", total, value)
	}
	return unsignedTx(p, pkScript, value), c, nil
}

// Mint returns a PSBT whose inputs each carry the witness UTXO, the NUMS
// internal key, the commitment's leaf script with control block and a
// SIGHASH_DEFAULT type, ready for an external signer.
func Mint(p Params) (*psbt.Packet, error) {
	tx, c, err := prepare(&p)
	if err != nil {
		return nil, err
	}
	cb, err := c.ControlBlockBytes()
	if err != nil {
		return nil, err
	}

	pkt, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, fmt.Errorf("%w: psbt: %v", labitbu.ErrSerialization, err)
	}
	u, err := psbt.NewUpdater(pkt)
	if err != nil {
		return nil, fmt.Errorf("%w: psbt updater: %v", labitbu.ErrSerialization, err)
	}
	internal := schnorr.SerializePubKey(c.InternalKey)
	for i, prev := range p.PrevOuts {
		if err := u.AddInWitnessUtxo(prev, i); err != nil {
			return nil, fmt.Errorf("%w: input %d witness utxo: %v", labitbu.ErrSerialization, i, err)
		}
		pkt.Inputs[i].TaprootInternalKey = internal
		pkt.Inputs[i].TaprootLeafScript = []*psbt.TaprootTapLeafScript{{
			ControlBlock: cb,
			Script:       c.Script,
			LeafVersion:  c.Leaf.LeafVersion,
		}}
		if err := u.AddInSighashType(txscript.SigHashDefault, i); err != nil {
			return nil, fmt.Errorf("%w: input %d sighash: %v", labitbu.ErrSerialization, i, err)
		}
	}

	p.log().Debugf("Built mint PSBT %s with %d inputs, %d hidden nodes",
		tx.TxHash(), len(tx.TxIn), c.Chunks)
	return pkt, nil
}

// MintPSBT is Mint serialized to the binary PSBT format.
func MintPSBT(p Params) ([]byte, error) {
	pkt, err := Mint(p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pkt.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("%w: psbt serialize: %v", labitbu.ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

// MintPSBTBase64 is Mint serialized as base64 text.
func MintPSBTBase64(p Params) (string, error) {
	pkt, err := Mint(p)
	if err != nil {
		return "", err
	}
	s, err := pkt.B64Encode()
	if err != nil {
		return "", fmt.Errorf("%w: psbt encode: %v", labitbu.ErrSerialization, err)
	}
	return s, nil
}
