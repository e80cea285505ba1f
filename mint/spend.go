package mint

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/stutxo/labitbu"
)

// Spend builds the same transaction as Mint and signs every input through
// the commitment's script path with priv. Each input signs its own BIP-342
// sighash over all prevouts and gets the witness [sig, script, control
// block]. The signed transaction is executed through the script engine
// before it is returned.
func Spend(p Params, priv *btcec.PrivateKey) (*wire.MsgTx, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: missing private key", labitbu.ErrInvalidKeyEncoding)
	}
	if p.PubKey == nil {
		p.PubKey = priv.PubKey()
	}
	if !sameXOnly(p.PubKey, priv.PubKey()) {
		return nil, fmt.Errorf("%w: private key does not match public key",
			labitbu.ErrInvalidKeyEncoding)
	}

	tx, c, err := prepare(&p)
	if err != nil {
		return nil, err
	}
	cb, err := c.ControlBlockBytes()
	if err != nil {
		return nil, err
	}

	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(p.PrevOuts))
	for i, in := range tx.TxIn {
		prevOuts[in.PreviousOutPoint] = p.PrevOuts[i]
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i := range tx.TxIn {
		prev := p.PrevOuts[i]
		sig, err := txscript.RawTxInTapscriptSignature(tx, sigHashes, i,
			prev.Value, prev.PkScript, c.Leaf, txscript.SigHashDefault, priv)
		if err != nil {
			return nil, fmt.Errorf("%w: sign input %d: %v", labitbu.ErrSerialization, i, err)
		}
		tx.TxIn[i].Witness = wire.TxWitness{sig, c.Script, cb}
	}

	// Local VM verification of every input.
	for i := range tx.TxIn {
		prev := p.PrevOuts[i]
		vm, err := txscript.NewEngine(prev.PkScript, tx, i,
			txscript.StandardVerifyFlags, nil, sigHashes, prev.Value, fetcher)
		if err != nil {
			return nil, fmt.Errorf("%w: engine init input %d: %v", labitbu.ErrSerialization, i, err)
		}
		if err := vm.Execute(); err != nil {
			return nil, fmt.Errorf("%w: local VM verify failed for input %d: %v",
				labitbu.ErrSerialization, i, err)
		}
	}

	p.log().Infof("Signed spend %s of %d inputs", tx.TxHash(), len(tx.TxIn))
	return tx, nil
}

// SpendHex is Spend serialized to hex.
func SpendHex(p Params, priv *btcec.PrivateKey) (string, error) {
	tx, err := Spend(p, priv)
	if err != nil {
		return "", err
	}
	return labitbu.TxHex(tx)
}

func sameXOnly(a, b *btcec.PublicKey) bool {
	ac, bc := a.SerializeCompressed(), b.SerializeCompressed()
	for i := 1; i < len(ac); i++ {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}
