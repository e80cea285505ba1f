package labitbu

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	// DomainTag seeds the NUMS internal key search.
	DomainTag = "Labitbu"

	// ArtifactSize is the fixed length of an encoded artifact buffer. The
	// encoded image must be strictly shorter.
	ArtifactSize = 4096
)

// NetParams is the single network addresses are encoded for and decoded
// against.
var NetParams = &chaincfg.MainNetParams

// ParseXOnlyPubKey parses a 64 char hex x-only public key and checks that it
// is a point on the curve.
func ParseXOnlyPubKey(pubHex string) (*btcec.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(pubHex))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	if len(b) != schnorr.PubKeyBytesLen {
		return nil, fmt.Errorf("%w: need %d-byte x-only pubkey, got %d",
			ErrInvalidKeyEncoding, schnorr.PubKeyBytesLen, len(b))
	}
	pub, err := schnorr.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyEncoding, err)
	}
	return pub, nil
}

// ParsePrivKey parses a 32-byte hex private key.
func ParsePrivKey(privHex string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(privHex))
	if err != nil {
		return nil, fmt.Errorf("%w: bad privkey hex: %v", ErrInvalidKeyEncoding, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: privkey must be 32 bytes", ErrInvalidKeyEncoding)
	}
	var x btcec.ModNScalar
	if overflow := x.SetByteSlice(b); overflow || x.IsZero() {
		return nil, fmt.Errorf("%w: invalid private key scalar", ErrInvalidKeyEncoding)
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}

// ParseOutPoint parses an input id of the form "txid:vout".
func ParseOutPoint(inputID string) (wire.OutPoint, error) {
	parts := strings.Split(strings.TrimSpace(inputID), ":")
	if len(parts) != 2 {
		return wire.OutPoint{}, fmt.Errorf("%w: bad input_id %q: want txid:vout",
			ErrSerialization, inputID)
	}
	voutU64, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return wire.OutPoint{}, fmt.Errorf("%w: bad input_id %q: %v",
			ErrSerialization, inputID, err)
	}
	var h chainhash.Hash
	if err := chainhash.Decode(&h, parts[0]); err != nil {
		return wire.OutPoint{}, fmt.Errorf("%w: bad txid %q: %v",
			ErrSerialization, parts[0], err)
	}
	return wire.OutPoint{Hash: h, Index: uint32(voutU64)}, nil
}

// FindInputIndex returns the position of the input spending inputID.
func FindInputIndex(tx *wire.MsgTx, inputID string) (int, error) {
	op, err := ParseOutPoint(inputID)
	if err != nil {
		return -1, err
	}

	matchCount := 0
	matchIdx := -1
	for i, ti := range tx.TxIn {
		if ti.PreviousOutPoint == op {
			matchCount++
			matchIdx = i
		}
	}
	if matchCount == 0 {
		return -1, fmt.Errorf("input %s not found in tx", inputID)
	}
	if matchCount > 1 {
		return -1, fmt.Errorf("input %s matches %d inputs in tx (ambiguous)", inputID, matchCount)
	}
	return matchIdx, nil
}

// PayToAddrScript decodes a destination address on NetParams and returns its
// output script.
func PayToAddrScript(addr string) ([]byte, error) {
	a, err := btcutil.DecodeAddress(strings.TrimSpace(addr), NetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAddressParse, err)
	}
	if !a.IsForNet(NetParams) {
		return nil, fmt.Errorf("%w: address %s is not for %s",
			ErrAddressParse, addr, NetParams.Name)
	}
	pkScript, err := txscript.PayToAddrScript(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAddressParse, err)
	}
	return pkScript, nil
}

// TxHex serializes tx including witness data.
func TxHex(tx *wire.MsgTx) (string, error) {
	var out bytes.Buffer
	if err := tx.Serialize(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return hex.EncodeToString(out.Bytes()), nil
}

// ParseTxHex decodes a serialized transaction.
func ParseTxHex(txHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(txHex))
	if err != nil {
		return nil, fmt.Errorf("%w: decode tx hex: %v", ErrSerialization, err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%w: deserialize tx: %v", ErrSerialization, err)
	}
	return &tx, nil
}
