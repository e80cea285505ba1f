package commit

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/slog"

	"github.com/stutxo/labitbu"
)

// ChunkSize is the width of one hidden node.
const ChunkSize = chainhash.HashSize

// MaxChunks is the deepest leaf a control block can prove.
const MaxChunks = txscript.ControlBlockMaxNodeCount

// PadPayload zero-pads payload to a multiple of ChunkSize. A payload already
// on a boundary is returned unchanged.
func PadPayload(payload []byte) []byte {
	n := len(payload)
	if rem := n % ChunkSize; rem != 0 {
		n += ChunkSize - rem
	}
	out := make([]byte, n)
	copy(out, payload)
	return out
}

// Chunks splits the padded payload into hidden node hashes.
func Chunks(payload []byte) []chainhash.Hash {
	padded := PadPayload(payload)
	out := make([]chainhash.Hash, len(padded)/ChunkSize)
	for i := range out {
		copy(out[i][:], padded[i*ChunkSize:])
	}
	return out
}

// hiddenNode is a tree node known only by its hash.
type hiddenNode chainhash.Hash

func (h hiddenNode) TapHash() chainhash.Hash { return chainhash.Hash(h) }
func (h hiddenNode) Left() txscript.TapNode  { return nil }
func (h hiddenNode) Right() txscript.TapNode { return nil }

// Commitment is a taproot output committing to a payload.
type Commitment struct {
	Script       []byte
	Leaf         txscript.TapLeaf
	InternalKey  *btcec.PublicKey
	OutputKey    *btcec.PublicKey
	RootHash     chainhash.Hash
	ControlBlock txscript.ControlBlock
	Chunks       int
}

// Build commits payload to pub's spend script. Starting from the script
// leaf, each chunk in order is paired with the running root as a hidden
// sibling. Payloads needing more than MaxChunks nodes fail with
// ErrTreeCombine.
func Build(pub *btcec.PublicKey, payload []byte) (*Commitment, error) {
	return BuildWithLog(pub, payload, slog.Disabled)
}

// BuildWithLog is Build with a logger for the fold.
func BuildWithLog(pub *btcec.PublicKey, payload []byte, log slog.Logger) (*Commitment, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", labitbu.ErrInvalidKeyEncoding)
	}
	script, err := SpendScript(pub)
	if err != nil {
		return nil, err
	}

	chunks := Chunks(payload)
	if len(chunks) > MaxChunks {
		return nil, fmt.Errorf("%w: %d hidden nodes exceeds depth %d",
			labitbu.ErrTreeCombine, len(chunks), MaxChunks)
	}

	leaf := txscript.NewBaseTapLeaf(script)
	var node txscript.TapNode = leaf
	proof := make([]byte, 0, len(chunks)*ChunkSize)
	for _, c := range chunks {
		node = hiddenNode(txscript.NewTapBranch(node, hiddenNode(c)).TapHash())
		proof = append(proof, c[:]...)
	}
	root := node.TapHash()

	internal := InternalKey()
	outputKey := txscript.ComputeTaprootOutputKey(internal, root[:])
	c := &Commitment{
		Script:      script,
		Leaf:        leaf,
		InternalKey: internal,
		OutputKey:   outputKey,
		RootHash:    root,
		ControlBlock: txscript.ControlBlock{
			InternalKey:     internal,
			OutputKeyYIsOdd: outputKey.SerializeCompressed()[0] == secp256k1.PubKeyFormatCompressedOdd,
			LeafVersion:     txscript.BaseLeafVersion,
			InclusionProof:  proof,
		},
		Chunks: len(chunks),
	}
	log.Debugf("Committed %d bytes in %d hidden nodes, root %s", len(payload), len(chunks), root)
	return c, nil
}

// WitnessProgram is the 32-byte x-only output key.
func (c *Commitment) WitnessProgram() []byte {
	return schnorr.SerializePubKey(c.OutputKey)
}

// PkScript is the P2TR output script paying to the commitment.
func (c *Commitment) PkScript() ([]byte, error) {
	pk, err := txscript.PayToTaprootScript(c.OutputKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", labitbu.ErrSerialization, err)
	}
	return pk, nil
}

// ControlBlockBytes serializes the control block for the spend script.
func (c *Commitment) ControlBlockBytes() ([]byte, error) {
	b, err := c.ControlBlock.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: control block: %v", labitbu.ErrSerialization, err)
	}
	return b, nil
}

// Verify checks that the control block and script open the output key.
func (c *Commitment) Verify() error {
	return txscript.VerifyTaprootLeafCommitment(&c.ControlBlock, c.WitnessProgram(), c.Script)
}
