package mint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/stutxo/labitbu"
	"github.com/stutxo/labitbu/artgen"
	"github.com/stutxo/labitbu/commit"
)

// BIP-350 mainnet P2TR vector.
const destAddr = "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0"

type fixture struct {
	priv    *btcec.PrivateKey
	payload []byte
	commit  *commit.Commitment
	params  Params
}

func testPriv(tag string) *btcec.PrivateKey {
	seed := sha256.Sum256([]byte(tag))
	priv, _ := btcec.PrivKeyFromBytes(seed[:])
	return priv
}

// artifactPayload encodes a small opaque-on-clear sprite the way the
// generator does and returns the padded 4096-byte buffer.
func artifactPayload(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 24))
	for y := 4; y < 20; y++ {
		for x := 4; x < 20; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: 80, B: uint8(y * 10), A: 0xff})
		}
	}
	art, err := artgen.Encode(img)
	require.NoError(t, err)
	return art.Bytes[:]
}

func newFixture(t *testing.T, payload []byte, values ...int64) *fixture {
	t.Helper()
	priv := testPriv("labitbu mint")
	c, err := commit.Build(priv.PubKey(), payload)
	require.NoError(t, err)
	pk, err := c.PkScript()
	require.NoError(t, err)

	var total uint64
	p := Params{
		PubKey:      priv.PubKey(),
		Payload:     payload,
		Destination: destAddr,
	}
	for i, v := range values {
		h := chainhash.HashH([]byte{byte(i), 'f', 'u', 'n', 'd'})
		p.Inputs = append(p.Inputs, wire.NewTxIn(wire.NewOutPoint(&h, uint32(i)), nil, nil))
		p.PrevOuts = append(p.PrevOuts, wire.NewTxOut(v, pk))
		total += uint64(v)
	}
	p.Amount = total
	p.Fee = 1000
	return &fixture{priv: priv, payload: payload, commit: c, params: p}
}

func TestSpendExecutes(t *testing.T) {
	f := newFixture(t, artifactPayload(t), 50000, 30000)

	tx, err := Spend(f.params, f.priv)
	require.NoError(t, err)

	require.Equal(t, int32(2), tx.Version)
	require.Equal(t, uint32(0), tx.LockTime)
	require.Len(t, tx.TxOut, 1)
	require.Equal(t, int64(79000), tx.TxOut[0].Value)

	cb, err := f.commit.ControlBlockBytes()
	require.NoError(t, err)
	require.Len(t, cb, txscript.ControlBlockMaxSize)
	for i, in := range tx.TxIn {
		require.Len(t, in.Witness, 3, "input %d", i)
		require.Len(t, in.Witness[0], schnorr.SignatureSize)
		require.Equal(t, f.commit.Script, []byte(in.Witness[1]))
		require.Equal(t, cb, []byte(in.Witness[2]))
	}
	// Each input commits to its own index.
	require.NotEqual(t, tx.TxIn[0].Witness[0], tx.TxIn[1].Witness[0])

	// Independent re-verification with a fresh engine.
	prevOuts := map[wire.OutPoint]*wire.TxOut{}
	for i, in := range tx.TxIn {
		prevOuts[in.PreviousOutPoint] = f.params.PrevOuts[i]
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	hashes := txscript.NewTxSigHashes(tx, fetcher)
	for i := range tx.TxIn {
		prev := f.params.PrevOuts[i]
		vm, err := txscript.NewEngine(prev.PkScript, tx, i,
			txscript.StandardVerifyFlags, nil, hashes, prev.Value, fetcher)
		require.NoError(t, err)
		require.NoError(t, vm.Execute())
	}
}

func TestSpendWrongKey(t *testing.T) {
	f := newFixture(t, []byte("payload"), 10000)
	_, err := Spend(f.params, testPriv("someone else"))
	require.ErrorIs(t, err, labitbu.ErrInvalidKeyEncoding)

	_, err = Spend(f.params, nil)
	require.ErrorIs(t, err, labitbu.ErrInvalidKeyEncoding)
}

func TestSpendForeignPrevoutFailsVerification(t *testing.T) {
	f := newFixture(t, []byte("payload"), 10000)
	other, err := commit.Build(f.priv.PubKey(), []byte("different payload"))
	require.NoError(t, err)
	pk, err := other.PkScript()
	require.NoError(t, err)
	f.params.PrevOuts[0] = wire.NewTxOut(10000, pk)

	_, err = Spend(f.params, f.priv)
	require.ErrorIs(t, err, labitbu.ErrSerialization)
}

func TestSpendHexRoundTrip(t *testing.T) {
	f := newFixture(t, []byte("hello"), 20000)
	s, err := SpendHex(f.params, f.priv)
	require.NoError(t, err)
	tx, err := labitbu.ParseTxHex(s)
	require.NoError(t, err)
	require.Len(t, tx.TxIn[0].Witness, 3)
}

func TestMintPSBT(t *testing.T) {
	payload := artifactPayload(t)
	f := newFixture(t, payload, 60000, 7000, 3000)

	raw, err := MintPSBT(f.params)
	require.NoError(t, err)
	pkt, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	require.NoError(t, err)

	require.Len(t, pkt.UnsignedTx.TxIn, 3)
	require.Len(t, pkt.UnsignedTx.TxOut, 1)
	require.Equal(t, int64(69000), pkt.UnsignedTx.TxOut[0].Value)
	destScript, err := labitbu.PayToAddrScript(destAddr)
	require.NoError(t, err)
	require.Equal(t, destScript, pkt.UnsignedTx.TxOut[0].PkScript)

	cb, err := f.commit.ControlBlockBytes()
	require.NoError(t, err)
	for i, in := range pkt.Inputs {
		require.NotNil(t, in.WitnessUtxo, "input %d", i)
		require.Equal(t, f.params.PrevOuts[i].Value, in.WitnessUtxo.Value)
		require.Equal(t, schnorr.SerializePubKey(commit.InternalKey()), in.TaprootInternalKey)
		require.Len(t, in.TaprootLeafScript, 1)
		require.Equal(t, cb, in.TaprootLeafScript[0].ControlBlock)
		require.Equal(t, f.commit.Script, in.TaprootLeafScript[0].Script)
		require.Equal(t, txscript.BaseLeafVersion, in.TaprootLeafScript[0].LeafVersion)
		require.Equal(t, txscript.SigHashDefault, in.SighashType)
		require.Empty(t, pkt.UnsignedTx.TxIn[i].Witness)
	}

	// The signed spend is the same transaction.
	tx, err := Spend(f.params, f.priv)
	require.NoError(t, err)
	require.Equal(t, pkt.UnsignedTx.TxHash(), tx.TxHash())

	b64, err := MintPSBTBase64(f.params)
	require.NoError(t, err)
	pkt2, err := psbt.NewFromRawBytes(strings.NewReader(b64), true)
	require.NoError(t, err)
	require.Equal(t, pkt.UnsignedTx.TxHash(), pkt2.UnsignedTx.TxHash())
}

func TestMintFeeInvariant(t *testing.T) {
	for _, fee := range []uint64{0, 1, 999, 10000} {
		f := newFixture(t, nil, 10000)
		f.params.Fee = fee
		pkt, err := Mint(f.params)
		require.NoError(t, err)
		require.Equal(t, int64(10000-fee), pkt.UnsignedTx.TxOut[0].Value)
	}
}

func TestMintValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		want   error
	}{{
		name:   "fee exceeds amount",
		mutate: func(p *Params) { p.Fee = p.Amount + 1 },
		want:   labitbu.ErrArithmeticUnderflow,
	}, {
		name:   "amount overflows int64",
		mutate: func(p *Params) { p.Amount, p.Fee = math.MaxUint64, 0 },
		want:   labitbu.ErrSerialization,
	}, {
		name:   "length mismatch",
		mutate: func(p *Params) { p.PrevOuts = p.PrevOuts[:1] },
		want:   labitbu.ErrSerialization,
	}, {
		name:   "no inputs",
		mutate: func(p *Params) { p.Inputs, p.PrevOuts = nil, nil },
		want:   labitbu.ErrSerialization,
	}, {
		name:   "duplicate outpoint",
		mutate: func(p *Params) { p.Inputs[1] = p.Inputs[0] },
		want:   labitbu.ErrSerialization,
	}, {
		name:   "negative prevout value",
		mutate: func(p *Params) { p.PrevOuts[0].Value = -1 },
		want:   labitbu.ErrSerialization,
	}, {
		name:   "prevout above max supply",
		mutate: func(p *Params) { p.PrevOuts[1].Value = btcutil.MaxSatoshi + 1 },
		want:   labitbu.ErrSerialization,
	}, {
		name: "prevouts total overflows",
		mutate: func(p *Params) {
			p.PrevOuts[0].Value = btcutil.MaxSatoshi
			p.PrevOuts[1].Value = btcutil.MaxSatoshi
		},
		want: labitbu.ErrSerialization,
	}, {
		name:   "bad destination",
		mutate: func(p *Params) { p.Destination = "bc1qnotreal" },
		want:   labitbu.ErrAddressParse,
	}, {
		name:   "testnet destination",
		mutate: func(p *Params) { p.Destination = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx" },
		want:   labitbu.ErrAddressParse,
	}, {
		name:   "payload too deep",
		mutate: func(p *Params) { p.Payload = make([]byte, 4097) },
		want:   labitbu.ErrTreeCombine,
	}, {
		name:   "missing key",
		mutate: func(p *Params) { p.PubKey = nil },
		want:   labitbu.ErrInvalidKeyEncoding,
	}}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, []byte("x"), 5000, 6000)
			tc.mutate(&f.params)
			_, err := Mint(f.params)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMintStripsInputWitness(t *testing.T) {
	f := newFixture(t, nil, 5000)
	f.params.Inputs[0].Witness = wire.TxWitness{{0x01}}
	f.params.Inputs[0].Sequence = 0xfffffffd
	pkt, err := Mint(f.params)
	require.NoError(t, err)
	require.Empty(t, pkt.UnsignedTx.TxIn[0].Witness)
	require.Equal(t, uint32(0xfffffffd), pkt.UnsignedTx.TxIn[0].Sequence)
}

func TestRequestParams(t *testing.T) {
	f := newFixture(t, nil, 5000)
	pk := hex.EncodeToString(f.params.PrevOuts[0].PkScript)
	op := f.params.Inputs[0].PreviousOutPoint.String()
	pub := hex.EncodeToString(schnorr.SerializePubKey(f.priv.PubKey()))

	js := `{"pubkey":"` + pub + `","payload_hex":"6869","amount":5000,"fee":500,` +
		`"destination":"` + destAddr + `","inputs":[{"outpoint":"` + op +
		`","value":5000,"pkscript":"` + pk + `"}]}`
	req, err := DecodeRequest(strings.NewReader(js))
	require.NoError(t, err)
	p, err := req.Params(nil)
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), p.Payload)
	require.Equal(t, f.params.Inputs[0].PreviousOutPoint, p.Inputs[0].PreviousOutPoint)
	require.Equal(t, uint32(wire.MaxTxInSequenceNum), p.Inputs[0].Sequence)

	p, err = req.Params([]byte("override"))
	require.NoError(t, err)
	require.Equal(t, []byte("override"), p.Payload)

	_, err = DecodeRequest(strings.NewReader(`{"unknown":1}`))
	require.ErrorIs(t, err, labitbu.ErrSerialization)

	req.Inputs[0].Value = -5000
	_, err = req.Params(nil)
	require.ErrorIs(t, err, labitbu.ErrSerialization)
	req.Inputs[0].Value = 5000

	req.Inputs[0].Outpoint = "bad"
	_, err = req.Params(nil)
	require.ErrorIs(t, err, labitbu.ErrSerialization)
}
