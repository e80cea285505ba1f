package mint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/stutxo/labitbu"
)

// Request is the JSON form of Params read by the command line tool.
type Request struct {
	PubKey      string         `json:"pubkey"`
	PayloadHex  string         `json:"payload_hex,omitempty"`
	Amount      uint64         `json:"amount"`
	Fee         uint64         `json:"fee"`
	Destination string         `json:"destination"`
	Inputs      []RequestInput `json:"inputs"`
}

// RequestInput is one spent outpoint ("txid:vout") with the output it
// spends.
type RequestInput struct {
	Outpoint    string  `json:"outpoint"`
	Sequence    *uint32 `json:"sequence,omitempty"`
	Value       int64   `json:"value"`
	PkScriptHex string  `json:"pkscript"`
}

// DecodeRequest reads a JSON Request from r.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: decode request: %v", labitbu.ErrSerialization, err)
	}
	return &req, nil
}

// Params converts the request. payload, when non-nil, overrides PayloadHex.
func (r *Request) Params(payload []byte) (Params, error) {
	var p Params
	if r.PubKey != "" {
		pub, err := labitbu.ParseXOnlyPubKey(r.PubKey)
		if err != nil {
			return p, err
		}
		p.PubKey = pub
	}

	p.Payload = payload
	if p.Payload == nil && r.PayloadHex != "" {
		b, err := hex.DecodeString(r.PayloadHex)
		if err != nil {
			return p, fmt.Errorf("%w: payload hex: %v", labitbu.ErrSerialization, err)
		}
		p.Payload = b
	}

	p.Amount = r.Amount
	p.Fee = r.Fee
	p.Destination = r.Destination
	for i, in := range r.Inputs {
		op, err := labitbu.ParseOutPoint(in.Outpoint)
		if err != nil {
			return p, fmt.Errorf("input %d: %w", i, err)
		}
		if in.Value < 0 || in.Value > btcutil.MaxSatoshi {
			return p, fmt.Errorf("%w: input %d value %d out of range",
				labitbu.ErrSerialization, i, in.Value)
		}
		pkScript, err := hex.DecodeString(in.PkScriptHex)
		if err != nil {
			return p, fmt.Errorf("%w: input %d pkscript: %v", labitbu.ErrSerialization, i, err)
		}
		txIn := wire.NewTxIn(&op, nil, nil)
		if in.Sequence != nil {
			txIn.Sequence = *in.Sequence
		}
		p.Inputs = append(p.Inputs, txIn)
		p.PrevOuts = append(p.PrevOuts, wire.NewTxOut(in.Value, pkScript))
	}
	return p, nil
}
