package watch

import (
	"encoding/hex"
	"fmt"

	"github.com/stutxo/labitbu/mint"
)

// Request turns the funded UTXOs into a mint request spending all of them
// to dest. Amount is the UTXO total.
func (u DepositUpdate) Request(pubHex string, fee uint64, dest string) mint.Request {
	req := mint.Request{
		PubKey:      pubHex,
		Amount:      uint64(u.Total()),
		Fee:         fee,
		Destination: dest,
	}
	for _, o := range u.UTXOs {
		req.Inputs = append(req.Inputs, mint.RequestInput{
			Outpoint:    fmt.Sprintf("%s:%d", o.OutPoint.Hash, o.OutPoint.Index),
			Value:       o.Value,
			PkScriptHex: hex.EncodeToString(o.PkScript),
		})
	}
	return req
}
