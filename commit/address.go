package commit

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/stutxo/labitbu"
)

// Address returns the bech32m P2TR address of the commitment.
func (c *Commitment) Address() (string, error) {
	addr, err := btcutil.NewAddressTaproot(c.WitnessProgram(), labitbu.NetParams)
	if err != nil {
		return "", fmt.Errorf("%w: %v", labitbu.ErrSerialization, err)
	}
	return addr.EncodeAddress(), nil
}

// DepositAddress parses a hex x-only key and returns the address committing
// to payload.
func DepositAddress(pubHex string, payload []byte) (string, error) {
	pub, err := labitbu.ParseXOnlyPubKey(pubHex)
	if err != nil {
		return "", err
	}
	c, err := Build(pub, payload)
	if err != nil {
		return "", err
	}
	return c.Address()
}
