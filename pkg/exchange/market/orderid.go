package market

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// OrderId is a collision-resistant digest of (marketId, tick, index).
// Collisions within one market are impossible by construction (tick and
// index together address a unique FIFO slot); distinct marketId values
// ensure uniqueness across markets.
type OrderId [32]byte

// NewOrderId computes OrderId = H(marketId, tick, index) the same way the
// signer package hashes arbitrary messages before signing: Keccak256 over a
// fixed-width encoding of the triple.
func NewOrderId(marketId MarketId, tick int64, index int) OrderId {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(marketId))
	binary.BigEndian.PutUint64(buf[8:16], uint64(tick))
	binary.BigEndian.PutUint64(buf[16:24], uint64(index))
	return OrderId(crypto.Keccak256Hash(buf[:]))
}

func (id OrderId) String() string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 2+len(id)*2)
	out[0], out[1] = '0', 'x'
	for i, b := range id {
		out[2+i*2] = hextable[b>>4]
		out[2+i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}
