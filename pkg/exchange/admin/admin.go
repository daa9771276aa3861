// Package admin abstracts authentication of the administrator who creates
// and resolves markets, separate from the per-order maker==caller cancel
// check the engine performs inline.
package admin

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/outcomex/clob/pkg/exchange/market"
)

// Authority fails with market.ErrUnauthorized if caller lacks create/resolve
// privilege.
type Authority interface {
	RequireAdmin(caller common.Address) error
}

// AddressList is a reference Authority backed by a static allowlist of
// addresses, the way the teacher's Signer derives an address once at
// startup and compares against it on every privileged call.
type AddressList struct {
	allowed map[common.Address]struct{}
}

// NewAddressList builds an allowlist from the given admin addresses.
func NewAddressList(addrs ...common.Address) *AddressList {
	allowed := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		allowed[a] = struct{}{}
	}
	return &AddressList{allowed: allowed}
}

// RequireAdmin implements Authority.
func (a *AddressList) RequireAdmin(caller common.Address) error {
	if _, ok := a.allowed[caller]; !ok {
		return market.ErrUnauthorized
	}
	return nil
}
