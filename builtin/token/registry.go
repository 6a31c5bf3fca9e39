// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/state"
)

var (
	slotRegistered = nameToSlot("registered")
	slotTokenCount = nameToSlot("token-count")
	slotTokenIndex = nameToSlot("token-index")
)

type indexKey uint64

func (k indexKey) Bytes() []byte {
	return core.BytesToBytes32(core.Uint64Bytes(uint64(k))).Bytes()
}

// Registry records which addresses carry a token ledger.
type Registry struct {
	state      *state.State
	registered *solidity.Mapping[core.Address, bool]
	count      *solidity.Uint256
	index      *solidity.Mapping[indexKey, core.Address]
}

// NewRegistry binds the registry stored at addr.
func NewRegistry(addr core.Address, st *state.State) *Registry {
	sctx := solidity.NewContext(addr, st)
	return &Registry{
		state:      st,
		registered: solidity.NewMapping[core.Address, bool](sctx, slotRegistered),
		count:      solidity.NewUint256(sctx, slotTokenCount),
		index:      solidity.NewMapping[indexKey, core.Address](sctx, slotTokenIndex),
	}
}

// Register creates and initializes the token at addr.
func (r *Registry) Register(addr core.Address, owner core.Address, meta Meta) (*Token, error) {
	ok, err := r.registered.Get(addr)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, reverts.Newf(reverts.Failed, "token: %v already registered", addr)
	}

	tok := New(addr, r.state)
	if err := tok.Initialize(owner, meta); err != nil {
		return nil, err
	}

	n, err := r.count.Get()
	if err != nil {
		return nil, err
	}
	if err := r.index.Set(indexKey(n.Uint64()), addr); err != nil {
		return nil, err
	}
	if err := r.registered.Set(addr, true); err != nil {
		return nil, err
	}
	if err := r.count.Add(core.Big1); err != nil {
		return nil, err
	}
	logger.Info("token registered", "token", addr, "symbol", meta.Symbol)
	return tok, nil
}

// Lookup returns the token at addr, or false if none is registered there.
func (r *Registry) Lookup(addr core.Address) (*Token, bool, error) {
	ok, err := r.registered.Get(addr)
	if err != nil || !ok {
		return nil, false, err
	}
	return New(addr, r.state), true, nil
}

// All returns registered token addresses in registration order.
func (r *Registry) All() ([]core.Address, error) {
	n, err := r.count.Get()
	if err != nil {
		return nil, err
	}
	addrs := make([]core.Address, 0, n.Uint64())
	for i := range n.Uint64() {
		addr, err := r.index.Get(indexKey(i))
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
