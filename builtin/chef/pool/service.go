// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/core"
)

var (
	slotPools           = core.BytesToBytes32([]byte("pools"))
	slotPoolCount       = core.BytesToBytes32([]byte("pool-count"))
	slotTotalAllocPoint = core.BytesToBytes32([]byte("total-alloc-point"))
	slotTokenPools      = core.BytesToBytes32([]byte("token-pools"))
)

// ID is the index of a pool in registration order.
type ID uint64

func (id ID) Bytes() []byte {
	return core.BytesToBytes32(core.Uint64Bytes(uint64(id))).Bytes()
}

// Service manages the append-only list of pools and the registry-wide weight.
type Service struct {
	pools           *solidity.Mapping[ID, *Pool]
	count           *solidity.Uint256
	totalAllocPoint *solidity.Uint256
	// stake token to pid+1, zero means no pool
	tokenPools *solidity.Mapping[core.Address, uint64]
}

func NewService(sctx *solidity.Context) *Service {
	return &Service{
		pools:           solidity.NewMapping[ID, *Pool](sctx, slotPools),
		count:           solidity.NewUint256(sctx, slotPoolCount),
		totalAllocPoint: solidity.NewUint256(sctx, slotTotalAllocPoint),
		tokenPools:      solidity.NewMapping[core.Address, uint64](sctx, slotTokenPools),
	}
}

// Len returns the number of pools.
func (s *Service) Len() (uint64, error) {
	n, err := s.count.Get()
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// Get returns the pool at pid, or an InvalidPool revert if there is none.
func (s *Service) Get(pid uint64) (*Pool, error) {
	n, err := s.Len()
	if err != nil {
		return nil, err
	}
	if pid >= n {
		return nil, reverts.Newf(reverts.InvalidPool, "pool %d does not exist", pid)
	}
	p, err := s.pools.Get(ID(pid))
	if err != nil {
		return nil, errors.WithMessagef(err, "get pool %d", pid)
	}
	return p, nil
}

// Set overwrites the pool at pid.
func (s *Service) Set(pid uint64, p *Pool) error {
	return s.pools.Set(ID(pid), p)
}

// Append adds a pool and returns its pid. Each stake token may back at most one pool.
func (s *Service) Append(p *Pool) (uint64, error) {
	if _, ok, err := s.Lookup(p.StakeToken); err != nil {
		return 0, err
	} else if ok {
		return 0, reverts.Newf(reverts.InvalidPool, "stake token %v already has a pool", p.StakeToken)
	}

	pid, err := s.Len()
	if err != nil {
		return 0, err
	}
	if err := s.pools.Set(ID(pid), p); err != nil {
		return 0, err
	}
	if err := s.tokenPools.Set(p.StakeToken, pid+1); err != nil {
		return 0, err
	}
	if err := s.count.Add(core.Big1); err != nil {
		return 0, err
	}
	return pid, nil
}

// Lookup returns the pid backed by stakeToken.
func (s *Service) Lookup(stakeToken core.Address) (uint64, bool, error) {
	v, err := s.tokenPools.Get(stakeToken)
	if err != nil || v == 0 {
		return 0, false, err
	}
	return v - 1, true, nil
}

// Rebind moves the pid from the old stake token to a new one.
func (s *Service) Rebind(pid uint64, from, to core.Address) error {
	if _, ok, err := s.Lookup(to); err != nil {
		return err
	} else if ok {
		return reverts.Newf(reverts.InvalidPool, "stake token %v already has a pool", to)
	}
	s.tokenPools.Delete(from)
	return s.tokenPools.Set(to, pid+1)
}

func (s *Service) TotalAllocPoint() (uint64, error) {
	v, err := s.totalAllocPoint.Get()
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// Reweight replaces a pool weight of from by to in the registry total.
// A total beyond uint64 reverts.
func (s *Service) Reweight(from, to uint64) error {
	total, err := s.TotalAllocPoint()
	if err != nil {
		return err
	}
	if from > total {
		return errors.Errorf("total alloc point %d below pool weight %d", total, from)
	}
	next, carry := bits.Add64(total-from, to, 0)
	if carry != 0 {
		return reverts.New("chef: total alloc point overflow")
	}
	s.totalAllocPoint.Set(new(big.Int).SetUint64(next))
	return nil
}
