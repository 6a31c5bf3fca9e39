// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/chef/schedule"
	"github.com/vechain/farm/core"
)

// Pool is one staking pool. AccRewardPerShare is scaled by core.Scale.
type Pool struct {
	StakeToken        core.Address
	AllocPoint        uint64
	LastRewardBlock   uint32
	AccRewardPerShare *big.Int
	TotalStaked       *big.Int
}

// New returns an empty pool whose accrual starts at max(blockNum, startBlock).
func New(stakeToken core.Address, allocPoint uint64, blockNum, startBlock uint32) *Pool {
	return &Pool{
		StakeToken:        stakeToken,
		AllocPoint:        allocPoint,
		LastRewardBlock:   max(blockNum, startBlock),
		AccRewardPerShare: new(big.Int),
		TotalStaked:       new(big.Int),
	}
}

// Clone returns a deep copy.
func (p *Pool) Clone() *Pool {
	cpy := *p
	cpy.AccRewardPerShare = new(big.Int).Set(bigOrZero(p.AccRewardPerShare))
	cpy.TotalStaked = new(big.Int).Set(bigOrZero(p.TotalStaked))
	return &cpy
}

// Accrue projects the pool forward to blockNum and returns the advanced copy together with
// the reward emitted to the pool over the span. The receiver is not modified.
// Projecting to a block at or before LastRewardBlock is a no-op. An empty pool, or a registry
// with no weight, only moves the checkpoint.
func (p *Pool) Accrue(sched *schedule.Schedule, totalAllocPoint uint64, blockNum uint32) (*Pool, *big.Int, error) {
	next := p.Clone()
	if blockNum <= p.LastRewardBlock {
		return next, new(big.Int), nil
	}
	next.LastRewardBlock = blockNum
	if next.TotalStaked.Sign() == 0 || totalAllocPoint == 0 {
		return next, new(big.Int), nil
	}

	reward, err := core.MulDiv(
		sched.Reward(p.LastRewardBlock, blockNum),
		new(big.Int).SetUint64(p.AllocPoint),
		new(big.Int).SetUint64(totalAllocPoint),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "pool reward")
	}
	perShare, err := core.MulDiv(reward, core.Scale, next.TotalStaked)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reward per share")
	}
	next.AccRewardPerShare.Add(next.AccRewardPerShare, perShare)
	return next, reward, nil
}

// DevReward is the beneficiary surcharge minted on top of a pool reward.
func DevReward(poolReward *big.Int) *big.Int {
	return new(big.Int).Div(poolReward, big.NewInt(10))
}

func bigOrZero(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return b
}
