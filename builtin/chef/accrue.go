// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chef

import (
	"math/big"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/chef/account"
	"github.com/vechain/farm/builtin/chef/pool"
	"github.com/vechain/farm/core"
)

// UpdatePool brings pool pid up to blockNum.
func (c *Chef) UpdatePool(blockNum uint32, pid uint64) error {
	return c.atomically("update_pool", func() error {
		_, err := c.updatePool(blockNum, pid)
		return err
	})
}

// MassUpdatePools brings every pool up to blockNum.
func (c *Chef) MassUpdatePools(blockNum uint32) error {
	return c.atomically("mass_update_pools", func() error {
		return c.massUpdatePools(blockNum)
	})
}

// PendingReward returns what user could harvest from pool pid at blockNum.
func (c *Chef) PendingReward(blockNum uint32, pid uint64, user core.Address) (*big.Int, error) {
	p, err := c.pools.Get(pid)
	if err != nil {
		return nil, err
	}
	projected, _, err := c.project(p, blockNum)
	if err != nil {
		return nil, err
	}
	acc, err := c.accounts.Get(pid, user)
	if err != nil {
		return nil, err
	}
	return acc.Pending(projected.AccRewardPerShare)
}

func (c *Chef) massUpdatePools(blockNum uint32) error {
	n, err := c.pools.Len()
	if err != nil {
		return err
	}
	for pid := range n {
		if _, err := c.updatePool(blockNum, pid); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chef) project(p *pool.Pool, blockNum uint32) (*pool.Pool, *big.Int, error) {
	sched, err := c.Schedule()
	if err != nil {
		return nil, nil, err
	}
	total, err := c.pools.TotalAllocPoint()
	if err != nil {
		return nil, nil, err
	}
	return p.Accrue(sched, total, blockNum)
}

// updatePool accrues pool pid to blockNum, minting the dev surcharge and then the pool
// reward into custody. It returns the updated pool.
func (c *Chef) updatePool(blockNum uint32, pid uint64) (*pool.Pool, error) {
	p, err := c.pools.Get(pid)
	if err != nil {
		return nil, err
	}
	next, reward, err := c.project(p, blockNum)
	if err != nil {
		return nil, errors.WithMessagef(err, "accrue pool %d", pid)
	}
	if next.LastRewardBlock == p.LastRewardBlock {
		return next, nil
	}

	if reward.Sign() > 0 {
		dev, err := c.dev.Get()
		if err != nil {
			return nil, err
		}
		if err := c.reward.Mint(c.addr, dev, pool.DevReward(reward)); err != nil {
			return nil, errors.WithMessage(err, "mint dev reward")
		}
		if err := c.reward.Mint(c.addr, c.addr, reward); err != nil {
			return nil, errors.WithMessage(err, "mint pool reward")
		}
		metricAccruals().AddWithLabel(1, map[string]string{"pool": strconv.FormatUint(pid, 10)})
	}

	if err := c.pools.Set(pid, next); err != nil {
		return nil, err
	}
	logger.Debug("pool accrued", "pid", pid, "block", blockNum, "reward", reward, "accRewardPerShare", next.AccRewardPerShare)
	return next, nil
}

// harvest pays out what acc has pending at the pool's current share.
func (c *Chef) harvest(pid uint64, user core.Address, acc *account.Account, p *pool.Pool) error {
	pending, err := acc.Pending(p.AccRewardPerShare)
	if err != nil {
		return errors.WithMessagef(err, "pending reward of %v in pool %d", user, pid)
	}
	if pending.Sign() == 0 {
		return nil
	}
	paid, err := c.safeRewardTransfer(user, pending)
	if err != nil {
		return err
	}
	c.emit(&Event{Kind: EventHarvest, Pool: pid, Account: user, Amount: paid})
	return nil
}

// safeRewardTransfer pays amount from custody, capped at what custody holds.
func (c *Chef) safeRewardTransfer(to core.Address, amount *big.Int) (*big.Int, error) {
	bal, err := c.reward.BalanceOf(c.addr)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(bal) > 0 {
		logger.Warn("reward transfer capped", "to", to, "amount", amount, "balance", bal)
		amount = bal
	}
	if err := c.reward.Transfer(c.addr, to, amount); err != nil {
		return nil, errors.WithMessage(err, "transfer reward")
	}
	return amount, nil
}
