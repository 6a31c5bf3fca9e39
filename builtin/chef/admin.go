// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chef

import (
	"math/big"

	"github.com/vechain/farm/builtin/chef/pool"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/core"
)

// Add registers a pool for stakeToken with weight allocPoint and returns its pid.
// Only the owner may add. With withUpdate all pools are accrued first, so the
// weight change does not apply retroactively.
func (c *Chef) Add(blockNum uint32, caller core.Address, allocPoint uint64, stakeToken core.Address, withUpdate bool) (uint64, error) {
	logger.Debug("adding pool", "block", blockNum, "stakeToken", stakeToken, "allocPoint", allocPoint, "withUpdate", withUpdate)

	var pid uint64
	err := c.atomically("add", func() error {
		if err := c.onlyOwner(caller); err != nil {
			return err
		}
		if stakeToken == c.reward.Address() {
			return reverts.NewInvalidPool("chef: reward token cannot be staked")
		}
		if _, err := c.stakeToken(stakeToken); err != nil {
			return err
		}
		if withUpdate {
			if err := c.massUpdatePools(blockNum); err != nil {
				return err
			}
		}
		sched, err := c.Schedule()
		if err != nil {
			return err
		}

		pid, err = c.pools.Append(pool.New(stakeToken, allocPoint, blockNum, sched.StartBlock))
		if err != nil {
			return err
		}
		if err := c.pools.Reweight(0, allocPoint); err != nil {
			return err
		}
		metricPools().Set(int64(pid) + 1)
		c.emit(&Event{Kind: EventAddPool, Pool: pid, Account: stakeToken, Amount: new(big.Int).SetUint64(allocPoint)})
		return nil
	})
	if err != nil {
		logger.Info("add pool failed", "stakeToken", stakeToken, "error", err)
		return 0, err
	}

	logger.Info("added pool", "pid", pid, "stakeToken", stakeToken, "allocPoint", allocPoint)
	return pid, nil
}

// Set changes the weight of pool pid. Only the owner may set.
func (c *Chef) Set(blockNum uint32, caller core.Address, pid uint64, allocPoint uint64, withUpdate bool) error {
	logger.Debug("setting pool", "block", blockNum, "pid", pid, "allocPoint", allocPoint, "withUpdate", withUpdate)

	err := c.atomically("set", func() error {
		if err := c.onlyOwner(caller); err != nil {
			return err
		}
		if _, err := c.pools.Get(pid); err != nil {
			return err
		}
		if withUpdate {
			if err := c.massUpdatePools(blockNum); err != nil {
				return err
			}
		}
		// reload, the mass update may have moved it
		p, err := c.pools.Get(pid)
		if err != nil {
			return err
		}
		if err := c.pools.Reweight(p.AllocPoint, allocPoint); err != nil {
			return err
		}
		p.AllocPoint = allocPoint
		if err := c.pools.Set(pid, p); err != nil {
			return err
		}
		c.emit(&Event{Kind: EventSetPool, Pool: pid, Amount: new(big.Int).SetUint64(allocPoint)})
		return nil
	})
	if err != nil {
		logger.Info("set pool failed", "pid", pid, "error", err)
		return err
	}

	logger.Info("set pool", "pid", pid, "allocPoint", allocPoint)
	return nil
}

// SetDev hands the beneficiary role to newDev. Only the current dev may do so.
func (c *Chef) SetDev(caller, newDev core.Address) error {
	logger.Debug("setting dev", "caller", caller, "newDev", newDev)

	err := c.atomically("set_dev", func() error {
		dev, err := c.dev.Get()
		if err != nil {
			return err
		}
		if caller != dev {
			return reverts.NewUnauthorized("dev: wut?")
		}
		c.dev.Set(newDev)
		c.emit(&Event{Kind: EventSetDev, Account: newDev})
		return nil
	})
	if err != nil {
		logger.Info("set dev failed", "caller", caller, "error", err)
		return err
	}

	logger.Info("set dev", "dev", newDev)
	return nil
}

// SetMigrator sets the migrator used by Migrate. Only the owner may set it.
func (c *Chef) SetMigrator(caller, migrator core.Address) error {
	logger.Debug("setting migrator", "caller", caller, "migrator", migrator)

	err := c.atomically("set_migrator", func() error {
		if err := c.onlyOwner(caller); err != nil {
			return err
		}
		c.migrator.Set(migrator)
		return nil
	})
	if err != nil {
		logger.Info("set migrator failed", "caller", caller, "error", err)
		return err
	}

	logger.Info("set migrator", "migrator", migrator)
	return nil
}
