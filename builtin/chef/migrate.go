// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chef

import (
	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/core"
)

// Migrator moves a pool's stake to a new token.
//
// Migrate is handed an allowance over custody's whole balance of oldToken. It must
// credit custody with exactly that balance of the returned token.
type Migrator interface {
	Address() core.Address
	Migrate(custody, oldToken core.Address) (core.Address, error)
}

// RegisterMigrator makes m callable once its address is set with SetMigrator.
func (c *Chef) RegisterMigrator(m Migrator) {
	c.migrators[m.Address()] = m
}

// Migrate swaps the stake token of pool pid through the migrator. Anyone may call it.
func (c *Chef) Migrate(pid uint64) error {
	logger.Debug("migrating pool", "pid", pid)

	var newToken core.Address
	err := c.atomically("migrate", func() error {
		addr, err := c.migrator.Get()
		if err != nil {
			return err
		}
		m, ok := c.migrators[addr]
		if addr.IsZero() || !ok {
			return reverts.New("migrate: no migrator")
		}
		p, err := c.pools.Get(pid)
		if err != nil {
			return err
		}

		oldTok, err := c.stakeToken(p.StakeToken)
		if err != nil {
			return err
		}
		bal, err := oldTok.BalanceOf(c.addr)
		if err != nil {
			return err
		}
		if err := oldTok.Approve(c.addr, addr, bal); err != nil {
			return err
		}

		newToken, err = m.Migrate(c.addr, p.StakeToken)
		if err != nil {
			if reverts.IsRevertErr(err) {
				return err
			}
			return errors.WithMessage(err, "migrator")
		}
		newTok, err := c.stakeToken(newToken)
		if err != nil {
			return err
		}
		newBal, err := newTok.BalanceOf(c.addr)
		if err != nil {
			return err
		}
		if bal.Cmp(newBal) != 0 {
			return reverts.New("migrate: bad")
		}

		if err := c.pools.Rebind(pid, p.StakeToken, newToken); err != nil {
			return err
		}
		p.StakeToken = newToken
		if err := c.pools.Set(pid, p); err != nil {
			return err
		}
		c.emit(&Event{Kind: EventMigrate, Pool: pid, Account: newToken, Amount: bal})
		return nil
	})
	if err != nil {
		logger.Info("migrate failed", "pid", pid, "error", err)
		return err
	}

	logger.Info("migrated pool", "pid", pid, "stakeToken", newToken)
	return nil
}
