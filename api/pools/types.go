// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pools

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/farm/builtin/chef/account"
	"github.com/vechain/farm/builtin/chef/pool"
	"github.com/vechain/farm/builtin/chef/schedule"
	"github.com/vechain/farm/core"
)

type Chef struct {
	Address         core.Address          `json:"address"`
	RewardToken     core.Address          `json:"rewardToken"`
	Owner           core.Address          `json:"owner"`
	Dev             core.Address          `json:"dev"`
	Migrator        *core.Address         `json:"migrator"`
	RewardPerBlock  *math.HexOrDecimal256 `json:"rewardPerBlock"`
	StartBlock      uint32                `json:"startBlock"`
	BonusEndBlock   uint32                `json:"bonusEndBlock"`
	BonusMultiplier uint64                `json:"bonusMultiplier"`
	TotalAllocPoint uint64                `json:"totalAllocPoint"`
	PoolLength      uint64                `json:"poolLength"`
	Head            uint32                `json:"head"`
}

type Pool struct {
	ID                uint64                `json:"id"`
	StakeToken        core.Address          `json:"stakeToken"`
	AllocPoint        uint64                `json:"allocPoint"`
	LastRewardBlock   uint32                `json:"lastRewardBlock"`
	AccRewardPerShare *math.HexOrDecimal256 `json:"accRewardPerShare"`
	TotalStaked       *math.HexOrDecimal256 `json:"totalStaked"`
}

type Account struct {
	Pool       uint64                `json:"pool"`
	Address    core.Address          `json:"address"`
	Amount     *math.HexOrDecimal256 `json:"amount"`
	RewardDebt *math.HexOrDecimal256 `json:"rewardDebt"`
	Pending    *math.HexOrDecimal256 `json:"pending"`
	Block      uint32                `json:"block"`
}

func hex(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		v = new(big.Int)
	}
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}

func convertChef(addr, reward, owner, dev, migrator core.Address, sched *schedule.Schedule, total, length uint64, head uint32) *Chef {
	c := &Chef{
		Address:         addr,
		RewardToken:     reward,
		Owner:           owner,
		Dev:             dev,
		RewardPerBlock:  hex(sched.RewardPerBlock),
		StartBlock:      sched.StartBlock,
		BonusEndBlock:   sched.BonusEndBlock,
		BonusMultiplier: sched.BonusMultiplier,
		TotalAllocPoint: total,
		PoolLength:      length,
		Head:            head,
	}
	if !migrator.IsZero() {
		c.Migrator = &migrator
	}
	return c
}

func convertPool(pid uint64, p *pool.Pool) *Pool {
	return &Pool{
		ID:                pid,
		StakeToken:        p.StakeToken,
		AllocPoint:        p.AllocPoint,
		LastRewardBlock:   p.LastRewardBlock,
		AccRewardPerShare: hex(p.AccRewardPerShare),
		TotalStaked:       hex(p.TotalStaked),
	}
}

func convertAccount(pid uint64, addr core.Address, acc *account.Account, pending *big.Int, block uint32) *Account {
	return &Account{
		Pool:       pid,
		Address:    addr,
		Amount:     hex(acc.Amount),
		RewardDebt: hex(acc.RewardDebt),
		Pending:    hex(pending),
		Block:      block,
	}
}
