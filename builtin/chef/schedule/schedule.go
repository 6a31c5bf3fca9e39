// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package schedule

import (
	"math/big"

	"github.com/pkg/errors"
)

// DefaultBonusMultiplier applies when no bonus is configured.
const DefaultBonusMultiplier = 1

// Schedule is the emission curve: RewardPerBlock per block, multiplied by
// BonusMultiplier for blocks before BonusEndBlock.
type Schedule struct {
	RewardPerBlock  *big.Int
	StartBlock      uint32
	BonusEndBlock   uint32
	BonusMultiplier uint64
}

// New returns a schedule with the default bonus multiplier.
func New(rewardPerBlock *big.Int, startBlock, bonusEndBlock uint32) *Schedule {
	return &Schedule{
		RewardPerBlock:  rewardPerBlock,
		StartBlock:      startBlock,
		BonusEndBlock:   bonusEndBlock,
		BonusMultiplier: DefaultBonusMultiplier,
	}
}

func (s *Schedule) Validate() error {
	if s.RewardPerBlock == nil || s.RewardPerBlock.Sign() < 0 {
		return errors.New("reward per block must be non-negative")
	}
	if s.StartBlock > s.BonusEndBlock {
		return errors.Errorf("start block %d after bonus end block %d", s.StartBlock, s.BonusEndBlock)
	}
	if s.BonusMultiplier == 0 {
		return errors.New("bonus multiplier must be positive")
	}
	return nil
}

// Multiplier returns the number of reward-weighted blocks in [from, to).
// It is zero when from >= to.
func (s *Schedule) Multiplier(from, to uint32) *big.Int {
	if from >= to {
		return new(big.Int)
	}
	bonus := new(big.Int).SetUint64(s.BonusMultiplier)
	switch {
	case to <= s.BonusEndBlock:
		return bonus.Mul(bonus, big.NewInt(int64(to-from)))
	case from >= s.BonusEndBlock:
		return big.NewInt(int64(to - from))
	default:
		bonus.Mul(bonus, big.NewInt(int64(s.BonusEndBlock-from)))
		return bonus.Add(bonus, big.NewInt(int64(to-s.BonusEndBlock)))
	}
}

// Reward returns the total emission over [from, to), before the split among pools.
func (s *Schedule) Reward(from, to uint32) *big.Int {
	m := s.Multiplier(from, to)
	return m.Mul(m, s.RewardPerBlock)
}
