// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package account

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/core"
)

// Account is a user's position in one pool.
// RewardDebt is the part of Amount*AccRewardPerShare/Scale already settled or never owed.
type Account struct {
	Amount     *big.Int
	RewardDebt *big.Int
}

func New() *Account {
	return &Account{Amount: new(big.Int), RewardDebt: new(big.Int)}
}

// Debt returns Amount*accRewardPerShare/Scale.
func (a *Account) Debt(accRewardPerShare *big.Int) (*big.Int, error) {
	return core.Scaled(a.Amount, accRewardPerShare)
}

// Pending returns the reward owed at accRewardPerShare.
func (a *Account) Pending(accRewardPerShare *big.Int) (*big.Int, error) {
	accrued, err := a.Debt(accRewardPerShare)
	if err != nil {
		return nil, err
	}
	debt := a.rewardDebt()
	if accrued.Cmp(debt) < 0 {
		return nil, errors.Errorf("reward debt %v exceeds accrued %v", debt, accrued)
	}
	return accrued.Sub(accrued, debt), nil
}

// Settle recomputes the reward debt so that nothing is pending at accRewardPerShare.
func (a *Account) Settle(accRewardPerShare *big.Int) error {
	debt, err := a.Debt(accRewardPerShare)
	if err != nil {
		return err
	}
	a.RewardDebt = debt
	return nil
}

func (a *Account) rewardDebt() *big.Int {
	if a.RewardDebt == nil {
		return new(big.Int)
	}
	return a.RewardDebt
}
