// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package account

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/core"
)

var slotAccounts = core.BytesToBytes32([]byte("accounts"))

// Key identifies the account of user in pool pid.
func Key(pid uint64, user core.Address) core.Bytes32 {
	return core.Blake2b(core.Uint64Bytes(pid), user.Bytes())
}

// Service stores accounts. An account never written reads as zero.
type Service struct {
	accounts *solidity.Mapping[core.Bytes32, *Account]
}

func NewService(sctx *solidity.Context) *Service {
	return &Service{
		accounts: solidity.NewMapping[core.Bytes32, *Account](sctx, slotAccounts),
	}
}

func (s *Service) Get(pid uint64, user core.Address) (*Account, error) {
	acc, err := s.accounts.Get(Key(pid, user))
	if err != nil {
		return nil, errors.WithMessagef(err, "get account %v in pool %d", user, pid)
	}
	if acc.Amount == nil {
		acc.Amount = new(big.Int)
	}
	if acc.RewardDebt == nil {
		acc.RewardDebt = new(big.Int)
	}
	return acc, nil
}

func (s *Service) Set(pid uint64, user core.Address, acc *Account) error {
	return s.accounts.Set(Key(pid, user), acc)
}
