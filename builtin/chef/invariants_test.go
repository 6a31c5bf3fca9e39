// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chef

import (
	"fmt"
	"math/big"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/core"
)

type fuzzOp struct {
	Kind   uint8
	User   uint8
	Pool   uint8
	Amount uint16
	Gap    uint8
}

func TestInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			runInvariants(t, seed)
		})
	}
}

func runInvariants(t *testing.T, seed int64) {
	env := newTestEnv(t, 100, 5, 50)
	users := []core.Address{alice, bob, carol}
	tokens := []*token.Token{env.lp, env.lp2}

	_, err := env.chef.Add(0, alice, 10, lpAddr, true)
	require.NoError(t, err)
	_, err = env.chef.Add(0, alice, 30, lp2Addr, true)
	require.NoError(t, err)

	var ops []fuzzOp
	fuzz.NewWithSeed(seed).NilChance(0).NumElements(60, 60).Fuzz(&ops)

	lastAcc := []*big.Int{new(big.Int), new(big.Int)}
	block := uint32(1)
	for i, op := range ops {
		block += uint32(op.Gap % 8)
		user := users[int(op.User)%len(users)]
		pid := uint64(op.Pool % 2)
		amount := big.NewInt(int64(op.Amount % 400))

		supplyBefore := supply(t, env.reward)
		devBefore := balance(t, env.reward, dev)
		poolBefore, err := env.chef.PoolInfo(pid)
		require.NoError(t, err)

		switch op.Kind % 5 {
		case 0:
			err = env.chef.Deposit(block, user, pid, amount)
		case 1:
			err = env.chef.Withdraw(block, user, pid, amount)
		case 2:
			err = env.chef.UpdatePool(block, pid)
		case 3:
			err = env.chef.EmergencyWithdraw(user, pid)
		case 4:
			// reads have no effect and repeat
			a, err1 := env.chef.PendingReward(block+10, pid, user)
			b, err2 := env.chef.PendingReward(block+10, pid, user)
			require.NoError(t, err1)
			require.NoError(t, err2)
			assert.Equal(t, 0, a.Cmp(b), "op %d", i)
		}

		supplyDelta := supply(t, env.reward) - supplyBefore
		devDelta := balance(t, env.reward, dev) - devBefore
		if err != nil {
			require.True(t, reverts.IsRevertErr(err), "op %d: %v", i, err)
			assert.Equal(t, int64(0), supplyDelta, "op %d failed but minted", i)
		} else {
			// every op touches a single pool, so the surcharge is exactly a tenth of it
			poolReward := supplyDelta - devDelta
			assert.Equal(t, poolReward/10, devDelta, "op %d", i)
			if poolBefore.TotalStaked.Sign() == 0 {
				assert.Equal(t, int64(0), supplyDelta, "op %d minted for an empty pool", i)
			}
		}

		for p := range uint64(2) {
			info, err := env.chef.PoolInfo(p)
			require.NoError(t, err)

			assert.True(t, info.AccRewardPerShare.Cmp(lastAcc[p]) >= 0, "op %d: pool %d share decreased", i, p)
			lastAcc[p] = info.AccRewardPerShare

			staked := new(big.Int)
			for _, u := range users {
				acc, err := env.chef.UserInfo(p, u)
				require.NoError(t, err)
				staked.Add(staked, acc.Amount)
			}
			custody, err := tokens[p].BalanceOf(chefAddr)
			require.NoError(t, err)
			assert.Equal(t, 0, staked.Cmp(custody), "op %d: pool %d custody mismatch", i, p)
			assert.Equal(t, 0, staked.Cmp(info.TotalStaked), "op %d: pool %d total mismatch", i, p)
		}
	}
}
