// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chef

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/builtin/chef/schedule"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/lvldb"
	"github.com/vechain/farm/state"
)

var (
	alice  = core.BytesToAddress([]byte("alice"))
	bob    = core.BytesToAddress([]byte("bob"))
	carol  = core.BytesToAddress([]byte("carol"))
	dev    = core.BytesToAddress([]byte("dev"))
	minter = core.BytesToAddress([]byte("minter"))

	chefAddr     = core.BytesToAddress([]byte("chef"))
	rewardAddr   = core.BytesToAddress([]byte("sushi"))
	registryAddr = core.BytesToAddress([]byte("registry"))
	lpAddr       = core.BytesToAddress([]byte("lp"))
	lp2Addr      = core.BytesToAddress([]byte("lp2"))
)

type testEnv struct {
	state    *state.State
	registry *token.Registry
	reward   *token.Token
	lp       *token.Token
	lp2      *token.Token
	chef     *Chef
}

// newTestEnv deploys a reward token owned by the chef, two stake tokens with 1000 units
// for each of alice, bob and carol, and a chef owned by alice.
func newTestEnv(t *testing.T, rewardPerBlock int64, startBlock, bonusEndBlock uint32) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db)
	reg := token.NewRegistry(registryAddr, st)

	reward := token.New(rewardAddr, st)
	require.NoError(t, reward.Initialize(alice, token.Meta{Name: "SushiToken", Symbol: "SUSHI"}))

	env := &testEnv{state: st, registry: reg, reward: reward}
	for _, lp := range []struct {
		addr core.Address
		meta token.Meta
		dst  **token.Token
	}{
		{lpAddr, token.Meta{Name: "LPToken", Symbol: "LP"}, &env.lp},
		{lp2Addr, token.Meta{Name: "LPToken2", Symbol: "LP2"}, &env.lp2},
	} {
		tok, err := reg.Register(lp.addr, minter, lp.meta)
		require.NoError(t, err)
		require.NoError(t, tok.Mint(minter, minter, big.NewInt(10000000000)))
		for _, user := range []core.Address{alice, bob, carol} {
			require.NoError(t, tok.Transfer(minter, user, big.NewInt(1000)))
			require.NoError(t, tok.Approve(user, chefAddr, big.NewInt(1000)))
		}
		*lp.dst = tok
	}

	env.chef = New(chefAddr, st, Resolve(reg.Lookup), reward)
	require.NoError(t, env.chef.Initialize(Config{
		Schedule: schedule.New(big.NewInt(rewardPerBlock), startBlock, bonusEndBlock),
		Owner:    alice,
		Dev:      dev,
	}))
	require.NoError(t, reward.TransferOwnership(alice, chefAddr))
	return env
}

func balance(t *testing.T, tok *token.Token, addr core.Address) int64 {
	bal, err := tok.BalanceOf(addr)
	require.NoError(t, err)
	return bal.Int64()
}

func supply(t *testing.T, tok *token.Token) int64 {
	s, err := tok.TotalSupply()
	require.NoError(t, err)
	return s.Int64()
}

type TestFunc func(t *testing.T)

// TestSequence scripts chef operations and expectations, run in order.
type TestSequence struct {
	env *testEnv

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(env *testEnv) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), env: env}
}

func (st *TestSequence) AddFunc(f TestFunc) *TestSequence {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.funcs = append(st.funcs, f)
	return st
}

func (st *TestSequence) AddPool(block uint32, allocPoint uint64, stakeToken core.Address) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		pid, err := st.env.chef.Add(block, alice, allocPoint, stakeToken, true)
		if err != nil {
			t.Fatalf("failed to add pool for %s at block %d: %v", stakeToken, block, err)
		}
		t.Logf("added pool %d at block %d", pid, block)
	})
}

func (st *TestSequence) Deposit(block uint32, user core.Address, pid uint64, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.chef.Deposit(block, user, pid, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to deposit %d into pool %d at block %d: %v", amount, pid, block, err)
		}
		t.Logf("%s deposited %d into pool %d at block %d", user, amount, pid, block)
	})
}

func (st *TestSequence) Withdraw(block uint32, user core.Address, pid uint64, amount int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.chef.Withdraw(block, user, pid, big.NewInt(amount)); err != nil {
			t.Fatalf("failed to withdraw %d from pool %d at block %d: %v", amount, pid, block, err)
		}
		t.Logf("%s withdrew %d from pool %d at block %d", user, amount, pid, block)
	})
}

func (st *TestSequence) EmergencyWithdraw(user core.Address, pid uint64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		if err := st.env.chef.EmergencyWithdraw(user, pid); err != nil {
			t.Fatalf("failed to emergency withdraw from pool %d: %v", pid, err)
		}
	})
}

func (st *TestSequence) Pending(block uint32, pid uint64, user core.Address, expected int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		pending, err := st.env.chef.PendingReward(block, pid, user)
		assert.NoError(t, err)
		assert.Equal(t, expected, pending.Int64(), "pending of %s in pool %d at block %d", user, pid, block)
	})
}

func (st *TestSequence) Reward(user core.Address, expected int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		assert.Equal(t, expected, balance(t, st.env.reward, user), "reward balance of %s", user)
	})
}

func (st *TestSequence) Supply(expected int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		assert.Equal(t, expected, supply(t, st.env.reward), "reward supply")
	})
}

func (st *TestSequence) Stake(tok *token.Token, user core.Address, expected int64) *TestSequence {
	return st.AddFunc(func(t *testing.T) {
		assert.Equal(t, expected, balance(t, tok, user), "stake token balance of %s", user)
	})
}

func (st *TestSequence) Run(t *testing.T) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, f := range st.funcs {
		f(t)
	}
}
