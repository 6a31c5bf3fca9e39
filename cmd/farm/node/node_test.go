// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/cmd/farm/scenario"
	"github.com/vechain/farm/eventdb"
	"github.com/vechain/farm/lvldb"
)

const farming = "../scenario/testdata/farming.yaml"

const simple = `
chef:
  owner: alice
  dev: dev
  reward: {name: sushi, symbol: SUSHI}
  rewardPerBlock: "100"
  startBlock: 10
  bonusEndBlock: 100
tokens:
  - name: lp
    owner: minter
    balances: {bob: "1000"}
    approvals: {bob: "1000"}
steps:
  - {block: 1, op: add, caller: alice, token: lp, allocPoint: 1}
`

func newMemNode(t *testing.T, sc *scenario.Scenario) (*Node, *eventdb.EventDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	edb, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { edb.Close() })

	n, err := New(sc, db, edb)
	require.NoError(t, err)
	t.Cleanup(n.Close)
	return n, edb
}

func parse(t *testing.T, doc string) *scenario.Scenario {
	sc, err := scenario.Parse([]byte(doc))
	require.NoError(t, err)
	return sc
}

func TestReplay(t *testing.T) {
	sc, err := scenario.Load(farming)
	require.NoError(t, err)
	n, edb := newMemNode(t, sc)

	var blocks []uint32
	require.NoError(t, n.Replay(context.Background(), func(b uint32) { blocks = append(blocks, b) }))
	assert.Len(t, blocks, len(sc.Blocks()))
	assert.Equal(t, uint32(360), n.Head())

	require.NoError(t, n.View(func(c *chef.Chef, head uint32) error {
		assert.Equal(t, uint32(360), head)
		info, err := c.PoolInfo(0)
		require.NoError(t, err)
		assert.Equal(t, 0, info.TotalStaked.Sign())
		return nil
	}))

	harvests, err := edb.FilterEvents(context.Background(), &eventdb.Filter{Kinds: []chef.EventKind{chef.EventHarvest}})
	require.NoError(t, err)
	paid := new(big.Int)
	for _, ev := range harvests {
		paid.Add(paid, ev.Amount)
	}
	// the pool minted 5000; one unit is left in custody by share truncation
	assert.Equal(t, big.NewInt(4999), paid)

	adds, err := edb.FilterEvents(context.Background(), &eventdb.Filter{Kinds: []chef.EventKind{chef.EventAddPool}})
	require.NoError(t, err)
	require.Len(t, adds, 1)
	assert.Equal(t, uint32(1), adds[0].BlockNumber)
}

func TestResume(t *testing.T) {
	sc, err := scenario.Load(farming)
	require.NoError(t, err)
	dir := t.TempDir()

	open := func() (*Node, func()) {
		db, err := lvldb.New(filepath.Join(dir, "main.db"), lvldb.Options{})
		require.NoError(t, err)
		edb, err := eventdb.New(filepath.Join(dir, "events.db"))
		require.NoError(t, err)
		n, err := New(sc, db, edb)
		require.NoError(t, err)
		return n, func() {
			n.Close()
			edb.Close()
			db.Close()
		}
	}

	n, closeFn := open()
	ctx, cancel := context.WithCancel(context.Background())
	err = n.Replay(ctx, func(b uint32) {
		if b >= 318 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint32(318), n.Head())
	closeFn()

	// the remaining expectations only hold if the first half was kept
	n, closeFn = open()
	defer closeFn()
	assert.Equal(t, uint32(318), n.Head())
	require.NoError(t, n.Replay(context.Background(), nil))
	assert.Equal(t, uint32(360), n.Head())
}

func TestFailedStepDiscardsBlock(t *testing.T) {
	n, edb := newMemNode(t, parse(t, simple))
	require.NoError(t, n.Replay(context.Background(), nil))

	err := n.ProcessBlock(12, []scenario.Step{
		{Block: 12, Op: scenario.OpDeposit, Caller: "bob", Pool: 0, Amount: scenario.NewAmount(10)},
		{Block: 12, Op: scenario.OpExpectBalance, Token: "lp", Account: "bob", Amount: scenario.NewAmount(1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "balance of bob in lp: got 990, want 1")
	assert.Equal(t, uint32(1), n.Head())

	require.NoError(t, n.View(func(c *chef.Chef, _ uint32) error {
		info, err := c.PoolInfo(0)
		require.NoError(t, err)
		assert.Equal(t, 0, info.TotalStaked.Sign())
		return nil
	}))
	last, _, err := edb.LastBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), last)

	// the same block applies cleanly afterwards
	require.NoError(t, n.ProcessBlock(12, []scenario.Step{
		{Block: 12, Op: scenario.OpDeposit, Caller: "bob", Pool: 0, Amount: scenario.NewAmount(10)},
		{Block: 12, Op: scenario.OpExpectBalance, Token: "lp", Account: "bob", Amount: scenario.NewAmount(990)},
	}))
}

func TestFailedCommitKeepsBlockPending(t *testing.T) {
	sc := parse(t, simple)
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	edb, err := eventdb.NewMem()
	require.NoError(t, err)

	n, err := New(sc, db, edb)
	require.NoError(t, err)
	require.NoError(t, n.Replay(context.Background(), nil))

	deposit := []scenario.Step{{Block: 12, Op: scenario.OpDeposit, Caller: "bob", Pool: 0, Amount: scenario.NewAmount(10)}}
	require.NoError(t, edb.Close())
	assert.ErrorContains(t, n.ProcessBlock(12, deposit), "commit block 12")
	assert.Equal(t, uint32(1), n.Head())
	bob, err := sc.Address("bob")
	require.NoError(t, err)
	staked := func(n *Node) int64 {
		var amount int64
		require.NoError(t, n.View(func(c *chef.Chef, _ uint32) error {
			acc, err := c.UserInfo(0, bob)
			if err != nil {
				return err
			}
			amount = acc.Amount.Int64()
			return nil
		}))
		return amount
	}
	assert.Equal(t, int64(0), staked(n), "in-memory state is reverted")
	n.Close()

	// nothing of block 12 reached the kv store
	edb, err = eventdb.NewMem()
	require.NoError(t, err)
	defer edb.Close()
	n, err = New(sc, db, edb)
	require.NoError(t, err)
	defer n.Close()
	assert.Equal(t, uint32(1), n.Head())
	assert.Equal(t, int64(0), staked(n))

	require.NoError(t, n.ProcessBlock(12, deposit))
	assert.Equal(t, uint32(12), n.Head())
	assert.Equal(t, int64(10), staked(n))
}

func TestExpectedReverts(t *testing.T) {
	n, _ := newMemNode(t, parse(t, simple))
	require.NoError(t, n.Replay(context.Background(), nil))

	tests := []struct {
		name string
		step scenario.Step
		ok   bool
	}{
		{"matching revert", scenario.Step{Op: scenario.OpSetDev, Caller: "bob", Account: "bob", Revert: "dev: wut?"}, true},
		{"other revert", scenario.Step{Op: scenario.OpSetDev, Caller: "bob", Account: "bob", Revert: "not good"}, false},
		{"no revert", scenario.Step{Op: scenario.OpMassUpdatePools, Revert: "dev: wut?"}, false},
		{"unexpected revert", scenario.Step{Op: scenario.OpWithdraw, Caller: "bob", Amount: scenario.NewAmount(1)}, false},
		{"expectation is not a revert", scenario.Step{Op: scenario.OpExpectSupply, Token: "sushi", Amount: scenario.NewAmount(1), Revert: "supply"}, false},
		{"unknown token", scenario.Step{Op: scenario.OpExpectSupply, Token: "nope"}, false},
	}
	block := uint32(20)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block++
			tt.step.Block = block
			err := n.ProcessBlock(block, []scenario.Step{tt.step})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTokenSteps(t *testing.T) {
	n, _ := newMemNode(t, parse(t, simple))
	require.NoError(t, n.Replay(context.Background(), nil))

	require.NoError(t, n.ProcessBlock(5, []scenario.Step{
		{Block: 5, Op: scenario.OpTransfer, Token: "lp", Caller: "bob", Account: "carol", Amount: scenario.NewAmount(300)},
		{Block: 5, Op: scenario.OpApprove, Token: "lp", Caller: "carol", Amount: scenario.NewAmount(300)},
		{Block: 5, Op: scenario.OpDeposit, Caller: "carol", Pool: 0, Amount: scenario.NewAmount(300)},
		{Block: 5, Op: scenario.OpExpectBalance, Token: "lp", Account: "bob", Amount: scenario.NewAmount(700)},
		{Block: 5, Op: scenario.OpSetDev, Caller: "dev", Account: "carol"},
	}))
	// 500 over 300 shares truncates per share, so one unit stays unpaid
	require.NoError(t, n.ProcessBlock(15, []scenario.Step{
		{Block: 15, Op: scenario.OpExpectPending, Account: "carol", Pool: 0, Amount: scenario.NewAmount(499)},
		{Block: 15, Op: scenario.OpUpdatePool, Pool: 0},
		{Block: 15, Op: scenario.OpExpectSupply, Token: "sushi", Amount: scenario.NewAmount(550)},
		{Block: 15, Op: scenario.OpExpectBalance, Token: "sushi", Account: "carol", Amount: scenario.NewAmount(50)},
	}))
}

func TestProcessBlockOrder(t *testing.T) {
	n, _ := newMemNode(t, parse(t, simple))
	require.NoError(t, n.Replay(context.Background(), nil))

	assert.Error(t, n.ProcessBlock(1, nil))
	assert.Error(t, n.ProcessBlock(0, nil))
	assert.NoError(t, n.ProcessBlock(2, nil))
	assert.Equal(t, uint32(2), n.Head())
}

func TestSubscribeEvents(t *testing.T) {
	n, _ := newMemNode(t, parse(t, simple))
	require.NoError(t, n.Replay(context.Background(), nil))

	ch := make(chan []*eventdb.Event, 1)
	sub := n.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	require.NoError(t, n.ProcessBlock(12, []scenario.Step{
		{Block: 12, Op: scenario.OpDeposit, Caller: "bob", Pool: 0, Amount: scenario.NewAmount(10)},
	}))

	select {
	case evs := <-ch:
		require.Len(t, evs, 1)
		assert.Equal(t, chef.EventDeposit, evs[0].Kind)
		assert.Equal(t, uint32(12), evs[0].BlockNumber)
		assert.Equal(t, scenario.Derive("bob"), evs[0].Account)
	case <-time.After(5 * time.Second):
		t.Fatal("no events published")
	}
}
