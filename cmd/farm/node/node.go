// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"encoding/binary"
	"maps"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/builtin/chef/schedule"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/cmd/farm/scenario"
	"github.com/vechain/farm/eventdb"
	"github.com/vechain/farm/kv"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/metrics"
	"github.com/vechain/farm/state"
)

var logger = log.WithContext("pkg", "node")

var (
	metricBlocks = metrics.LazyLoadCounter("node_block_processed_count")
	metricSteps  = metrics.LazyLoadCounterVec("node_steps_count", []string{"op", "result"})
	metricHead   = metrics.LazyLoadGauge("node_head_block")
)

var (
	headKey      = []byte("head")
	registryAddr = scenario.Derive("registry")
)

// Node hosts a chef and replays a scenario against it block by block. Every block is
// committed to the kv store and its events to the event db, then published.
type Node struct {
	mu       sync.RWMutex
	scenario *scenario.Scenario
	db       kv.GetPutter
	eventDB  *eventdb.EventDB
	state    *state.State
	registry *token.Registry
	reward   *token.Token
	chef     *chef.Chef
	head     uint32

	feed  event.Feed
	scope event.SubscriptionScope
}

// New opens the farm stored in db, deploying it from the scenario when db is empty.
func New(sc *scenario.Scenario, db kv.GetPutter, eventDB *eventdb.EventDB) (*Node, error) {
	chefAddr, err := sc.ChefAddress()
	if err != nil {
		return nil, err
	}
	rewardAddr, err := sc.Address(sc.Chef.Reward.Name)
	if err != nil {
		return nil, err
	}

	st := state.New(db)
	registry := token.NewRegistry(registryAddr, st)
	reward := token.New(rewardAddr, st)
	n := &Node{
		scenario: sc,
		db:       db,
		eventDB:  eventDB,
		state:    st,
		registry: registry,
		reward:   reward,
		chef:     chef.New(chefAddr, st, chef.Resolve(registry.Lookup), reward),
	}

	head, ok, err := loadHead(db)
	if err != nil {
		return nil, err
	}
	if ok {
		n.head = head
		logger.Info("farm loaded", "head", head)
		return n, nil
	}
	if err := n.deploy(); err != nil {
		return nil, errors.WithMessage(err, "deploy")
	}
	logger.Info("farm deployed", "chef", chefAddr, "reward", rewardAddr)
	return n, nil
}

func loadHead(db kv.Getter) (uint32, bool, error) {
	data, err := db.Get(headKey)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if len(data) != 4 {
		return 0, false, errors.New("corrupted head")
	}
	return binary.BigEndian.Uint32(data), true, nil
}

// deploy creates the tokens and the chef at block zero.
func (n *Node) deploy() error {
	sc := n.scenario
	owner, err := sc.Address(sc.Chef.Owner)
	if err != nil {
		return err
	}
	dev, err := sc.Address(sc.Chef.Dev)
	if err != nil {
		return err
	}
	rewardOwner := owner
	if sc.Chef.Reward.Owner != "" {
		if rewardOwner, err = sc.Address(sc.Chef.Reward.Owner); err != nil {
			return err
		}
	}
	if err := n.reward.Initialize(rewardOwner, token.Meta{Name: sc.Chef.Reward.Name, Symbol: sc.Chef.Reward.Symbol}); err != nil {
		return err
	}

	for _, t := range sc.Tokens {
		if err := n.deployToken(&t); err != nil {
			return errors.WithMessagef(err, "token %s", t.Name)
		}
	}

	sched := schedule.New(sc.Chef.RewardPerBlock.Int(), sc.Chef.StartBlock, sc.Chef.BonusEndBlock)
	if sc.Chef.BonusMultiplier > 0 {
		sched.BonusMultiplier = sc.Chef.BonusMultiplier
	}
	if err := n.chef.Initialize(chef.Config{Schedule: sched, Owner: owner, Dev: dev}); err != nil {
		return err
	}
	if err := n.reward.TransferOwnership(rewardOwner, n.chef.Address()); err != nil {
		return err
	}
	_, err = n.commit(0)
	return err
}

func (n *Node) deployToken(t *scenario.Token) error {
	sc := n.scenario
	addr, err := sc.Address(t.Name)
	if err != nil {
		return err
	}
	owner, err := sc.Address(t.Owner)
	if err != nil {
		return err
	}
	tok, err := n.registry.Register(addr, owner, token.Meta{Name: t.Name, Symbol: t.Symbol})
	if err != nil {
		return err
	}
	for _, holder := range slices.Sorted(maps.Keys(t.Balances)) {
		to, err := sc.Address(holder)
		if err != nil {
			return err
		}
		if err := tok.Mint(owner, to, t.Balances[holder].Int()); err != nil {
			return err
		}
	}
	for _, holder := range slices.Sorted(maps.Keys(t.Approvals)) {
		from, err := sc.Address(holder)
		if err != nil {
			return err
		}
		if err := tok.Approve(from, n.chef.Address(), t.Approvals[holder].Int()); err != nil {
			return err
		}
	}
	return nil
}

// commit writes the drained events, then the pending state and the head in one kv batch.
// Event rows of a block are replaced on re-commit, so a failure before the batch leaves
// the block free to be processed again.
func (n *Node) commit(blockNum uint32) ([]*eventdb.Event, error) {
	events := n.chef.Drain()
	batch := n.eventDB.Prepare(blockNum).Insert(events...)
	if err := batch.Commit(); err != nil {
		return nil, errors.WithMessage(err, "commit events")
	}
	slots, err := n.state.Commit(func(w kv.Putter) error {
		var head [4]byte
		binary.BigEndian.PutUint32(head[:], blockNum)
		return w.Put(headKey, head[:])
	})
	if err != nil {
		return nil, errors.WithMessage(err, "commit state")
	}
	n.head = blockNum

	metricBlocks().Add(1)
	metricHead().Set(int64(blockNum))
	logger.Debug("block committed", "block", blockNum, "slots", slots, "events", len(events))
	return batch.Events(), nil
}

// ProcessBlock applies the steps of block blockNum and commits them. A failing step
// discards the whole block.
func (n *Node) ProcessBlock(blockNum uint32, steps []scenario.Step) error {
	n.mu.Lock()
	events, err := n.processBlock(blockNum, steps)
	n.mu.Unlock()
	if err != nil {
		return err
	}
	if len(events) > 0 {
		n.feed.Send(events)
	}
	return nil
}

func (n *Node) processBlock(blockNum uint32, steps []scenario.Step) ([]*eventdb.Event, error) {
	if blockNum <= n.head {
		return nil, errors.Errorf("block %d is not after head %d", blockNum, n.head)
	}
	checkpoint := n.state.NewCheckpoint()
	for i, step := range steps {
		if err := n.step(blockNum, &step); err != nil {
			n.state.RevertTo(checkpoint)
			n.chef.Drain()
			return nil, errors.WithMessagef(err, "block %d step %d (%s)", blockNum, i, step.Op)
		}
	}
	events, err := n.commit(blockNum)
	if err != nil {
		n.state.RevertTo(checkpoint)
		return nil, errors.WithMessagef(err, "commit block %d", blockNum)
	}
	return events, nil
}

// Replay processes every scenario block after the head. onBlock, if set, is called after
// each block.
func (n *Node) Replay(ctx context.Context, onBlock func(blockNum uint32)) error {
	for _, steps := range n.scenario.Blocks() {
		blockNum := steps[0].Block
		if blockNum <= n.Head() {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := n.ProcessBlock(blockNum, steps); err != nil {
			return err
		}
		if onBlock != nil {
			onBlock(blockNum)
		}
	}
	return nil
}

func (n *Node) Head() uint32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.head
}

// View runs fn against the chef as of the head block. fn must not mutate.
func (n *Node) View(fn func(c *chef.Chef, head uint32) error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return fn(n.chef, n.head)
}

// SubscribeEvents delivers the events of every block committed from now on.
func (n *Node) SubscribeEvents(ch chan []*eventdb.Event) event.Subscription {
	return n.scope.Track(n.feed.Subscribe(ch))
}

// Close ends all subscriptions.
func (n *Node) Close() {
	n.scope.Close()
}
