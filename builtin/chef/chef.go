// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chef distributes a per-block reward emission among staking pools by weight,
// and among the depositors of a pool by stake over time.
//
// Accrual is lazy. A pool is brought up to date only when an operation touches it, and the
// result equals updating it at every block. Staked tokens and undistributed rewards are held
// in custody by the chef's own address.
package chef

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/chef/account"
	"github.com/vechain/farm/builtin/chef/pool"
	"github.com/vechain/farm/builtin/chef/schedule"
	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/metrics"
	"github.com/vechain/farm/state"
)

var (
	logger = log.WithContext("pkg", "chef")

	metricOps      = metrics.LazyLoadCounterVec("chef_ops_count", []string{"op", "result"})
	metricAccruals = metrics.LazyLoadCounterVec("chef_accruals_count", []string{"pool"})
	metricPools    = metrics.LazyLoadGauge("chef_pools")

	slotOwner    = core.BytesToBytes32([]byte("owner"))
	slotDev      = core.BytesToBytes32([]byte("dev"))
	slotMigrator = core.BytesToBytes32([]byte("migrator"))
	slotSchedule = core.BytesToBytes32([]byte("schedule"))
)

func SetLogger(l log.Logger) {
	logger = l
}

// StakeToken is a token that can be deposited into a pool.
type StakeToken interface {
	Address() core.Address
	BalanceOf(addr core.Address) (*big.Int, error)
	Transfer(from, to core.Address, amount *big.Int) error
	TransferFrom(spender, from, to core.Address, amount *big.Int) error
	Approve(owner, spender core.Address, amount *big.Int) error
}

// RewardToken is the emitted token. The chef must be its owner to mint.
type RewardToken interface {
	Address() core.Address
	BalanceOf(addr core.Address) (*big.Int, error)
	Transfer(from, to core.Address, amount *big.Int) error
	Mint(caller, to core.Address, amount *big.Int) error
}

// TokenResolver returns the stake token at addr, or false if addr holds no token.
type TokenResolver func(addr core.Address) (StakeToken, bool, error)

// Resolve adapts a lookup of a concrete token type into a TokenResolver.
func Resolve[T StakeToken](lookup func(addr core.Address) (T, bool, error)) TokenResolver {
	return func(addr core.Address) (StakeToken, bool, error) {
		tok, ok, err := lookup(addr)
		if err != nil || !ok {
			return nil, false, err
		}
		return tok, true, nil
	}
}

// Config is the immutable setup of a chef.
type Config struct {
	Schedule *schedule.Schedule
	Owner    core.Address
	Dev      core.Address
}

// Chef implements the reward distribution engine over contract storage.
type Chef struct {
	addr   core.Address
	state  *state.State
	tokens TokenResolver
	reward RewardToken

	pools    *pool.Service
	accounts *account.Service

	owner    *solidity.Address
	dev      *solidity.Address
	migrator *solidity.Address
	schedule *solidity.Raw[schedule.Schedule]

	migrators map[core.Address]Migrator
	events    []*Event
}

// New create a new instance bound to the storage of addr.
func New(addr core.Address, state *state.State, tokens TokenResolver, reward RewardToken) *Chef {
	sctx := solidity.NewContext(addr, state)
	return &Chef{
		addr:   addr,
		state:  state,
		tokens: tokens,
		reward: reward,

		pools:    pool.NewService(sctx),
		accounts: account.NewService(sctx),

		owner:    solidity.NewAddress(sctx, slotOwner),
		dev:      solidity.NewAddress(sctx, slotDev),
		migrator: solidity.NewAddress(sctx, slotMigrator),
		schedule: solidity.NewRaw[schedule.Schedule](sctx, slotSchedule),

		migrators: make(map[core.Address]Migrator),
	}
}

// Initialize persists the configuration. It can be done only once.
func (c *Chef) Initialize(cfg Config) error {
	if cfg.Schedule == nil {
		return errors.New("missing schedule")
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return errors.WithMessage(err, "invalid schedule")
	}
	return c.atomically("initialize", func() error {
		if _, exists, err := c.schedule.Get(); err != nil {
			return err
		} else if exists {
			return reverts.New("chef: already initialized")
		}
		if err := c.schedule.Set(*cfg.Schedule); err != nil {
			return err
		}
		c.owner.Set(cfg.Owner)
		c.dev.Set(cfg.Dev)
		logger.Info("initialized", "owner", cfg.Owner, "dev", cfg.Dev,
			"rewardPerBlock", cfg.Schedule.RewardPerBlock,
			"startBlock", cfg.Schedule.StartBlock,
			"bonusEndBlock", cfg.Schedule.BonusEndBlock,
		)
		return nil
	})
}

//
// Getters - no state change
//

// Address returns the custody address.
func (c *Chef) Address() core.Address {
	return c.addr
}

func (c *Chef) RewardToken() core.Address {
	return c.reward.Address()
}

func (c *Chef) Owner() (core.Address, error) {
	return c.owner.Get()
}

func (c *Chef) Dev() (core.Address, error) {
	return c.dev.Get()
}

func (c *Chef) Migrator() (core.Address, error) {
	return c.migrator.Get()
}

// Schedule returns the emission schedule set at initialization.
func (c *Chef) Schedule() (*schedule.Schedule, error) {
	sched, exists, err := c.schedule.Get()
	if err != nil {
		return nil, errors.WithMessage(err, "get schedule")
	}
	if !exists {
		return nil, reverts.New("chef: not initialized")
	}
	return &sched, nil
}

// Multiplier returns the reward-weighted block count over [from, to).
func (c *Chef) Multiplier(from, to uint32) (*big.Int, error) {
	sched, err := c.Schedule()
	if err != nil {
		return nil, err
	}
	return sched.Multiplier(from, to), nil
}

func (c *Chef) PoolLength() (uint64, error) {
	return c.pools.Len()
}

// PoolInfo returns the stored pool, as of its last accrual.
func (c *Chef) PoolInfo(pid uint64) (*pool.Pool, error) {
	return c.pools.Get(pid)
}

// PoolByToken returns the pid backed by stakeToken.
func (c *Chef) PoolByToken(stakeToken core.Address) (uint64, bool, error) {
	return c.pools.Lookup(stakeToken)
}

// UserInfo returns the account of user in pool pid.
func (c *Chef) UserInfo(pid uint64, user core.Address) (*account.Account, error) {
	if _, err := c.pools.Get(pid); err != nil {
		return nil, err
	}
	return c.accounts.Get(pid, user)
}

func (c *Chef) TotalAllocPoint() (uint64, error) {
	return c.pools.TotalAllocPoint()
}

// atomically runs fn in a state checkpoint. On error every storage write and
// every event made by fn is discarded.
func (c *Chef) atomically(op string, fn func() error) error {
	checkpoint := c.state.NewCheckpoint()
	mark := len(c.events)

	err := fn()
	result := "ok"
	if err != nil {
		c.state.RevertTo(checkpoint)
		c.events = c.events[:mark]
		result = "error"
		if reverts.IsRevertErr(err) {
			result = "revert"
		}
	}
	metricOps().AddWithLabel(1, map[string]string{"op": op, "result": result})
	return err
}

func (c *Chef) onlyOwner(caller core.Address) error {
	owner, err := c.owner.Get()
	if err != nil {
		return err
	}
	if caller != owner {
		return reverts.NewUnauthorized("chef: caller is not the owner")
	}
	return nil
}

func (c *Chef) stakeToken(addr core.Address) (StakeToken, error) {
	tok, ok, err := c.tokens(addr)
	if err != nil {
		return nil, errors.WithMessagef(err, "resolve token %v", addr)
	}
	if !ok {
		return nil, reverts.Newf(reverts.InvalidPool, "unknown stake token %v", addr)
	}
	return tok, nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return reverts.New("chef: invalid amount")
	}
	return nil
}
