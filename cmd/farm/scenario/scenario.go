// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package scenario describes a farm deployment and the block-ordered operations replayed against it.
package scenario

import (
	"bytes"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/farm/core"
)

// Op names a scenario operation.
type Op string

const (
	OpAdd               Op = "add"
	OpSet               Op = "set"
	OpDeposit           Op = "deposit"
	OpWithdraw          Op = "withdraw"
	OpEmergencyWithdraw Op = "emergencyWithdraw"
	OpSetDev            Op = "setDev"
	OpSetMigrator       Op = "setMigrator"
	OpUpdatePool        Op = "updatePool"
	OpMassUpdatePools   Op = "massUpdatePools"
	OpApprove           Op = "approve"
	OpTransfer          Op = "transfer"
	OpExpectBalance     Op = "expectBalance"
	OpExpectPending     Op = "expectPending"
	OpExpectSupply      Op = "expectSupply"
)

var ops = map[Op]struct{}{
	OpAdd: {}, OpSet: {}, OpDeposit: {}, OpWithdraw: {}, OpEmergencyWithdraw: {},
	OpSetDev: {}, OpSetMigrator: {}, OpUpdatePool: {}, OpMassUpdatePools: {},
	OpApprove: {}, OpTransfer: {},
	OpExpectBalance: {}, OpExpectPending: {}, OpExpectSupply: {},
}

// Amount is a token amount written as a decimal or 0x-prefixed hex string.
type Amount big.Int

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	v, ok := math.ParseBig256(value.Value)
	if !ok {
		return fmt.Errorf("line %d: invalid amount %q", value.Line, value.Value)
	}
	(*big.Int)(a).Set(v)
	return nil
}

// Int returns a copy of the amount; nil reads as zero.
func (a *Amount) Int() *big.Int {
	if a == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(a))
}

func NewAmount(v int64) *Amount {
	return (*Amount)(big.NewInt(v))
}

type Token struct {
	Name      string             `yaml:"name"`
	Symbol    string             `yaml:"symbol"`
	Address   string             `yaml:"address"`
	Owner     string             `yaml:"owner"`
	Balances  map[string]*Amount `yaml:"balances"`
	Approvals map[string]*Amount `yaml:"approvals"` // allowance granted to the chef
}

type Chef struct {
	Address         string  `yaml:"address"`
	Owner           string  `yaml:"owner"`
	Dev             string  `yaml:"dev"`
	Reward          Token   `yaml:"reward"`
	RewardPerBlock  *Amount `yaml:"rewardPerBlock"`
	StartBlock      uint32  `yaml:"startBlock"`
	BonusEndBlock   uint32  `yaml:"bonusEndBlock"`
	BonusMultiplier uint64  `yaml:"bonusMultiplier"`
}

// Step is one operation at a block. Fields unused by the op are ignored.
type Step struct {
	Block      uint32  `yaml:"block"`
	Op         Op      `yaml:"op"`
	Caller     string  `yaml:"caller"`
	Pool       uint64  `yaml:"pool"`
	Token      string  `yaml:"token"`
	Account    string  `yaml:"account"`
	Amount     *Amount `yaml:"amount"`
	AllocPoint uint64  `yaml:"allocPoint"`
	WithUpdate bool    `yaml:"withUpdate"`
	Revert     string  `yaml:"revert"` // the step must fail with a message containing this
}

type Scenario struct {
	Chef     Chef              `yaml:"chef"`
	Accounts map[string]string `yaml:"accounts"`
	Tokens   []Token           `yaml:"tokens"`
	Steps    []Step            `yaml:"steps"`

	id core.Bytes32
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a scenario, rejecting unknown fields.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.id = core.Blake2b(data)
	return &s, nil
}

// ID identifies the scenario source.
func (s *Scenario) ID() core.Bytes32 {
	return s.id
}

func (s *Scenario) Validate() error {
	if s.Chef.RewardPerBlock == nil {
		return errors.New("chef.rewardPerBlock: required")
	}
	if s.Chef.Owner == "" {
		return errors.New("chef.owner: required")
	}
	if s.Chef.Dev == "" {
		return errors.New("chef.dev: required")
	}
	if s.Chef.Reward.Name == "" {
		return errors.New("chef.reward.name: required")
	}
	names := map[string]bool{s.Chef.Reward.Name: true}
	for i, tok := range s.Tokens {
		if tok.Name == "" {
			return fmt.Errorf("tokens[%d].name: required", i)
		}
		if names[tok.Name] {
			return fmt.Errorf("tokens[%d].name: duplicate %q", i, tok.Name)
		}
		names[tok.Name] = true
		if tok.Owner == "" {
			return fmt.Errorf("tokens[%d].owner: required", i)
		}
	}
	var last uint32
	for i, step := range s.Steps {
		if _, ok := ops[step.Op]; !ok {
			return fmt.Errorf("steps[%d].op: unknown %q", i, step.Op)
		}
		if step.Block == 0 {
			return fmt.Errorf("steps[%d].block: must be positive", i)
		}
		if step.Block < last {
			return fmt.Errorf("steps[%d].block: %d precedes %d", i, step.Block, last)
		}
		last = step.Block
	}
	return nil
}

// Address resolves a hex address, a named account or a token name. Any other name
// maps to an address derived from it.
func (s *Scenario) Address(name string) (core.Address, error) {
	if name == "" {
		return core.Address{}, errors.New("empty account")
	}
	if addr, err := core.ParseAddress(name); err == nil {
		return *addr, nil
	}
	if v, ok := s.Accounts[name]; ok {
		addr, err := core.ParseAddress(v)
		if err != nil {
			return core.Address{}, errors.WithMessagef(err, "account %q", name)
		}
		return *addr, nil
	}
	if name == s.Chef.Reward.Name {
		return s.tokenAddress(&s.Chef.Reward)
	}
	for i := range s.Tokens {
		if s.Tokens[i].Name == name {
			return s.tokenAddress(&s.Tokens[i])
		}
	}
	return Derive(name), nil
}

// ChefAddress returns the custody address of the chef.
func (s *Scenario) ChefAddress() (core.Address, error) {
	if s.Chef.Address == "" {
		return Derive("chef"), nil
	}
	return s.Address(s.Chef.Address)
}

func (s *Scenario) tokenAddress(tok *Token) (core.Address, error) {
	if tok.Address == "" {
		return Derive(tok.Name), nil
	}
	addr, err := core.ParseAddress(tok.Address)
	if err != nil {
		return core.Address{}, errors.WithMessagef(err, "token %q", tok.Name)
	}
	return *addr, nil
}

// Derive maps a name to a stable address.
func Derive(name string) core.Address {
	return core.BytesToAddress(core.Blake2b([]byte(name)).Bytes())
}

// Blocks groups the steps by block, in order.
func (s *Scenario) Blocks() [][]Step {
	var (
		blocks [][]Step
		cur    []Step
	)
	for _, step := range s.Steps {
		if len(cur) > 0 && cur[0].Block != step.Block {
			blocks = append(blocks, cur)
			cur = nil
		}
		cur = append(cur, step)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}
