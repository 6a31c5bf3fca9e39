// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/token"
	"github.com/vechain/farm/cmd/farm/scenario"
)

// step applies one step and checks its outcome against the expected revert, if any.
func (n *Node) step(blockNum uint32, step *scenario.Step) error {
	err := n.apply(blockNum, step)

	result := "ok"
	defer func() {
		metricSteps().AddWithLabel(1, map[string]string{"op": string(step.Op), "result": result})
	}()

	if step.Revert == "" {
		if err != nil {
			result = "error"
		}
		return err
	}
	if err == nil {
		result = "error"
		return errors.Errorf("expected revert %q", step.Revert)
	}
	if !reverts.IsRevertErr(err) || !strings.Contains(err.Error(), step.Revert) {
		result = "error"
		return errors.WithMessagef(err, "expected revert %q", step.Revert)
	}
	result = "revert"
	logger.Debug("reverted as expected", "block", blockNum, "op", step.Op, "error", err)
	return nil
}

func (n *Node) apply(blockNum uint32, step *scenario.Step) error {
	c := n.chef
	switch step.Op {
	case scenario.OpMassUpdatePools:
		return c.MassUpdatePools(blockNum)
	case scenario.OpUpdatePool:
		return c.UpdatePool(blockNum, step.Pool)
	case scenario.OpExpectPending:
		account, err := n.scenario.Address(step.Account)
		if err != nil {
			return err
		}
		pending, err := c.PendingReward(blockNum, step.Pool, account)
		if err != nil {
			return err
		}
		return expect("pending of "+step.Account, pending, step.Amount.Int())
	case scenario.OpExpectBalance, scenario.OpExpectSupply:
		return n.expectToken(step)
	}

	caller, err := n.scenario.Address(step.Caller)
	if err != nil {
		return errors.WithMessage(err, "caller")
	}
	switch step.Op {
	case scenario.OpAdd:
		stakeToken, err := n.scenario.Address(step.Token)
		if err != nil {
			return err
		}
		_, err = c.Add(blockNum, caller, step.AllocPoint, stakeToken, step.WithUpdate)
		return err
	case scenario.OpSet:
		return c.Set(blockNum, caller, step.Pool, step.AllocPoint, step.WithUpdate)
	case scenario.OpDeposit:
		return c.Deposit(blockNum, caller, step.Pool, step.Amount.Int())
	case scenario.OpWithdraw:
		return c.Withdraw(blockNum, caller, step.Pool, step.Amount.Int())
	case scenario.OpEmergencyWithdraw:
		return c.EmergencyWithdraw(caller, step.Pool)
	}

	account := c.Address()
	if step.Account != "" {
		if account, err = n.scenario.Address(step.Account); err != nil {
			return err
		}
	}
	switch step.Op {
	case scenario.OpSetDev:
		return c.SetDev(caller, account)
	case scenario.OpSetMigrator:
		return c.SetMigrator(caller, account)
	case scenario.OpApprove, scenario.OpTransfer:
		tok, err := n.token(step.Token)
		if err != nil {
			return err
		}
		if step.Op == scenario.OpApprove {
			return tok.Approve(caller, account, step.Amount.Int())
		}
		return tok.Transfer(caller, account, step.Amount.Int())
	}
	return errors.Errorf("unsupported op %q", step.Op)
}

func (n *Node) expectToken(step *scenario.Step) error {
	tok, err := n.token(step.Token)
	if err != nil {
		return err
	}
	if step.Op == scenario.OpExpectSupply {
		supply, err := tok.TotalSupply()
		if err != nil {
			return err
		}
		return expect("supply of "+step.Token, supply, step.Amount.Int())
	}
	account, err := n.scenario.Address(step.Account)
	if err != nil {
		return err
	}
	bal, err := tok.BalanceOf(account)
	if err != nil {
		return err
	}
	return expect("balance of "+step.Account+" in "+step.Token, bal, step.Amount.Int())
}

// token returns the reward token or a registered stake token by name or address.
func (n *Node) token(name string) (*token.Token, error) {
	addr, err := n.scenario.Address(name)
	if err != nil {
		return nil, err
	}
	if addr == n.reward.Address() {
		return n.reward, nil
	}
	tok, ok, err := n.registry.Lookup(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("unknown token %s (%v)", name, addr)
	}
	return tok, nil
}

func expect(what string, got, want *big.Int) error {
	if got.Cmp(want) != 0 {
		return errors.Errorf("%s: got %v, want %v", what, got, want)
	}
	return nil
}
