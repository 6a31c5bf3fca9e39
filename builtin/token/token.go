// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token implements fungible token ledgers kept in contract storage.
// A token has balances, allowances, a total supply and an owner who alone may mint.
package token

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/reverts"
	"github.com/vechain/farm/builtin/solidity"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/state"
)

var logger = log.WithContext("pkg", "token")

var (
	slotOwner       = nameToSlot("owner")
	slotTotalSupply = nameToSlot("total-supply")
	slotBalances    = nameToSlot("balances")
	slotAllowances  = nameToSlot("allowances")
	slotMeta        = nameToSlot("meta")
)

func nameToSlot(name string) core.Bytes32 {
	return core.BytesToBytes32([]byte(name))
}

func allowanceKey(owner, spender core.Address) core.Bytes32 {
	return core.Blake2b(owner.Bytes(), spender.Bytes())
}

// Meta describes a token.
type Meta struct {
	Name   string
	Symbol string
}

// Token is a fungible token ledger stored under its own address.
type Token struct {
	addr        core.Address
	owner       *solidity.Address
	totalSupply *solidity.Uint256
	balances    *solidity.Mapping[core.Address, *big.Int]
	allowances  *solidity.Mapping[core.Bytes32, *big.Int]
	meta        *solidity.Raw[Meta]
}

// New binds the token ledger at addr.
func New(addr core.Address, st *state.State) *Token {
	sctx := solidity.NewContext(addr, st)
	return &Token{
		addr:        addr,
		owner:       solidity.NewAddress(sctx, slotOwner),
		totalSupply: solidity.NewUint256(sctx, slotTotalSupply),
		balances:    solidity.NewMapping[core.Address, *big.Int](sctx, slotBalances),
		allowances:  solidity.NewMapping[core.Bytes32, *big.Int](sctx, slotAllowances),
		meta:        solidity.NewRaw[Meta](sctx, slotMeta),
	}
}

// Initialize sets the owner and metadata. A token may be initialized only once.
func (t *Token) Initialize(owner core.Address, meta Meta) error {
	_, exists, err := t.meta.Get()
	if err != nil {
		return err
	}
	if exists {
		return reverts.New("token: already initialized")
	}
	if err := t.meta.Set(meta); err != nil {
		return err
	}
	t.owner.Set(owner)
	return nil
}

func (t *Token) Address() core.Address {
	return t.addr
}

func (t *Token) Meta() (Meta, error) {
	meta, _, err := t.meta.Get()
	return meta, err
}

func (t *Token) Owner() (core.Address, error) {
	return t.owner.Get()
}

// TransferOwnership hands the mint right to newOwner.
func (t *Token) TransferOwnership(caller, newOwner core.Address) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	t.owner.Set(newOwner)
	logger.Debug("ownership transferred", "token", t.addr, "owner", newOwner)
	return nil
}

func (t *Token) TotalSupply() (*big.Int, error) {
	return t.totalSupply.Get()
}

func (t *Token) BalanceOf(addr core.Address) (*big.Int, error) {
	return t.balances.Get(addr)
}

func (t *Token) Allowance(owner, spender core.Address) (*big.Int, error) {
	return t.allowances.Get(allowanceKey(owner, spender))
}

// Approve sets the amount spender may move out of owner's balance.
func (t *Token) Approve(owner, spender core.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return t.allowances.Set(allowanceKey(owner, spender), new(big.Int).Set(amount))
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to core.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return t.move(from, to, amount)
}

// TransferFrom moves amount on behalf of from, spending spender's allowance.
func (t *Token) TransferFrom(spender, from, to core.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	allowance, err := t.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return reverts.NewInsufficientBalance("token: transfer amount exceeds allowance")
	}
	// checked before the allowance is spent
	bal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return reverts.NewInsufficientBalance("token: transfer amount exceeds balance")
	}
	if err := t.allowances.Set(allowanceKey(from, spender), allowance.Sub(allowance, amount)); err != nil {
		return err
	}
	return t.move(from, to, amount)
}

// Mint creates amount new tokens for to. Only the owner may mint.
func (t *Token) Mint(caller, to core.Address, amount *big.Int) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	bal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(to, bal.Add(bal, amount)); err != nil {
		return err
	}
	return t.totalSupply.Add(amount)
}

func (t *Token) move(from, to core.Address, amount *big.Int) error {
	fromBal, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return reverts.NewInsufficientBalance("token: transfer amount exceeds balance")
	}
	if from == to {
		return nil
	}
	toBal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := t.balances.Set(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return t.balances.Set(to, toBal.Add(toBal, amount))
}

func (t *Token) onlyOwner(caller core.Address) error {
	owner, err := t.owner.Get()
	if err != nil {
		return errors.WithMessage(err, "token owner")
	}
	if owner != caller {
		return reverts.NewUnauthorized("token: caller is not the owner")
	}
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return reverts.New("token: invalid amount")
	}
	return nil
}
