// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"math/big"

	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/core"
)

// Event is a chef event as stored in db, stamped with its block and position.
type Event struct {
	BlockNumber uint32
	Index       uint32
	Kind        chef.EventKind
	Topic       core.Bytes32
	Pool        *uint64 // nil for events not bound to a pool
	Account     core.Address
	Amount      *big.Int
}

func newEvent(blockNum, index uint32, ev *chef.Event) *Event {
	e := &Event{
		BlockNumber: blockNum,
		Index:       index,
		Kind:        ev.Kind,
		Topic:       ev.Kind.Topic(),
		Account:     ev.Account,
		Amount:      new(big.Int),
	}
	if ev.Kind.HasPool() {
		pid := ev.Pool
		e.Pool = &pid
	}
	if ev.Amount != nil {
		e.Amount.Set(ev.Amount)
	}
	return e
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive block range. To below From leaves the range open ended.
type Range struct {
	From uint32
	To   uint32
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects events. All set fields must match; Kinds matches any of its members.
type Filter struct {
	Range   *Range
	Pool    *uint64
	Account *core.Address
	Kinds   []chef.EventKind
	Options *Options
	Order   Order // default asc
}
