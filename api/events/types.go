// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/eventdb"
)

type Range struct {
	From *uint32 `json:"from"`
	To   *uint32 `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type EventFilter struct {
	Range   *Range           `json:"range"`
	Pool    *uint64          `json:"pool"`
	Account *core.Address    `json:"account"`
	Kinds   []chef.EventKind `json:"kinds"`
	Options *Options         `json:"options"`
	Order   eventdb.Order    `json:"order"`
}

// FilteredEvent is an event as returned by the api.
type FilteredEvent struct {
	BlockNumber uint32                `json:"blockNumber"`
	Index       uint32                `json:"index"`
	Kind        chef.EventKind        `json:"kind"`
	Topic       core.Bytes32          `json:"topic"`
	Pool        *uint64               `json:"pool"`
	Account     core.Address          `json:"account"`
	Amount      *math.HexOrDecimal256 `json:"amount"`
}

// ConvertEvent converts a stored event into its api form.
func ConvertEvent(ev *eventdb.Event) *FilteredEvent {
	fe := &FilteredEvent{
		BlockNumber: ev.BlockNumber,
		Index:       ev.Index,
		Kind:        ev.Kind,
		Topic:       ev.Topic,
		Account:     ev.Account,
		Amount:      (*math.HexOrDecimal256)(new(big.Int)),
	}
	if ev.Pool != nil {
		pid := *ev.Pool
		fe.Pool = &pid
	}
	if ev.Amount != nil {
		(*big.Int)(fe.Amount).Set(ev.Amount)
	}
	return fe
}

// Matches reports whether ev satisfies the filter, ignoring range and paging.
func (f *EventFilter) Matches(ev *eventdb.Event) bool {
	if f == nil {
		return true
	}
	if f.Pool != nil && (ev.Pool == nil || *ev.Pool != *f.Pool) {
		return false
	}
	if f.Account != nil && *f.Account != ev.Account {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == ev.Kind {
			return true
		}
	}
	return false
}

// Validate rejects filters the db cannot serve.
func (f *EventFilter) Validate() error {
	if f.Range != nil && f.Range.From != nil && f.Range.To != nil && *f.Range.From > *f.Range.To {
		return fmt.Errorf("range.to must be greater than or equal to range.from")
	}
	for i, k := range f.Kinds {
		if !k.Valid() {
			return fmt.Errorf("kinds[%d]: unknown event kind %q", i, k)
		}
	}
	switch f.Order {
	case "", eventdb.ASC, eventdb.DESC:
	default:
		return fmt.Errorf("order: must be %q or %q", eventdb.ASC, eventdb.DESC)
	}
	return nil
}

// convertFilter converts the api filter to a db filter.
func convertFilter(f *EventFilter) *eventdb.Filter {
	filter := &eventdb.Filter{
		Pool:    f.Pool,
		Account: f.Account,
		Kinds:   f.Kinds,
		Order:   f.Order,
	}
	if f.Range != nil {
		r := &eventdb.Range{}
		if f.Range.From != nil {
			r.From = *f.Range.From
		}
		r.To = ^uint32(0)
		if f.Range.To != nil {
			r.To = *f.Range.To
		}
		filter.Range = r
	}
	if f.Options != nil {
		filter.Options = &eventdb.Options{
			Offset: f.Options.Offset,
			Limit:  f.Options.Limit,
		}
	}
	return filter
}
