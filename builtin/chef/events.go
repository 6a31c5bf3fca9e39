// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chef

import (
	"math/big"

	"github.com/vechain/farm/core"
)

// EventKind names an event emitted by the chef.
type EventKind string

const (
	EventDeposit           EventKind = "Deposit"
	EventWithdraw          EventKind = "Withdraw"
	EventEmergencyWithdraw EventKind = "EmergencyWithdraw"
	EventHarvest           EventKind = "Harvest"
	EventAddPool           EventKind = "AddPool"
	EventSetPool           EventKind = "SetPool"
	EventSetDev            EventKind = "SetDev"
	EventMigrate           EventKind = "Migrate"
)

var eventSignatures = map[EventKind]string{
	EventDeposit:           "Deposit(address,uint256,uint256)",
	EventWithdraw:          "Withdraw(address,uint256,uint256)",
	EventEmergencyWithdraw: "EmergencyWithdraw(address,uint256,uint256)",
	EventHarvest:           "Harvest(address,uint256,uint256)",
	EventAddPool:           "AddPool(address,uint256,uint256)",
	EventSetPool:           "SetPool(uint256,uint256)",
	EventSetDev:            "SetDev(address)",
	EventMigrate:           "Migrate(address,uint256,uint256)",
}

// EventKinds lists every kind in a stable order.
var EventKinds = []EventKind{
	EventDeposit, EventWithdraw, EventEmergencyWithdraw, EventHarvest,
	EventAddPool, EventSetPool, EventSetDev, EventMigrate,
}

// Topic returns the keccak256 of the event signature.
func (k EventKind) Topic() core.Bytes32 {
	return core.Keccak256([]byte(eventSignatures[k]))
}

// HasPool reports whether events of kind k refer to a pool.
func (k EventKind) HasPool() bool {
	return k != EventSetDev
}

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	_, ok := eventSignatures[k]
	return ok
}

// Event records a committed state change.
//
// Account is the user for staking events, the stake token for AddPool and Migrate,
// and the new dev for SetDev. Amount is the stake moved, the reward paid for Harvest,
// or the weight for AddPool and SetPool.
type Event struct {
	Kind    EventKind
	Pool    uint64
	Account core.Address
	Amount  *big.Int
}

func (c *Chef) emit(ev *Event) {
	if ev.Amount == nil {
		ev.Amount = new(big.Int)
	}
	c.events = append(c.events, ev)
}

// Drain returns the events of completed operations since the last drain, in order.
func (c *Chef) Drain() []*Event {
	events := c.events
	c.events = nil
	return events
}
