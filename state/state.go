// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/vechain/farm/core"
	"github.com/vechain/farm/kv"
	"github.com/vechain/farm/metrics"
	"github.com/vechain/farm/stackedmap"
)

const (
	// StoragePrefix prefixes every storage slot persisted in the kv store.
	StoragePrefix = "s"

	storageCacheSize = 4096
)

var metricCommittedSlots = metrics.LazyLoadCounter("state_committed_slots_count")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr core.Address
	key  core.Bytes32
}

func (k storageKey) dbKey() []byte {
	b := make([]byte, 0, len(StoragePrefix)+core.AddressLength+32)
	b = append(b, StoragePrefix...)
	b = append(b, k.addr[:]...)
	return append(b, k.key[:]...)
}

// State manages contract storage with revisions.
// Changes are kept in memory until Commit writes them into the backing kv store.
type State struct {
	db    kv.GetPutter
	cache *lru.Cache // committed values
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object over the given kv store.
func New(db kv.GetPutter) *State {
	cache, _ := lru.New(storageCacheSize)
	s := &State{
		db:    db,
		cache: cache,
	}
	s.sm = stackedmap.New(s.storageGetter)
	s.sm.Push()
	return s
}

// storageGetter implements stackedmap.MapGetter.
func (s *State) storageGetter(key storageKey) (rlp.RawValue, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.(rlp.RawValue), true, nil
	}
	data, err := s.db.Get(key.dbKey())
	if err != nil {
		if s.db.IsNotFound(err) {
			s.cache.Add(key, rlp.RawValue(nil))
			return nil, false, nil
		}
		return nil, false, err
	}
	s.cache.Add(key, rlp.RawValue(data))
	return data, true, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr core.Address, key core.Bytes32) (core.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return core.Bytes32{}, err
	}
	if len(raw) == 0 {
		return core.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return core.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return core.Blake2b(raw), nil
	}
	return core.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr core.Address, key, value core.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr core.Address, key core.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr core.Address, key core.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
// Error returned by end will be absorbed by State instance.
func (s *State) EncodeStorage(addr core.Address, key core.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be absorbed by State instance.
func (s *State) DecodeStorage(addr core.Address, key core.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(max(revision, 1))
}

// Commit writes all uncommitted changes into the kv store in one batch, along with
// whatever the extra writers put. It returns the number of slots written.
func (s *State) Commit(extra ...func(kv.Putter) error) (int, error) {
	changes := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(key storageKey, value rlp.RawValue) bool {
		changes[key] = value
		return true
	})
	if len(changes) == 0 && len(extra) == 0 {
		return 0, nil
	}

	batch := s.db.NewBatch()
	for key, value := range changes {
		var err error
		if len(value) == 0 {
			err = batch.Delete(key.dbKey())
		} else {
			err = batch.Put(key.dbKey(), value)
		}
		if err != nil {
			return 0, &Error{err}
		}
	}
	for _, put := range extra {
		if err := put(batch); err != nil {
			return 0, err
		}
	}
	if err := batch.Write(); err != nil {
		return 0, &Error{err}
	}

	for key, value := range changes {
		s.cache.Add(key, value)
	}
	s.sm.PopTo(0)
	s.sm.Push()

	metricCommittedSlots().Add(int64(len(changes)))
	return len(changes), nil
}
