// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lvldb is the goleveldb backed kv store holding the farm state.
package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/vechain/farm/kv"
	"github.com/vechain/farm/log"
	"github.com/vechain/farm/metrics"
)

var _ kv.GetPutCloser = (*LevelDB)(nil)

var (
	logger = log.WithContext("pkg", "lvldb")

	metricBatchWrites = metrics.LazyLoadCounter("lvldb_batch_write_count")
	metricBatchOps    = metrics.LazyLoadHistogramVec("lvldb_batch_ops", []string{"result"}, []int64{1, 4, 16, 64, 256, 1024})

	writeOpt = opt.WriteOptions{}
	readOpt  = opt.ReadOptions{}
)

// Options tunes a persistent instance. Both values are floored at 16.
type Options struct {
	CacheSize              int // MiB
	OpenFilesCacheCapacity int
}

// LevelDB is a kv.GetPutCloser over goleveldb.
type LevelDB struct {
	db *leveldb.DB
}

// New opens the db at path, creating it if missing.
func New(path string, opts Options) (*LevelDB, error) {
	cacheSize := max(opts.CacheSize, 16)
	db, err := leveldb.OpenFile(path, &opt.Options{
		OpenFilesCacheCapacity: max(opts.OpenFilesCacheCapacity, 16),
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open level db at '%v'", path)
	}
	logger.Debug("opened", "path", path, "cache", cacheSize)
	return &LevelDB{db: db}, nil
}

// NewMem opens an empty in-memory db.
func NewMem() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "open mem level db")
	}
	return &LevelDB{db: db}, nil
}

func (ldb *LevelDB) IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

// Get returns the value of key, or an error satisfying IsNotFound.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	return ldb.db.Get(key, &readOpt)
}

func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, &readOpt)
}

func (ldb *LevelDB) Put(key, value []byte) error {
	return ldb.db.Put(key, value, &writeOpt)
}

func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, &writeOpt)
}

// Close closes the db. Later operations all fail.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}

// NewBatch returns a batch applied atomically on Write.
func (ldb *LevelDB) NewBatch() kv.Batch {
	return &batch{ldb.db, new(leveldb.Batch)}
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Len() int {
	return b.b.Len()
}

func (b *batch) Write() error {
	err := b.db.Write(b.b, &writeOpt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metricBatchWrites().Add(1)
	metricBatchOps().ObserveWithLabels(int64(b.b.Len()), map[string]string{"result": result})
	return err
}
