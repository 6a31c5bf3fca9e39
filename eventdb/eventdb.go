// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb keeps the history of chef events in sqlite.
package eventdb

import (
	"context"
	"database/sql"
	"math/big"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/farm/builtin/chef"
	"github.com/vechain/farm/core"
	"github.com/vechain/farm/log"
)

var logger = log.WithContext("pkg", "eventdb")

type EventDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New creates or opens the event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	// an in-memory database lives only as long as its connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("event db opened", "path", path, "sqlite", driverVer)
	return &EventDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem creates an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the event db.
func (db *EventDB) Close() error {
	return db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Prepare starts a batch for the events of one block.
func (db *EventDB) Prepare(blockNum uint32) *BlockBatch {
	return &BlockBatch{
		db:       db.db,
		blockNum: blockNum,
	}
}

// LastBlock returns the highest block number holding events.
func (db *EventDB) LastBlock(ctx context.Context) (uint32, bool, error) {
	var n sql.NullInt64
	if err := db.db.QueryRowContext(ctx, "SELECT MAX(blockNumber) FROM event").Scan(&n); err != nil {
		return 0, false, err
	}
	if !n.Valid {
		return 0, false, nil
	}
	return uint32(n.Int64), true, nil
}

func (db *EventDB) FilterEvents(ctx context.Context, filter *Filter) ([]*Event, error) {
	const query = "SELECT blockNumber, eventIndex, kind, topic, pool, account, amount FROM event"
	if filter == nil {
		return db.queryEvents(ctx, query+" ORDER BY blockNumber ASC, eventIndex ASC")
	}
	metricsHandleFilter(filter)

	var args []any
	stmt := query + " WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND blockNumber >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND blockNumber <= ?"
		}
	}
	if filter.Pool != nil {
		args = append(args, int64(*filter.Pool))
		stmt += " AND pool = ?"
	}
	if filter.Account != nil {
		args = append(args, filter.Account.Bytes())
		stmt += " AND account = ?"
	}
	if len(filter.Kinds) > 0 {
		marks := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			args = append(args, string(k))
			marks = append(marks, "?")
		}
		stmt += " AND kind IN (" + strings.Join(marks, ",") + ")"
	}

	if filter.Order == DESC {
		stmt += " ORDER BY blockNumber DESC, eventIndex DESC"
	} else {
		stmt += " ORDER BY blockNumber ASC, eventIndex ASC"
	}

	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *EventDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			blockNumber uint32
			index       uint32
			kind        string
			topic       []byte
			pool        sql.NullInt64
			account     []byte
			amount      []byte
		)
		if err := rows.Scan(
			&blockNumber,
			&index,
			&kind,
			&topic,
			&pool,
			&account,
			&amount,
		); err != nil {
			return nil, err
		}
		ev := &Event{
			BlockNumber: blockNumber,
			Index:       index,
			Kind:        chef.EventKind(kind),
			Topic:       core.BytesToBytes32(topic),
			Account:     core.BytesToAddress(account),
			Amount:      new(big.Int).SetBytes(amount),
		}
		if pool.Valid {
			pid := uint64(pool.Int64)
			ev.Pool = &pid
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// BlockBatch collects the events of one block and writes them in one transaction.
type BlockBatch struct {
	db       *sql.DB
	blockNum uint32
	events   []*Event
}

// Insert appends events in emission order.
func (bb *BlockBatch) Insert(events ...*chef.Event) *BlockBatch {
	for _, ev := range events {
		bb.events = append(bb.events, newEvent(bb.blockNum, uint32(len(bb.events)), ev))
	}
	return bb
}

// Events returns the stamped events of the batch.
func (bb *BlockBatch) Events() []*Event {
	return bb.events
}

func (bb *BlockBatch) execInTx(proc func(*sql.Tx) error) error {
	tx, err := bb.db.Begin()
	if err != nil {
		return err
	}
	if err := proc(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Commit writes the batch, replacing whatever was stored for the block before.
func (bb *BlockBatch) Commit() error {
	err := bb.execInTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM event WHERE blockNumber = ?", bb.blockNum); err != nil {
			return err
		}
		for _, ev := range bb.events {
			var pool any
			if ev.Pool != nil {
				pool = int64(*ev.Pool)
			}
			if _, err := tx.Exec("INSERT INTO event(blockNumber, eventIndex, kind, topic, pool, account, amount) VALUES (?, ?, ?, ?, ?, ?, ?)",
				ev.BlockNumber,
				ev.Index,
				string(ev.Kind),
				ev.Topic.Bytes(),
				pool,
				ev.Account.Bytes(),
				ev.Amount.Bytes(),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "commit block %d", bb.blockNum)
	}
	metricCommittedEvents().Add(int64(len(bb.events)))
	return nil
}
