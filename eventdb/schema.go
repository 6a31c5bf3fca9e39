// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	blockNumber INTEGER NOT NULL,
	eventIndex INTEGER NOT NULL,
	kind TEXT NOT NULL,
	topic BLOB(32) NOT NULL,
	pool INTEGER,
	account BLOB(20) NOT NULL,
	amount BLOB NOT NULL,
	PRIMARY KEY (blockNumber, eventIndex)
);

CREATE INDEX IF NOT EXISTS eventPoolIndex ON event(pool);
CREATE INDEX IF NOT EXISTS eventAccountIndex ON event(account);
CREATE INDEX IF NOT EXISTS eventKindIndex ON event(kind);
`
