// Package ledger is the fund's append-only audit trail: orders and their
// fills, supervisory ticks and the compliance event stream, stored in SQLite.
package ledger

// Schema creates the ledger tables. Money and quantity columns are decimal
// strings.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	fund_id TEXT NOT NULL,
	asset TEXT NOT NULL,
	side TEXT NOT NULL,
	strategy TEXT NOT NULL,
	status TEXT NOT NULL,
	quantity TEXT NOT NULL,
	filled_quantity TEXT NOT NULL,
	average_price TEXT NOT NULL,
	total_fees TEXT NOT NULL,
	error TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_fund_created ON orders(fund_id, created_at DESC);

CREATE TABLE IF NOT EXISTS fills (
	order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	venue TEXT NOT NULL,
	slice INTEGER NOT NULL,
	quantity TEXT NOT NULL,
	price TEXT NOT NULL,
	fee TEXT NOT NULL,
	gas_cost TEXT NOT NULL,
	executed_at INTEGER NOT NULL,
	PRIMARY KEY (order_id, seq)
);

CREATE TABLE IF NOT EXISTS ticks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	fund_id TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	state TEXT NOT NULL,
	violations INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	rebalanced INTEGER NOT NULL,
	emergency_stop INTEGER NOT NULL,
	snapshot_version INTEGER NOT NULL,
	var99 REAL NOT NULL,
	current_drawdown REAL NOT NULL,
	report BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ticks_fund_started ON ticks(fund_id, started_at DESC);

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	severity TEXT NOT NULL,
	source TEXT NOT NULL,
	message TEXT NOT NULL,
	data BLOB,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_category_ts ON events(category, timestamp DESC);
`
