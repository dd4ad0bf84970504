package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the local ledger schema: customers keyed by phone and
// sales keyed by an autoincrement id, each with its lookup indexes.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS customers (
            phone TEXT PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            business TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE INDEX IF NOT EXISTS by_name ON customers (name);`,
		`CREATE INDEX IF NOT EXISTS by_business ON customers (business);`,
		`CREATE INDEX IF NOT EXISTS by_address ON customers (address);`,
		`CREATE TABLE IF NOT EXISTS sales (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            date TEXT NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            business TEXT NOT NULL DEFAULT '',
            address TEXT NOT NULL DEFAULT '',
            kgs REAL NOT NULL DEFAULT 0,
            price REAL NOT NULL DEFAULT 0,
            total REAL NOT NULL DEFAULT 0,
            payment_type TEXT NOT NULL DEFAULT 'unspecified',
            cash REAL NOT NULL DEFAULT 0,
            online REAL NOT NULL DEFAULT 0,
            paid_amount REAL NOT NULL DEFAULT 0,
            remaining REAL NOT NULL DEFAULT 0,
            created_at INTEGER NOT NULL,
            synced INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS by_phone ON sales (phone);`,
		`CREATE INDEX IF NOT EXISTS by_remaining ON sales (remaining);`,
		`CREATE INDEX IF NOT EXISTS by_date ON sales (date);`,
		`CREATE INDEX IF NOT EXISTS by_synced ON sales (synced);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}
}
