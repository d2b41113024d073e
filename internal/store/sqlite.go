package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nhdewitt/ticker-from-tcp/internal/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL UNIQUE,
	price REAL NOT NULL,
	change REAL NOT NULL,
	change_percent REAL NOT NULL,
	high_price REAL NOT NULL,
	low_price REAL NOT NULL,
	open_price REAL NOT NULL,
	previous_close REAL NOT NULL,
	last_updated TEXT NOT NULL
)`

const upsert = `
INSERT INTO symbols (
	symbol, price, change, change_percent, high_price, low_price, open_price,
	previous_close, last_updated
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol) DO UPDATE SET
	price = excluded.price,
	change = excluded.change,
	change_percent = excluded.change_percent,
	high_price = excluded.high_price,
	low_price = excluded.low_price,
	open_price = excluded.open_price,
	previous_close = excluded.previous_close,
	last_updated = excluded.last_updated
RETURNING id`

const selectColumns = `
SELECT id, symbol, price, change, change_percent, high_price, low_price,
	open_price, previous_close, last_updated
FROM symbols`

// SQLite persists symbols in a single table. It is safe for concurrent use
// and one value is shared by every route.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save inserts the symbol or updates the existing row with the same ticker,
// returning the row id.
func (s *SQLite) Save(ctx context.Context, sym market.Symbol) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, upsert,
		sym.Symbol,
		sym.Price,
		sym.Change,
		sym.ChangePercent,
		sym.HighPrice,
		sym.LowPrice,
		sym.OpenPrice,
		sym.PreviousClose,
		sym.LastUpdated.UTC().Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving symbol %s: %w", sym.Symbol, err)
	}
	return id, nil
}

// All returns every symbol ordered by ticker.
func (s *SQLite) All(ctx context.Context) ([]market.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	defer rows.Close()

	var symbols []market.Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	return symbols, nil
}

// ByTicker looks up one symbol. found is false when no row exists.
func (s *SQLite) ByTicker(ctx context.Context, ticker string) (sym market.Symbol, found bool, err error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE symbol = ?", ticker)
	sym, err = scanSymbol(row)
	if errors.Is(err, sql.ErrNoRows) {
		return market.Symbol{}, false, nil
	}
	if err != nil {
		return market.Symbol{}, false, err
	}
	return sym, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row scanner) (market.Symbol, error) {
	var (
		sym         market.Symbol
		lastUpdated string
	)
	err := row.Scan(
		&sym.ID,
		&sym.Symbol,
		&sym.Price,
		&sym.Change,
		&sym.ChangePercent,
		&sym.HighPrice,
		&sym.LowPrice,
		&sym.OpenPrice,
		&sym.PreviousClose,
		&lastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return sym, err
	}
	if err != nil {
		return sym, fmt.Errorf("scanning symbol: %w", err)
	}

	sym.LastUpdated, err = time.Parse(time.RFC3339Nano, lastUpdated)
	if err != nil {
		return sym, fmt.Errorf("parsing last_updated of %s: %w", sym.Symbol, err)
	}
	return sym, nil
}
