package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradingdna/evolve/pkg/types"
)

// exchangeID resolves (or creates) the row id for an exchange name.
func (s *Store) exchangeID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM exchanges WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO exchanges (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert exchange %s: %w", name, err)
	}
	return res.LastInsertId()
}

// symbolID resolves (or creates) the row id for (exchangeID, symbol).
func (s *Store) symbolID(ctx context.Context, exchangeID int64, symbol string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM symbols WHERE exchange_id = ? AND symbol = ?`, exchangeID, symbol).Scan(&id)
	if err == nil {
		return id, nil
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO symbols (exchange_id, symbol) VALUES (?,?)`, exchangeID, symbol)
	if err != nil {
		return 0, fmt.Errorf("insert symbol %s: %w", symbol, err)
	}
	return res.LastInsertId()
}

// SaveMarketData persists a validated OHLCV window for (exchange, symbol,
// timeframe), ignoring bars that already exist at that timestamp (the
// `(exchange_id, symbol_id, timeframe, timestamp)` uniqueness constraint
// from spec 6). Every bar is checked with types.OHLCV.Valid before anything
// is written, and the whole batch is rejected on the first invalid bar
// rather than silently dropping it.
func (s *Store) SaveMarketData(ctx context.Context, exchange, symbol, timeframe string, bars []types.OHLCV) error {
	for i, b := range bars {
		if !b.Valid() {
			return fmt.Errorf("bar %d for %s/%s/%s violates OHLCV invariants", i, exchange, symbol, timeframe)
		}
	}

	exID, err := s.exchangeID(ctx, exchange)
	if err != nil {
		return err
	}
	symID, err := s.symbolID(ctx, exID, symbol)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO market_data (
			exchange_id, symbol_id, timeframe, timestamp, open, high, low, close, volume
		) VALUES (?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, exID, symID, timeframe, b.Timestamp.UnixNano(),
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume.String())
		if err != nil {
			return fmt.Errorf("insert bar at %s: %w", b.Timestamp, err)
		}
	}
	return tx.Commit()
}

// LoadMarketData reads bars for (exchange, symbol, timeframe) within
// [start, end], ordered by timestamp ascending.
func (s *Store) LoadMarketData(ctx context.Context, exchange, symbol, timeframe string, start, end time.Time) ([]types.OHLCV, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT md.timestamp, md.open, md.high, md.low, md.close, md.volume
		FROM market_data md
		JOIN exchanges e ON e.id = md.exchange_id
		JOIN symbols s ON s.id = md.symbol_id
		WHERE e.name = ? AND s.symbol = ? AND md.timeframe = ? AND md.timestamp BETWEEN ? AND ?
		ORDER BY md.timestamp ASC
	`, exchange, symbol, timeframe, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query market_data: %w", err)
	}
	defer rows.Close()

	var out []types.OHLCV
	for rows.Next() {
		var ts int64
		var o, h, l, c, v string
		if err := rows.Scan(&ts, &o, &h, &l, &c, &v); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bar := types.OHLCV{Timestamp: time.Unix(0, ts)}
		bar.Open, err = decimal.NewFromString(o)
		if err != nil {
			return nil, fmt.Errorf("parse open: %w", err)
		}
		bar.High, err = decimal.NewFromString(h)
		if err != nil {
			return nil, fmt.Errorf("parse high: %w", err)
		}
		bar.Low, err = decimal.NewFromString(l)
		if err != nil {
			return nil, fmt.Errorf("parse low: %w", err)
		}
		bar.Close, err = decimal.NewFromString(c)
		if err != nil {
			return nil, fmt.Errorf("parse close: %w", err)
		}
		bar.Volume, err = decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("parse volume: %w", err)
		}
		out = append(out, bar)
	}
	return out, rows.Err()
}
