package database

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/wonderpick/internal/recommend"
)

// ReadAll returns every record in insertion order.
func (db *DB) ReadAll(ctx context.Context) ([]recommend.Record, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT start, result FROM wonder_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	recs := []recommend.Record{}
	for rows.Next() {
		var r recommend.Record
		if err := rows.Scan(&r.Start, &r.Result); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Append inserts a single record.
func (db *DB) Append(ctx context.Context, rec recommend.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO wonder_records (start, result) VALUES (?, ?)`,
		rec.Start, rec.Result,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// ImportRecords appends recs in one transaction. Either all are stored or none.
func (db *DB) ImportRecords(ctx context.Context, recs []recommend.Record) (int, error) {
	for i, rec := range recs {
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO wonder_records (start, result) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.Start, rec.Result); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(recs), nil
}

// GetRecords returns stored rows, optionally only those with the given start
// position (start == 0 means all), newest first, at most limit rows (0 = no limit).
func (db *DB) GetRecords(ctx context.Context, start, limit int) ([]StoredRecord, error) {
	query := `SELECT id, start, result, COALESCE(recorded_at, '') FROM wonder_records`
	var args []any
	if start != 0 {
		query += ` WHERE start = ?`
		args = append(args, start)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var r StoredRecord
		if err := rows.Scan(&r.ID, &r.Start, &r.Result, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStart: make(map[int]int)}

	rows, err := db.conn.QueryContext(ctx, `SELECT start, COUNT(*) FROM wonder_records GROUP BY start`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var start, n int
		if err := rows.Scan(&start, &n); err != nil {
			return nil, err
		}
		stats.ByStart[start] = n
		stats.TotalRecords += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.TotalRecords > 0 {
		var last string
		if err := db.conn.QueryRowContext(ctx, `SELECT MAX(recorded_at) FROM wonder_records`).Scan(&last); err != nil {
			return nil, err
		}
		stats.LastRecorded = &last
	}
	return stats, nil
}
