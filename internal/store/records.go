package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/prequel/internal/ir"
	"github.com/roach88/prequel/internal/queryir"
	"github.com/roach88/prequel/internal/querysql"
)

// ErrNotFound is returned when no record exists for a (model, key) pair.
var ErrNotFound = errors.New("record not found")

// Entry is one stored record with its key.
type Entry struct {
	Key    ir.Key
	Record ir.Record
}

// Put stores a record under key, replacing the attributes of an existing
// record. A replaced record keeps its original position in key order.
//
// Attributes are serialized to canonical JSON per RFC 8785.
func (s *Store) Put(ctx context.Context, model string, key ir.Key, rec ir.Record) error {
	if model == "" {
		return fmt.Errorf("put: model name is required")
	}
	if key == "" {
		return fmt.Errorf("put %s: key is required", model)
	}

	attrs, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", model, key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (model, record_key, seq, attrs)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records), ?)
		ON CONFLICT(model, record_key) DO UPDATE SET attrs = excluded.attrs
	`, model, string(key), attrs)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", model, key, err)
	}
	return nil
}

// Insert stores a record under a freshly generated key and returns the key.
func (s *Store) Insert(ctx context.Context, model string, rec ir.Record) (ir.Key, error) {
	key := ir.Key(s.keys.Generate())
	if err := s.Put(ctx, model, key, rec); err != nil {
		return "", err
	}
	return key, nil
}

// Get returns the record stored under (model, key), or ErrNotFound.
func (s *Store) Get(ctx context.Context, model string, key ir.Key) (ir.Record, error) {
	var attrs string
	err := s.db.QueryRowContext(ctx,
		"SELECT attrs FROM records WHERE model = ? AND record_key = ?",
		model, string(key),
	).Scan(&attrs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", model, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", model, key, err)
	}

	rec, err := unmarshalRecord(attrs)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", model, key, err)
	}
	return rec, nil
}

// Delete removes a record and reports whether it existed.
func (s *Store) Delete(ctx context.Context, model string, key ir.Key) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM records WHERE model = ? AND record_key = ?",
		model, string(key),
	)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", model, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", model, key, err)
	}
	return n > 0, nil
}

// Keys returns every key of a model in insertion order.
func (s *Store) Keys(ctx context.Context, model string) ([]ir.Key, error) {
	return s.SelectKeys(ctx, queryir.Select{From: model}, nil)
}

// Count returns the number of records of a model.
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE model = ?", model,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", model, err)
	}
	return n, nil
}

// Scan returns every record of a model in insertion order.
func (s *Store) Scan(ctx context.Context, model string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_key, attrs FROM records
		WHERE model = ?
		ORDER BY seq ASC, record_key COLLATE BINARY ASC
	`, model)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", model, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var key, attrs string
		if err := rows.Scan(&key, &attrs); err != nil {
			return nil, fmt.Errorf("scan %s: %w", model, err)
		}
		rec, err := unmarshalRecord(attrs)
		if err != nil {
			return nil, fmt.Errorf("scan %s/%s: %w", model, key, err)
		}
		out = append(out, Entry{Key: ir.Key(key), Record: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", model, err)
	}
	return out, nil
}

// SelectKeys returns the keys of records matching sel, in insertion order.
//
// The filter runs in SQLite when querysql can render it, otherwise each
// record is evaluated in memory.
func (s *Store) SelectKeys(ctx context.Context, sel queryir.Select, args queryir.Args) ([]ir.Key, error) {
	query, params, err := querysql.NewSQLCompiler(args).Compile(sel)
	if errors.Is(err, querysql.ErrUnsupported) {
		slog.Debug("filter not expressible in SQL, scanning", "model", sel.From, "reason", err)
		return s.selectByScan(ctx, sel, args)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", sel.From, err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", sel.From, err)
	}
	defer rows.Close()

	keys := []ir.Key{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("select %s: %w", sel.From, err)
		}
		keys = append(keys, ir.Key(key))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", sel.From, err)
	}
	return keys, nil
}

func (s *Store) selectByScan(ctx context.Context, sel queryir.Select, args queryir.Args) ([]ir.Key, error) {
	pred, err := queryir.Eval(sel.Filter, args)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", sel.From, err)
	}
	entries, err := s.Scan(ctx, sel.From)
	if err != nil {
		return nil, err
	}

	keys := []ir.Key{}
	for _, e := range entries {
		if pred == nil || pred(recordAttrs(e.Record)) {
			keys = append(keys, e.Key)
		}
	}
	return keys, nil
}

// recordAttrs adapts a record to keyset.Attributes.
type recordAttrs ir.Record

func (r recordAttrs) Attr(name string) ir.Value {
	return ir.Record(r).Get(name)
}

// marshalRecord converts a record to canonical JSON TEXT for storage.
func marshalRecord(rec ir.Record) (string, error) {
	if rec == nil {
		rec = ir.Record{}
	}
	data, err := rec.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal attrs: %w", err)
	}
	return string(data), nil
}

// unmarshalRecord parses stored JSON TEXT. Integers decode exactly via
// json.Number, so values beyond 2^53 survive a round trip.
func unmarshalRecord(data string) (ir.Record, error) {
	var rec ir.Record
	if err := rec.UnmarshalJSON([]byte(data)); err != nil {
		return nil, fmt.Errorf("unmarshal attrs: %w", err)
	}
	return rec, nil
}
