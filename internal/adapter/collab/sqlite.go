// Package collab holds the collaborative-filtering path: a SQLite table of
// user-item interactions and a user-based neighbour model trained from it.
package collab

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"bookrec/internal/domain"
)

const latestVersion = 2

// SQLiteStore persists interactions in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the interactions database and brings
// its schema up to date.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// modernc's driver serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) version(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return 0, err
	}
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(0)`)
		return 0, err
	}
	return v, err
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	cur, err := s.version(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	for v := cur + 1; v <= latestVersion; v++ {
		if err := s.up(ctx, v); err != nil {
			return fmt.Errorf("migrate up to v%d: %w", v, err)
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE schema_migrations SET version=?`, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) up(ctx context.Context, v int) error {
	var stmts []string
	switch v {
	case 1:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS interactions (
				user_id INTEGER NOT NULL,
				item_id INTEGER NOT NULL,
				rating REAL NOT NULL DEFAULT 1,
				PRIMARY KEY (user_id, item_id)
			)`,
		}
	case 2:
		stmts = []string{
			`CREATE INDEX IF NOT EXISTS idx_interactions_item ON interactions(item_id)`,
		}
	}
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// PutInteractions upserts interactions in one transaction. A repeated
// (user, item) pair keeps the latest rating.
func (s *SQLiteStore) PutInteractions(ctx context.Context, interactions []domain.Interaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO interactions(user_id, item_id, rating) VALUES(?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET rating=excluded.rating`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, in := range interactions {
		if _, err := stmt.ExecContext(ctx, in.UserID, in.ItemID, in.Rating); err != nil {
			return fmt.Errorf("failed to store interaction (%d, %d): %w", in.UserID, in.ItemID, err)
		}
	}
	return tx.Commit()
}

// ListInteractions returns every interaction ordered by user then item.
func (s *SQLiteStore) ListInteractions(ctx context.Context) ([]domain.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, item_id, rating FROM interactions ORDER BY user_id, item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var in domain.Interaction
		if err := rows.Scan(&in.UserID, &in.ItemID, &in.Rating); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM interactions`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReadCSV parses user_id,item_id[,rating] rows. A header row is skipped when
// its first field is not a number; a missing rating counts as 1.
func ReadCSV(r io.Reader) ([]domain.Interaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []domain.Interaction
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected user_id,item_id[,rating]", domain.ErrInvalidArgument, line)
		}

		user, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: bad user id %q", domain.ErrInvalidArgument, line, rec[0])
		}
		item, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad item id %q", domain.ErrInvalidArgument, line, rec[1])
		}
		rating := 1.0
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			rating, err = strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
			if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
				return nil, fmt.Errorf("%w: line %d: bad rating %q", domain.ErrInvalidArgument, line, rec[2])
			}
		}
		out = append(out, domain.Interaction{UserID: user, ItemID: item, Rating: rating})
	}
	return out, nil
}
