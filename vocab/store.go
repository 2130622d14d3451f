package vocab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/ccmark/dbopen"
)

// Kind selects labels or decorations in Store operations.
type Kind string

const (
	KindLabel      Kind = "label"
	KindDecoration Kind = "decoration"
)

var (
	// ErrNotFound is returned when removing a name that is not in the custom list.
	ErrNotFound = errors.New("vocab: not found")
	// ErrInvalidKind is returned for kinds other than label and decoration.
	ErrInvalidKind = errors.New("vocab: invalid kind")
)

// Store persists the custom vocabulary in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the vocabulary database at path.
func OpenStore(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{dbopen.WithMkdirAll(), dbopen.WithSchema(Schema)}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open database. The schema is applied.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("vocab: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the handle so change watchers can poll it.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func validKind(k Kind) error {
	if k != KindLabel && k != KindDecoration {
		return fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
	return nil
}

// Add appends name to the custom list of kind. An empty color keeps any
// existing override. Adding a name already present only updates its colour.
func (s *Store) Add(ctx context.Context, kind Kind, name, color string) error {
	if err := validKind(kind); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if color != "" {
		if err := ValidateColor(color); err != nil {
			return err
		}
	}
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vocab_entries (kind, key, name, listed, color, position, updated_at)
			VALUES (?, ?, ?, 1, ?,
				(SELECT COALESCE(MAX(position), 0) + 1 FROM vocab_entries WHERE kind = ?), ?)
			ON CONFLICT (kind, key) DO UPDATE SET
				listed = 1,
				color = CASE WHEN excluded.color = '' THEN vocab_entries.color ELSE excluded.color END,
				updated_at = excluded.updated_at`,
			string(kind), Key(name), strings.TrimSpace(name), color, string(kind), time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("vocab: add %s %q: %w", kind, name, err)
		}
		return nil
	})
}

// Remove drops name from the custom list of kind. A colour override on the
// same name survives so built-in names can keep custom colours.
func (s *Store) Remove(ctx context.Context, kind Kind, name string) error {
	if err := validKind(kind); err != nil {
		return err
	}
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		var color string
		err := tx.QueryRowContext(ctx,
			`SELECT color FROM vocab_entries WHERE kind = ? AND key = ? AND listed = 1`,
			string(kind), Key(name)).Scan(&color)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
		}
		if err != nil {
			return fmt.Errorf("vocab: remove %s %q: %w", kind, name, err)
		}
		if color == "" {
			_, err = tx.ExecContext(ctx, `DELETE FROM vocab_entries WHERE kind = ? AND key = ?`,
				string(kind), Key(name))
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE vocab_entries SET listed = 0, updated_at = ? WHERE kind = ? AND key = ?`,
				time.Now().UnixMilli(), string(kind), Key(name))
		}
		if err != nil {
			return fmt.Errorf("vocab: remove %s %q: %w", kind, name, err)
		}
		return nil
	})
}

// SetColor overrides the colour of name without listing it.
func (s *Store) SetColor(ctx context.Context, kind Kind, name, color string) error {
	if err := validKind(kind); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateColor(color); err != nil {
		return err
	}
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vocab_entries (kind, key, name, listed, color, position, updated_at)
			VALUES (?, ?, ?, 0, ?, 0, ?)
			ON CONFLICT (kind, key) DO UPDATE SET
				color = excluded.color,
				updated_at = excluded.updated_at`,
			string(kind), Key(name), strings.TrimSpace(name), color, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("vocab: set color %s %q: %w", kind, name, err)
		}
		return nil
	})
}

// ResetColors clears every colour override.
func (s *Store) ResetColors(ctx context.Context) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vocab_entries WHERE listed = 0`); err != nil {
			return fmt.Errorf("vocab: reset colors: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE vocab_entries SET color = '', updated_at = ?`, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("vocab: reset colors: %w", err)
		}
		return nil
	})
}

// Custom reads the stored custom vocabulary, lists in insertion order.
func (s *Store) Custom(ctx context.Context) (Custom, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, key, name, listed, color FROM vocab_entries
		ORDER BY kind, position, rowid`)
	if err != nil {
		return Custom{}, fmt.Errorf("vocab: query: %w", err)
	}
	defer rows.Close()

	c := Custom{LabelColors: map[string]string{}, DecorationColors: map[string]string{}}
	for rows.Next() {
		var kind, key, name, color string
		var listed bool
		if err := rows.Scan(&kind, &key, &name, &listed, &color); err != nil {
			return Custom{}, fmt.Errorf("vocab: scan: %w", err)
		}
		switch Kind(kind) {
		case KindLabel:
			if listed {
				c.Labels = append(c.Labels, name)
			}
			if color != "" {
				c.LabelColors[key] = color
			}
		case KindDecoration:
			if listed {
				c.Decorations = append(c.Decorations, name)
			}
			if color != "" {
				c.DecorationColors[key] = color
			}
		}
	}
	return c, rows.Err()
}

// Snapshot builds a Snapshot from the built-ins plus the stored custom part.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	c, err := s.Custom(ctx)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}
