package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS field_values (
	id TEXT PRIMARY KEY,
	content_item_id TEXT NOT NULL,
	field_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	format TEXT NOT NULL,
	value TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (content_item_id, field_name)
);
CREATE INDEX IF NOT EXISTS idx_field_values_item ON field_values(content_item_id);
`

// SQLiteStore implements FieldStore on a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Op: "open", Entity: "store", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}
	// One writer at a time avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, &StorageError{Op: "open", Entity: "store", Err: err}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectField = `SELECT id, content_item_id, field_name, kind, format, value, created_at, updated_at FROM field_values`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanField(row rowScanner) (*FieldValue, error) {
	var (
		fv               FieldValue
		created, updated string
	)
	if err := row.Scan(&fv.ID, &fv.ContentItemID, &fv.FieldName, &fv.Kind, &fv.Format, &fv.Value, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if fv.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, ErrStorageCorrupt
	}
	if fv.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, ErrStorageCorrupt
	}
	return &fv, nil
}

func (s *SQLiteStore) GetField(ctx context.Context, contentItemID, fieldName string) (*FieldValue, error) {
	key := fieldKey(contentItemID, fieldName)
	row := s.db.QueryRowContext(ctx, selectField+` WHERE content_item_id = ? AND field_name = ?`, contentItemID, fieldName)
	fv, err := scanField(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &StorageError{Op: "read", Entity: "field", ID: key, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Entity: "field", ID: key, Err: err}
	}
	return fv, nil
}

func (s *SQLiteStore) PutField(ctx context.Context, fv *FieldValue) error {
	if err := fv.validate(); err != nil {
		return &StorageError{Op: "write", Entity: "field", Err: err}
	}
	key := fv.Key()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "write", Entity: "field", ID: key, Err: err}
	}
	defer tx.Rollback()

	now := s.now().UTC()
	existing, err := scanField(tx.QueryRowContext(ctx, selectField+` WHERE content_item_id = ? AND field_name = ?`, fv.ContentItemID, fv.FieldName))
	switch {
	case err == nil:
		fv.ID = existing.ID
		fv.CreatedAt = existing.CreatedAt
	case errors.Is(err, sql.ErrNoRows):
		if fv.ID == "" {
			fv.ID = uuid.NewString()
		}
		fv.CreatedAt = now
	default:
		return &StorageError{Op: "write", Entity: "field", ID: key, Err: err}
	}
	fv.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO field_values (id, content_item_id, field_name, kind, format, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_item_id, field_name) DO UPDATE SET
			kind = excluded.kind,
			format = excluded.format,
			value = excluded.value,
			updated_at = excluded.updated_at
	`, fv.ID, fv.ContentItemID, fv.FieldName, fv.Kind, fv.Format, fv.Value,
		fv.CreatedAt.Format(time.RFC3339Nano), fv.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return &StorageError{Op: "write", Entity: "field", ID: key, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "write", Entity: "field", ID: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) DeleteField(ctx context.Context, contentItemID, fieldName string) error {
	key := fieldKey(contentItemID, fieldName)
	res, err := s.db.ExecContext(ctx, `DELETE FROM field_values WHERE content_item_id = ? AND field_name = ?`, contentItemID, fieldName)
	if err != nil {
		return &StorageError{Op: "delete", Entity: "field", ID: key, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &StorageError{Op: "delete", Entity: "field", ID: key, Err: ErrNotFound}
	}
	return nil
}

func (s *SQLiteStore) ListFields(ctx context.Context, contentItemID string) ([]*FieldValue, error) {
	rows, err := s.db.QueryContext(ctx, selectField+` WHERE content_item_id = ? ORDER BY field_name`, contentItemID)
	if err != nil {
		return nil, &StorageError{Op: "read", Entity: "field", ID: contentItemID, Err: err}
	}
	defer rows.Close()

	var out []*FieldValue
	for rows.Next() {
		fv, err := scanField(rows)
		if err != nil {
			return nil, &StorageError{Op: "read", Entity: "field", ID: contentItemID, Err: err}
		}
		out = append(out, fv)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "read", Entity: "field", ID: contentItemID, Err: err}
	}
	return out, nil
}
