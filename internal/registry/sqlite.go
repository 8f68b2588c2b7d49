package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rzbill/medtrail/internal/storeerr"
	logpkg "github.com/rzbill/medtrail/pkg/log"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteRegistry stores roots in a single SQLite table.
// Uses WAL mode so readers are not blocked by the single writer.
type SQLiteRegistry struct {
	db     *sql.DB
	logger logpkg.Logger
	now    func() time.Time
}

// OpenSQLite creates or opens the database at path and applies the schema.
// Safe to call repeatedly on the same file.
func OpenSQLite(path string, logger logpkg.Logger) (*SQLiteRegistry, error) {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &SQLiteRegistry{db: db, logger: logger.With(logpkg.Component("registry")), now: time.Now}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteRegistry) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const upsertRoot = `
INSERT INTO roots (id, name, date_of_birth, attributes, updated_at_ms)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    date_of_birth = excluded.date_of_birth,
    attributes = excluded.attributes,
    updated_at_ms = excluded.updated_at_ms`

func (s *SQLiteRegistry) Put(ctx context.Context, root Root) (Root, error) {
	root, err := prepare(root, s.now())
	if err != nil {
		return Root{}, err
	}
	attrs, err := json.Marshal(root.Attributes)
	if err != nil {
		return Root{}, storeerr.InvalidArgument("encode attributes: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertRoot,
		root.ID.String(), root.Name, root.DateOfBirth, string(attrs), root.UpdatedAtMs); err != nil {
		return Root{}, s.classify(ctx, "put root", err)
	}
	s.logger.Debug("root stored", logpkg.Str("root_id", root.ID.String()))
	return root, nil
}

func (s *SQLiteRegistry) Get(ctx context.Context, id uuid.UUID) (Root, bool, error) {
	if id == uuid.Nil {
		return Root{}, false, storeerr.InvalidKey("root id is required")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, date_of_birth, attributes, updated_at_ms FROM roots WHERE id = ?`, id.String())
	root, err := scanRoot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Root{}, false, nil
	}
	if err != nil {
		return Root{}, false, s.classify(ctx, "get root", err)
	}
	return root, true, nil
}

func (s *SQLiteRegistry) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, storeerr.InvalidKey("root id is required")
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM roots WHERE id = ? LIMIT 1`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.classify(ctx, "exists", err)
	}
	return true, nil
}

func (s *SQLiteRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return storeerr.InvalidKey("root id is required")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM roots WHERE id = ?`, id.String()); err != nil {
		return s.classify(ctx, "delete root", err)
	}
	return nil
}

func (s *SQLiteRegistry) List(ctx context.Context, limit int) ([]Root, error) {
	q := `SELECT id, name, date_of_birth, attributes, updated_at_ms FROM roots ORDER BY id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.classify(ctx, "list roots", err)
	}
	defer rows.Close()
	var out []Root
	for rows.Next() {
		root, err := scanRoot(rows)
		if err != nil {
			return nil, s.classify(ctx, "list roots", err)
		}
		out = append(out, root)
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(ctx, "list roots", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoot(row rowScanner) (Root, error) {
	var (
		root  Root
		id    string
		attrs string
	)
	if err := row.Scan(&id, &root.Name, &root.DateOfBirth, &attrs, &root.UpdatedAtMs); err != nil {
		return Root{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Root{}, fmt.Errorf("stored root id %q: %w", id, err)
	}
	root.ID = parsed
	root.Attributes = map[string]string{}
	if err := json.Unmarshal([]byte(attrs), &root.Attributes); err != nil {
		return Root{}, fmt.Errorf("stored attributes: %w", err)
	}
	return root, nil
}

// classify passes context errors through and marks everything else as a
// storage failure.
func (s *SQLiteRegistry) classify(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return storeerr.Unavailable(op, err)
}
