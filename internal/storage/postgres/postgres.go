// Package postgres implements storage.Client on a single jsonb-backed records table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ storage.Client = (*Store)(nil)

// Open connects with the pgx stdlib driver, checks the connection and applies the embedded
// schema.
func Open(ctx context.Context, url string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := Migrate(ctx, db, false); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return &Store{db: db, log: log}, nil
}

// Migrate applies (or, with down, rolls back one step of) the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, down bool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if down {
		return goose.DownContext(ctx, db, "migrations")
	}
	return goose.UpContext(ctx, db, "migrations")
}

// OpenDB opens a raw connection for the migrate CLI command.
func OpenDB(url string) (*sql.DB, error) {
	return sql.Open("pgx", url)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, q storage.Query) (*storage.Record, error) {
	where, args, err := Where(q)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, selectSQL+" WHERE "+where+" ORDER BY seq LIMIT 1", args...)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return rec, err
}

func (s *Store) Find(ctx context.Context, q storage.Query) ([]*storage.Record, error) {
	where, args, err := Where(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, selectSQL+" WHERE "+where+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Add(ctx context.Context, typ string, data map[string]any) (*storage.Record, error) {
	raw, err := marshalData(data)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO records (id, type, data) VALUES ($1, $2, $3::jsonb) RETURNING `+columns,
		uuid.NewString(), typ, raw)
	return scan(row)
}

func (s *Store) Update(ctx context.Context, r *storage.Record) (*storage.Record, error) {
	raw, err := marshalData(r.Data)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`UPDATE records SET data = $1::jsonb, updated_at = now() WHERE id = $2 AND type = $3 RETURNING `+columns,
		raw, r.ID, r.Type)
	rec, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return rec, err
}

func (s *Store) Delete(ctx context.Context, r *storage.Record) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1 AND type = $2`, r.ID, r.Type)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const columns = "id, type, data, created_at, updated_at"

const selectSQL = "SELECT " + columns + " FROM records"

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*storage.Record, error) {
	var (
		rec storage.Record
		raw []byte
	)
	if err := row.Scan(&rec.ID, &rec.Type, &raw, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &rec.Data); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	return &rec, nil
}

func marshalData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode record data: %w", err)
	}
	return string(raw), nil
}

// Where renders q as a SQL predicate with positional arguments. Field names are always
// passed as arguments, never interpolated.
func Where(q storage.Query) (string, []any, error) {
	b := &builder{args: []any{q.Type}}
	clause := "type = $1"
	if q.Where != nil {
		cond, err := b.render(q.Where)
		if err != nil {
			return "", nil, err
		}
		clause += " AND " + cond
	}
	return clause, b.args, nil
}

type builder struct {
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) render(c storage.Condition) (string, error) {
	switch c := c.(type) {
	case storage.Group:
		return b.group(c)
	case *storage.Group:
		return b.group(*c)
	case storage.Compare:
		return b.compare(c)
	case *storage.Compare:
		return b.compare(*c)
	}
	return "", fmt.Errorf("unsupported condition %T", c)
}

func (b *builder) group(g storage.Group) (string, error) {
	var sep, empty string
	switch g.Op {
	case storage.OpAnd:
		sep, empty = " AND ", "TRUE"
	case storage.OpOr:
		sep, empty = " OR ", "FALSE"
	default:
		return "", fmt.Errorf("unsupported group operator %q", g.Op)
	}
	if len(g.Conds) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(g.Conds))
	for _, c := range g.Conds {
		p, err := b.render(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (b *builder) compare(c storage.Compare) (string, error) {
	switch c.Op {
	case storage.OpEq, storage.OpNe:
		raw, err := json.Marshal(map[string]any{c.Field: c.Value})
		if err != nil {
			return "", err
		}
		eq := "data @> " + b.arg(string(raw)) + "::jsonb"
		if c.Op == storage.OpNe {
			return "NOT (" + eq + ")", nil
		}
		return eq, nil
	case storage.OpLt, storage.OpGt:
		op := "<"
		if c.Op == storage.OpGt {
			op = ">"
		}
		field := b.arg(c.Field)
		if storage.IsNumber(c.Value) {
			return fmt.Sprintf("(data->>%s)::numeric %s %s", field, op, b.arg(c.Value)), nil
		}
		return fmt.Sprintf("data->>%s %s %s", field, op, b.arg(fmt.Sprint(c.Value))), nil
	}
	return "", fmt.Errorf("unsupported comparison operator %q", c.Op)
}
