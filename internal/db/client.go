package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Querier is the subset of *sql.DB used by Client. *sql.Tx satisfies it too.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Row is a single result row keyed by column name.
type Row map[string]any

// Int64 returns the named column as an integer.
func (r Row) Int64(field string) (int64, error) {
	v, ok := r[field]
	if !ok {
		return 0, fmt.Errorf("column %q not in row", field)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, fmt.Errorf("column %q is NULL", field)
	default:
		return 0, fmt.Errorf("column %q: unexpected type %T", field, v)
	}
}

// String returns the named column as a string.
func (r Row) String(field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", fmt.Errorf("column %q not in row", field)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case nil:
		return "", fmt.Errorf("column %q is NULL", field)
	default:
		return fmt.Sprint(s), nil
	}
}

// Client runs parameterized statements against the store. It is safe for
// concurrent use: every call borrows its own connection from the pool and
// reads its result set before returning.
type Client struct {
	db  Querier
	log *zap.Logger
}

// NewClient wraps db. A nil log disables query logging.
func NewClient(db Querier, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{db: db, log: log}
}

// Exec issues a statement that returns no rows and reports rows affected.
func (c *Client) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	c.log.Debug("executing query", zap.String("query", query), zap.Int("args", len(args)))

	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// FetchOne returns the first row of the result. The boolean is false when
// the query produced no rows.
func (c *Client) FetchOne(ctx context.Context, query string, args ...any) (Row, bool, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	result, err := scan(rows, 1)
	if err != nil {
		return nil, false, err
	}
	if len(result) == 0 {
		return nil, false, nil
	}
	return result[0], true, nil
}

// FetchAll returns every row of the result in order. The slice is empty,
// not nil, when there are no rows.
func (c *Client) FetchAll(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scan(rows, -1)
}

func (c *Client) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.log.Debug("executing query", zap.String("query", query), zap.Int("args", len(args)))

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// scan reads up to limit rows (all rows when limit < 0).
func scan(rows *sql.Rows, limit int) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	result := make([]Row, 0)
	for rows.Next() {
		if limit >= 0 && len(result) == limit {
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			// drivers may reuse []byte buffers between rows
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = vals[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}
