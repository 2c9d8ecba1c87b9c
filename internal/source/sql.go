package source

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go-query-cache/internal/model"
	"go-query-cache/pkg/utils"
)

// SQLSource runs queries through database/sql.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// declared kinds beyond the model types
const (
	kindUnknown   model.ColumnType = ""
	kindTimestamp model.ColumnType = "timestamp"
)

// OpenSQL opens and pings a database for the configured source type.
func OpenSQL(ctx context.Context, cfg Config) (*SQLSource, error) {
	driver := driverName(cfg.Type)

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.MaxOpen)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLSource{db: db, driver: driver}, nil
}

// NewSQLSource wraps an existing handle.
func NewSQLSource(db *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: db, driver: driver}
}

func driverName(typ string) string {
	switch strings.ToLower(typ) {
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return strings.ToLower(typ)
	}
}

// Driver returns the database/sql driver name.
func (s *SQLSource) Driver() string {
	return s.driver
}

// Query executes q and reads every row before returning.
func (s *SQLSource) Query(ctx context.Context, q model.Query) (*model.Result, error) {
	rows, err := s.db.QueryContext(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	declared := make([]model.ColumnType, len(names))
	for i, ct := range columnTypes {
		declared[i] = classifyDatabaseType(ct.DatabaseTypeName())
	}

	var raw [][]any
	for rows.Next() {
		values := make([]any, len(names))
		valuePtrs := make([]any, len(names))
		for i := range names {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			// Convert []byte to string; drivers reuse the buffer
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		raw = append(raw, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}

	columns := make([]model.Column, len(names))
	for i, name := range names {
		columns[i] = model.Column{Name: name, Type: resolveType(declared[i], raw, i)}
	}

	result := model.NewResult(columns...)
	for _, values := range raw {
		row := make([]any, len(columns))
		for i, c := range columns {
			v, err := normalize(c.Type, values[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c.Name, err)
			}
			row[i] = v
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// Ping checks connectivity.
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// classifyDatabaseType maps a driver type name to a column type.
// Names differ by driver: INT8/FLOAT8/TIMESTAMPTZ (postgres),
// UNSIGNED BIGINT/DOUBLE/DATETIME (mysql), declared types (sqlite).
func classifyDatabaseType(name string) model.ColumnType {
	base := strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	base = strings.TrimPrefix(base, "UNSIGNED ")

	switch base {
	case "":
		return kindUnknown
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT",
		"INT2", "INT4", "INT8", "INT64", "SERIAL", "BIGSERIAL", "YEAR":
		return model.TypeInteger
	case "REAL", "FLOAT", "FLOAT4", "FLOAT8", "FLOAT64", "DOUBLE",
		"DOUBLE PRECISION", "NUMERIC", "DECIMAL", "BIGNUMERIC":
		return model.TypeFloat
	case "DATE":
		return model.TypeDate
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP WITHOUT TIME ZONE":
		return kindTimestamp
	default:
		return model.TypeText
	}
}

// resolveType settles a column's type. Timestamp columns are dates when
// every value falls on UTC midnight, and untyped expression columns are
// inferred from the values the driver produced.
func resolveType(declared model.ColumnType, raw [][]any, col int) model.ColumnType {
	switch declared {
	case kindTimestamp:
		for _, row := range raw {
			if v := row[col]; v != nil {
				if _, ok := asDate(v); !ok {
					return model.TypeText
				}
			}
		}
		return model.TypeDate
	case kindUnknown:
		var t model.ColumnType
		for _, row := range raw {
			t = utils.WidenType(t, valueKind(row[col]))
			if t == model.TypeText {
				break
			}
		}
		if t == "" {
			return model.TypeText
		}
		return t
	default:
		return declared
	}
}

func valueKind(v any) model.ColumnType {
	switch v.(type) {
	case nil:
		return ""
	case int64, int32, int, uint64, uint32:
		return model.TypeInteger
	case float64, float32:
		return model.TypeFloat
	}
	if _, ok := asDate(v); ok {
		return model.TypeDate
	}
	return model.TypeText
}

func asDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		d := model.Date(val.UTC())
		return d, val.Equal(d)
	case string:
		return utils.ParseDate(strings.TrimSpace(val))
	}
	return time.Time{}, false
}

// normalize converts a scanned value to the representation of t.
func normalize(t model.ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t {
	case model.TypeInteger:
		switch val := v.(type) {
		case int64:
			return val, nil
		case int32:
			return int64(val), nil
		case int:
			return int64(val), nil
		case uint64:
			if val > math.MaxInt64 {
				return nil, fmt.Errorf("value %d overflows int64", val)
			}
			return int64(val), nil
		case uint32:
			return int64(val), nil
		case float64:
			if val >= -math.MaxInt64-1 && val < math.MaxInt64 && val == math.Trunc(val) {
				return int64(val), nil
			}
		case string:
			return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		}
	case model.TypeFloat:
		switch val := v.(type) {
		case float64:
			return val, nil
		case float32:
			return float64(val), nil
		case int64:
			return float64(val), nil
		case int32:
			return float64(val), nil
		case string:
			return strconv.ParseFloat(strings.TrimSpace(val), 64)
		}
	case model.TypeDate:
		if d, ok := asDate(v); ok {
			return d, nil
		}
	case model.TypeText:
		switch val := v.(type) {
		case string:
			return val, nil
		case time.Time:
			return val.Format(time.RFC3339), nil
		case bool:
			return strconv.FormatBool(val), nil
		default:
			return fmt.Sprintf("%v", val), nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, t)
}
