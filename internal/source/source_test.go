package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-query-cache/internal/model"
)

var july = time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

func openPrescribing(t *testing.T) *SQLSource {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "rx.db")
	src, err := OpenSQL(context.Background(), Config{Type: "sqlite", DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	db := src.db
	_, err = db.Exec(`CREATE TABLE normalised_prescribing (
		month DATE,
		practice TEXT,
		bnf_code TEXT,
		items INTEGER,
		actual_cost REAL
	)`)
	require.NoError(t, err)

	insert := `INSERT INTO normalised_prescribing VALUES (?, ?, ?, ?, ?)`
	for _, row := range [][]any{
		{"2023-07-01", "Y00001", "0503060B0AAAAAA", 150, 829.0},
		{"2023-07-01", "Y00001", "0503060B0AAAAAA", 61, 337.5},
		{"2023-07-01", "A81001", "0503060B0AAAAAA", 20, 110.0},
		{"2023-08-01", "Y00001", "0503060B0AAAAAA", 720, 3981.6},
		{"2023-08-01", "A81001", "0501013B0AAAAAA", 3, 1.2},
		{"2023-08-01", "B82002", "0503060B0AAAAAA", nil, nil},
	} {
		_, err := db.Exec(insert, row...)
		require.NoError(t, err)
	}
	return src
}

func TestSQLSourceAggregation(t *testing.T) {
	src := openPrescribing(t)

	res, err := src.Query(context.Background(), model.NewQuery("pax", `
		SELECT DATE(month) AS month, practice, SUM(items) AS items, AVG(actual_cost) AS cost
		FROM normalised_prescribing
		WHERE bnf_code LIKE '0503060B0%'
		GROUP BY month, practice
		ORDER BY month, practice`))
	require.NoError(t, err)

	assert.Equal(t, []model.Column{
		{Name: "month", Type: model.TypeDate},
		{Name: "practice", Type: model.TypeText},
		{Name: "items", Type: model.TypeInteger},
		{Name: "cost", Type: model.TypeFloat},
	}, res.Columns)
	require.Equal(t, 4, res.Len())

	assert.Equal(t, []any{july, "A81001", int64(20), 110.0}, res.Rows[0])
	assert.Equal(t, []any{july, "Y00001", int64(211), 583.25}, res.Rows[1])
	assert.Equal(t, "B82002", res.Rows[2][1])
	assert.Nil(t, res.Rows[2][2])
	assert.Nil(t, res.Rows[2][3])
}

func TestSQLSourceDeclaredColumns(t *testing.T) {
	src := openPrescribing(t)

	res, err := src.Query(context.Background(), model.NewQuery("", `
		SELECT month, items FROM normalised_prescribing WHERE practice = 'A81001' ORDER BY month`))
	require.NoError(t, err)

	assert.Equal(t, model.TypeDate, res.Columns[0].Type)
	assert.Equal(t, model.TypeInteger, res.Columns[1].Type)
	assert.Equal(t, july, res.Rows[0][0])
}

func TestSQLSourceEmptyResult(t *testing.T) {
	src := openPrescribing(t)

	res, err := src.Query(context.Background(), model.NewQuery("", `SELECT COUNT(*) AS count FROM normalised_prescribing WHERE bnf_code = 'X'`))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0)}, res.Rows[0])

	res, err = src.Query(context.Background(), model.NewQuery("", `SELECT practice FROM normalised_prescribing WHERE 1 = 0`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.Equal(t, model.TypeText, res.Columns[0].Type)
}

func TestSQLSourceQueryError(t *testing.T) {
	src := openPrescribing(t)

	_, err := src.Query(context.Background(), model.NewQuery("", `SELECT * FROM missing_table`))
	assert.Error(t, err)
}

func TestOpenSQLRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "oracle", DSN: "x"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Type: "postgres"})
	assert.Error(t, err)
}

func TestNewSQLSourceWrapsHandle(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "w.db"))
	require.NoError(t, err)
	src := NewSQLSource(db, "sqlite3")
	defer src.Close()

	assert.Equal(t, "sqlite3", src.Driver())
	require.NoError(t, src.Ping(context.Background()))
}

func TestClassifyDatabaseType(t *testing.T) {
	tests := map[string]model.ColumnType{
		"":                kindUnknown,
		"INT8":            model.TypeInteger,
		"UNSIGNED BIGINT": model.TypeInteger,
		"integer":         model.TypeInteger,
		"NUMERIC(10,2)":   model.TypeFloat,
		"FLOAT8":          model.TypeFloat,
		"DATE":            model.TypeDate,
		"TIMESTAMPTZ":     kindTimestamp,
		"DATETIME":        kindTimestamp,
		"VARCHAR":         model.TypeText,
		"INTERVAL":        model.TypeText,
		"BOOL":            model.TypeText,
	}
	for in, want := range tests {
		assert.Equal(t, want, classifyDatabaseType(in), in)
	}
}

func TestResolveTimestamp(t *testing.T) {
	midnight := [][]any{{july}, {nil}, {"2023-08-01 00:00:00"}}
	assert.Equal(t, model.TypeDate, resolveType(kindTimestamp, midnight, 0))

	withTime := [][]any{{july}, {july.Add(time.Hour)}}
	assert.Equal(t, model.TypeText, resolveType(kindTimestamp, withTime, 0))
}

func TestNormalize(t *testing.T) {
	v, err := normalize(model.TypeFloat, "12.50")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	v, err = normalize(model.TypeInteger, float64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = normalize(model.TypeInteger, 3.5)
	assert.Error(t, err)

	v, err = normalize(model.TypeInteger, uint64(math.MaxInt64))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	_, err = normalize(model.TypeInteger, uint64(math.MaxUint64))
	assert.ErrorContains(t, err, "overflows int64")

	_, err = normalize(model.TypeInteger, "18446744073709551615")
	assert.Error(t, err)

	_, err = normalize(model.TypeInteger, 1e19)
	assert.Error(t, err)

	v, err = normalize(model.TypeText, july.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2023-07-01T01:00:00Z", v)

	v, err = normalize(model.TypeText, true)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var q model.Query
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "pax", q.Name)

		_, _ = w.Write([]byte(`{
			"columns": [
				{"name": "month", "type": "date"},
				{"name": "system_supplier", "type": "text"},
				{"name": "items", "type": "integer"},
				{"name": "share", "type": "float"}
			],
			"rows": [
				["2023-07-01", "TPP", 20, 0.07],
				["2023-07-01", null, "265", 0.93]
			]
		}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, map[string]string{"X-API-Key": "secret"}, srv.Client())
	res, err := src.Query(context.Background(), model.NewQuery("pax", "SELECT 1"))
	require.NoError(t, err)

	require.Equal(t, 2, res.Len())
	assert.Equal(t, []any{july, "TPP", int64(20), 0.07}, res.Rows[0])
	assert.Equal(t, []any{july, nil, int64(265), 0.93}, res.Rows[1])
	require.NoError(t, src.Close())
}

func TestHTTPSourceErrors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusServiceUnavailable)
		},
		"bad json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"columns":`))
		},
		"no columns": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"columns":[],"rows":[]}`))
		},
		"ragged": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"columns":[{"name":"a","type":"integer"}],"rows":[[1,2]]}`))
		},
		"bad type": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"columns":[{"name":"a","type":"blob"}],"rows":[]}`))
		},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewHTTPSource(srv.URL, nil, nil).Query(context.Background(), model.NewQuery("", "q"))
			assert.Error(t, err)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewHTTPSource(url, nil, nil).Query(context.Background(), model.NewQuery("", "q"))
		assert.Error(t, err)
	})
}

type stubSource struct {
	closed bool
}

func (s *stubSource) Query(context.Context, model.Query) (*model.Result, error) {
	return model.NewResult(model.Column{Name: "n", Type: model.TypeInteger}), nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

func TestLazySourceConnectsOnFirstQuery(t *testing.T) {
	l, err := Lazy(Config{Type: "sqlite", DSN: "unused.db"})
	require.NoError(t, err)

	opens := 0
	stub := &stubSource{}
	l.open = func(context.Context, Config) (Source, error) {
		opens++
		if opens == 1 {
			return nil, assert.AnError
		}
		return stub, nil
	}
	assert.False(t, l.Connected())
	require.NoError(t, l.Close())

	_, err = l.Query(context.Background(), model.NewQuery("", "SELECT 1"))
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, l.Connected())

	for range 2 {
		res, err := l.Query(context.Background(), model.NewQuery("", "SELECT 1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"n"}, res.ColumnNames())
	}
	assert.Equal(t, 2, opens)
	assert.True(t, l.Connected())

	require.NoError(t, l.Close())
	assert.True(t, stub.closed)
	assert.False(t, l.Connected())
}

func TestLazyValidatesConfig(t *testing.T) {
	_, err := Lazy(Config{Type: "oracle", DSN: "x"})
	require.Error(t, err)

	_, err = Lazy(Config{Type: "sqlite"})
	require.Error(t, err)
}
