package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryKey(t *testing.T) {
	a := NewQuery("counts", "SELECT 1")
	b := NewQuery(" counts ", "SELECT 1")
	c := NewQuery("other", "SELECT 1")

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Len(t, a.Key(), 64)
	assert.Equal(t, "counts", a.Label())
	assert.Equal(t, NewQuery("", "SELECT 1").Key()[:12], NewQuery("", "SELECT 1").Label())
}

func TestQueryEmpty(t *testing.T) {
	assert.True(t, NewQuery("x", "  \n\t").Empty())
	assert.False(t, NewQuery("", "SELECT 1").Empty())
}

func TestParseColumnType(t *testing.T) {
	for in, want := range map[string]ColumnType{
		"text": TypeText, "STRING": TypeText, "int": TypeInteger,
		"float64": TypeFloat, " date ": TypeDate,
	} {
		got, err := ParseColumnType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseColumnType("blob")
	assert.Error(t, err)
}

func TestResultAccessors(t *testing.T) {
	month := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	r := NewResult(Column{"month", TypeDate}, Column{"items", TypeInteger})
	r.Append(month, int64(285))
	r.Append(month.AddDate(0, 1, 0), int64(720))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"month", "items"}, r.ColumnNames())
	assert.Equal(t, 1, r.Index("items"))
	assert.Equal(t, -1, r.Index("missing"))

	items, ok := r.Column("items")
	require.True(t, ok)
	assert.Equal(t, []any{int64(285), int64(720)}, items)

	v, ok := r.Value(1, "items")
	require.True(t, ok)
	assert.Equal(t, int64(720), v)

	_, ok = r.Value(5, "items")
	assert.False(t, ok)

	recs := r.Records()
	assert.Equal(t, int64(285), recs[0]["items"])

	assert.Panics(t, func() { r.Append(month) })
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "2023-07-01", FormatValue(time.Date(2023, 7, 1, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "42", FormatValue(int64(42)))
}

func TestDate(t *testing.T) {
	in := time.Date(2023, 8, 1, 23, 59, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), Date(in))
}
