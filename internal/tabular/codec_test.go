package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-query-cache/internal/model"
)

func sampleResult() *model.Result {
	july := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	r := model.NewResult(
		model.Column{Name: "month", Type: model.TypeDate},
		model.Column{Name: "system_supplier", Type: model.TypeText},
		model.Column{Name: "items", Type: model.TypeInteger},
		model.Column{Name: "list_size", Type: model.TypeFloat},
	)
	r.Append(july, "TPP", int64(20), 10234.5)
	r.Append(july, nil, int64(265), nil)
	r.Append(july.AddDate(0, 1, 0), "", int64(720), 0.1)
	r.Append(july.AddDate(0, 1, 0), `comma, "quoted"`, int64(-3), 1e-9)
	return r
}

func TestRoundTrip(t *testing.T) {
	want := sampleResult()
	july := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	want.Append(july, "line1\r\nline2", int64(1), 1.0)
	want.Append(july, "cr\ronly", int64(2), 2.0)
	want.Append(july, `\N`, int64(3), 3.0)
	want.Append(july, `C:\rx\new\`, int64(4), 4.0)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRoundTripSingleEmptyText(t *testing.T) {
	want := model.NewResult(model.Column{Name: "name", Type: model.TypeText})
	want.Append("a")
	want.Append("")
	want.Append(nil)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want))
	assert.Equal(t, "name:text\na\n\"\"\n\\N\n", buf.String())

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteHeaderAndNulls(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "month:date,system_supplier:text,items:integer,list_size:float", lines[0])
	assert.Equal(t, `2023-07-01,\N,265,\N`, lines[2])
}

func TestWriteRejects(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, model.NewResult()))

	r := model.NewResult(model.Column{Name: "n", Type: model.TypeInteger})
	r.Rows = append(r.Rows, []any{"five"})
	assert.Error(t, Write(&buf, r))

	r.Rows = [][]any{{int64(1), int64(2)}}
	assert.Error(t, Write(&buf, r))
}

func TestReadMalformed(t *testing.T) {
	tests := map[string]string{
		"empty":       "",
		"ragged":      "a:integer,b:integer\n1,2\n3\n",
		"bad integer": "a:integer\nfive\n",
		"bad date":    "d:date\n2023-13-45\n",
		"bad float":   "f:float\n1.2.3\n",
		"bare quote":  "a:text\n\"unterminated\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestReadInfersUntypedHeaders(t *testing.T) {
	in := "\ufeffmonth,setting,code,items,ratio\n" +
		"2023-07-01,GP Practice,4,74,0.5\n" +
		"2023-07-01,Community,,211,1\n"

	got, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []model.Column{
		{Name: "month", Type: model.TypeDate},
		{Name: "setting", Type: model.TypeText},
		{Name: "code", Type: model.TypeInteger},
		{Name: "items", Type: model.TypeInteger},
		{Name: "ratio", Type: model.TypeFloat},
	}, got.Columns)
	assert.Nil(t, got.Rows[1][2])
	assert.Equal(t, 1.0, got.Rows[1][4])
	assert.Equal(t, "Community", got.Rows[1][1])
}

func TestParseHeaderKeepsUnknownSuffix(t *testing.T) {
	assert.Equal(t, model.Column{Name: "ratio:a", Type: model.TypeFloat}, parseHeader("ratio:a:float"))
	assert.Equal(t, model.Column{Name: "a:b"}, parseHeader("a:b"))
	assert.Equal(t, model.Column{Name: "", Type: model.TypeText}, parseHeader(":text"))
	assert.Equal(t, model.Column{Name: " items ", Type: model.TypeInteger}, parseHeader(" items :integer"))
	assert.Equal(t, model.Column{Name: "items"}, parseHeader(" items "))
}

func TestRoundTripColumnNames(t *testing.T) {
	want := model.NewResult(
		model.Column{Name: "", Type: model.TypeInteger},
		model.Column{Name: " items ", Type: model.TypeInteger},
		model.Column{Name: "ratio:float", Type: model.TypeText},
	)
	want.Append(int64(1), int64(2), "x")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, want))
	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEscapedText(t *testing.T) {
	for _, s := range []string{"plain", "a\r\nb", `\N`, `\`, `a\rb`, `\\r`} {
		enc, err := EncodeValue(model.TypeText, s)
		require.NoError(t, err)
		assert.NotContains(t, enc, "\r")
		assert.NotEqual(t, NullToken, enc)

		got, err := DecodeValue(model.TypeText, enc)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestUntypedTextIsVerbatim(t *testing.T) {
	got, err := Read(strings.NewReader("path,n\n" + `C:\rx` + ",1\n"))
	require.NoError(t, err)
	assert.Equal(t, `C:\rx`, got.Rows[0][0])
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pax_df.csv")
	want := sampleResult()

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Overwrite with a different shape.
	other := model.NewResult(model.Column{Name: "count", Type: model.TypeInteger})
	other.Append(int64(5))
	require.NoError(t, Save(path, other))
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, other, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveFailsOnUnwritableParent(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	err := Save(filepath.Join(blocker, "out.csv"), sampleResult())
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
