// Package tabular persists model.Result values as delimited text.
//
// The header row carries each column as "name:type" so a table read back
// has exactly the types it was written with. Nulls are written as \N.
// In text cells a backslash is written as \\ and a carriage return as \r,
// since csv readers fold \r\n into \n.
//
// Headers without a type suffix are accepted, in which case column types
// are inferred from the cell values and text is taken verbatim.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go-query-cache/internal/model"
	"go-query-cache/pkg/utils"
)

// NullToken is the cell text used for null values.
const NullToken = `\N`

// ErrMalformed is returned when input cannot be decoded as a table.
var ErrMalformed = errors.New("malformed table")

// Write encodes r as CSV to w.
func Write(w io.Writer, r *model.Result) error {
	if r == nil || len(r.Columns) == 0 {
		return errors.New("tabular: result has no columns")
	}

	writer := csv.NewWriter(w)

	header := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = c.Name + ":" + string(c.Type)
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	cells := make([]string, len(r.Columns))
	for n, row := range r.Rows {
		if len(row) != len(r.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", n, len(row), len(r.Columns))
		}
		for i, c := range r.Columns {
			s, err := EncodeValue(c.Type, row[i])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", n, c.Name, err)
			}
			cells[i] = s
		}
		if len(cells) == 1 && cells[0] == "" {
			// a bare empty line is skipped on read
			writer.Flush()
			if _, err := io.WriteString(w, "\"\"\n"); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
			continue
		}
		if err := writer.Write(cells); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// Read decodes a CSV table from rd.
func Read(rd io.Reader) (*model.Result, error) {
	reader := csv.NewReader(rd)

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrMalformed, err)
	}

	columns := make([]model.Column, len(headers))
	typed := true
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = parseHeader(h)
		if columns[i].Type == "" {
			typed = false
		}
	}

	var raw [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw = append(raw, record)
	}

	if !typed {
		inferTypes(columns, raw)
	}

	result := model.NewResult(columns...)
	for n, record := range raw {
		row := make([]any, len(columns))
		for i, c := range columns {
			v, err := decodeCell(c.Type, record[i], typed)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %q: %v", ErrMalformed, n+2, c.Name, err)
			}
			row[i] = v
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// EncodeValue renders one value of the given column type.
func EncodeValue(t model.ColumnType, v any) (string, error) {
	if v == nil {
		return NullToken, nil
	}

	switch t {
	case model.TypeText:
		if s, ok := v.(string); ok {
			return escapeText(s), nil
		}
		return escapeText(fmt.Sprintf("%v", v)), nil
	case model.TypeInteger:
		switch val := v.(type) {
		case int64:
			return strconv.FormatInt(val, 10), nil
		case int:
			return strconv.Itoa(val), nil
		case int32:
			return strconv.FormatInt(int64(val), 10), nil
		}
	case model.TypeFloat:
		switch val := v.(type) {
		case float64:
			return strconv.FormatFloat(val, 'g', -1, 64), nil
		case float32:
			return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
		case int64:
			return strconv.FormatInt(val, 10), nil
		}
	case model.TypeDate:
		if d, ok := v.(time.Time); ok {
			return d.Format(model.DateLayout), nil
		}
	default:
		return "", fmt.Errorf("unknown column type %q", t)
	}
	return "", fmt.Errorf("cannot encode %T as %s", v, t)
}

// DecodeValue parses one cell of the given column type, as written by
// EncodeValue.
func DecodeValue(t model.ColumnType, s string) (any, error) {
	return decodeCell(t, s, true)
}

func decodeCell(t model.ColumnType, s string, escaped bool) (any, error) {
	if s == NullToken {
		return nil, nil
	}

	switch t {
	case model.TypeText:
		if escaped {
			return unescapeText(s), nil
		}
		return s, nil
	case model.TypeInteger:
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	case model.TypeFloat:
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	case model.TypeDate:
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		d, ok := utils.ParseDate(strings.TrimSpace(s))
		if !ok {
			return nil, fmt.Errorf("invalid date %q", s)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown column type %q", t)
	}
}

// parseHeader splits "name:type". Typed names are kept byte for byte,
// including an empty name. The type is left empty when the suffix is absent
// or not a known type, so "ratio:a:b" keeps its full name.
func parseHeader(h string) model.Column {
	if i := strings.LastIndex(h, ":"); i >= 0 {
		if t, err := model.ParseColumnType(h[i+1:]); err == nil {
			return model.Column{Name: h[:i], Type: t}
		}
	}
	return model.Column{Name: strings.TrimSpace(h)}
}

func escapeText(s string) string {
	if !strings.ContainsAny(s, "\\\r") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeText reverses escapeText. Unknown escapes are kept as written.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '\\':
			b.WriteByte('\\')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// inferTypes fills untyped columns from their non-null cells. A column
// with no values at all is text.
func inferTypes(columns []model.Column, raw [][]string) {
	for i := range columns {
		if columns[i].Type != "" {
			continue
		}
		var t model.ColumnType
		for _, record := range raw {
			cell := record[i]
			if cell == NullToken || strings.TrimSpace(cell) == "" {
				continue
			}
			observed, _ := utils.InferType(utils.ParseValue(cell))
			t = utils.WidenType(t, observed)
			if t == model.TypeText {
				break
			}
		}
		if t == "" {
			t = model.TypeText
		}
		columns[i].Type = t
	}
}
