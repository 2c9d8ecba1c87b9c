package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go-query-cache/internal/model"
	"go-query-cache/internal/tabular"
)

// maxErrorBody bounds how much of a failed response is echoed in errors.
const maxErrorBody = 512

// HTTPSource posts queries to a JSON endpoint.
//
// Request:  {"name": "...", "query": "..."}
// Response: {"columns": [{"name": "...", "type": "integer"}], "rows": [[...], ...]}
type HTTPSource struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

type httpResponse struct {
	Columns []model.Column      `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

// NewHTTPSource creates an HTTP source. A nil client uses http.DefaultClient.
func NewHTTPSource(endpoint string, headers map[string]string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{endpoint: endpoint, headers: headers, client: client}
}

// Query sends q and decodes the full response.
func (s *HTTPSource) Query(ctx context.Context, q model.Query) (*model.Result, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("query endpoint returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var decoded httpResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return decoded.toResult()
}

// Close is a no-op.
func (s *HTTPSource) Close() error {
	return nil
}

func (r httpResponse) toResult() (*model.Result, error) {
	if len(r.Columns) == 0 {
		return nil, fmt.Errorf("response has no columns")
	}
	for i, c := range r.Columns {
		t, err := model.ParseColumnType(string(c.Type))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		r.Columns[i].Type = t
	}

	result := model.NewResult(r.Columns...)
	for n, cells := range r.Rows {
		if len(cells) != len(r.Columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", n, len(cells), len(r.Columns))
		}
		row := make([]any, len(cells))
		for i, cell := range cells {
			v, err := decodeCell(r.Columns[i].Type, cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", n, r.Columns[i].Name, err)
			}
			row[i] = v
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

// decodeCell accepts JSON null, numbers and strings. Strings go through
// the table codec so "2023-07-01" becomes a date and "5" an integer.
func decodeCell(t model.ColumnType, cell json.RawMessage) (any, error) {
	if len(cell) == 0 || string(cell) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(cell, &s); err != nil {
		// not a JSON string: use the literal (numbers, booleans)
		s = string(cell)
	}
	if t == model.TypeText {
		return s, nil
	}
	return tabular.DecodeValue(t, s)
}
