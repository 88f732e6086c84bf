package supabase

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
)

// ============================================================
// PostgREST query helpers
// ============================================================

// Prefer header values.
const (
	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
	preferUpsert         = "resolution=merge-duplicates,return=minimal"
)

// eq renders a PostgREST equality filter with the value escaped.
func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRows decodes a representation body; an empty body is no rows.
func decodeRows(body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("[]")
	}
	return json.Unmarshal(body, out)
}
