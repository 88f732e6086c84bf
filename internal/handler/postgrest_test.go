package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakePostgREST serves /rest/v1/<table> from memory. It understands the
// subset of PostgREST the supabase client uses: eq filters, order, limit,
// Prefer return=representation and on_conflict upserts.
type fakePostgREST struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	seq    int
	fail   map[string]failure // "METHOD table"
	calls  map[string]int
}

type failure struct {
	status int
	code   string
	msg    string
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{
		tables: map[string][]map[string]any{},
		fail:   map[string]failure{},
		calls:  map[string]int{},
	}
}

// failOn makes every METHOD on table answer with status until cleared.
func (f *fakePostgREST) failOn(method, table string, status int, code, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method+" "+table] = failure{status: status, code: code, msg: msg}
}

func (f *fakePostgREST) clearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = map[string]failure{}
}

func (f *fakePostgREST) count(method, table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+table]
}

func (f *fakePostgREST) rows(table string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.tables[table]...)
}

// seed inserts a row and returns its id.
func (f *fakePostgREST) seed(table string, row map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(table, row)
}

func (f *fakePostgREST) insert(table string, row map[string]any) string {
	f.seq++
	stored := map[string]any{}
	for k, v := range row {
		stored[k] = v
	}
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.NewString()
	}
	// strictly increasing so order=created_at.desc is deterministic
	ts := time.Date(2025, 6, 15, 12, 0, f.seq, 0, time.UTC).Format(time.RFC3339)
	stored["created_at"] = ts
	stored["updated_at"] = ts
	f.tables[table] = append(f.tables[table], stored)
	return stored["id"].(string)
}

func (f *fakePostgREST) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(f.serveHTTP))
}

func (f *fakePostgREST) serveHTTP(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.Method+" "+table]++

	if fl, ok := f.fail[r.Method+" "+table]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fl.status)
		json.NewEncoder(w).Encode(map[string]string{"code": fl.code, "message": fl.msg})
		return
	}

	q := r.URL.Query()
	filters := map[string]string{}
	for k, v := range q {
		if strings.HasPrefix(v[0], "eq.") {
			filters[k] = strings.TrimPrefix(v[0], "eq.")
		}
	}
	representation := strings.Contains(r.Header.Get("Prefer"), "return=representation")

	switch r.Method {
	case http.MethodGet:
		out := f.match(table, filters)
		if order := q.Get("order"); order != "" {
			col, dir, _ := strings.Cut(order, ".")
			sort.SliceStable(out, func(i, j int) bool {
				a, b := fmt.Sprint(out[i][col]), fmt.Sprint(out[j][col])
				if dir == "desc" {
					return a > b
				}
				return a < b
			})
		}
		if n, err := strconv.Atoi(q.Get("limit")); err == nil && n < len(out) {
			out = out[:n]
		}
		writeRows(w, http.StatusOK, out)

	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var batch []map[string]any
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
			dec.Decode(&batch)
		} else {
			var one map[string]any
			dec.Decode(&one)
			batch = append(batch, one)
		}

		conflict := q.Get("on_conflict")
		var created []map[string]any
		for _, row := range batch {
			if conflict != "" {
				if existing := f.match(table, map[string]string{conflict: fmt.Sprint(row[conflict])}); len(existing) > 0 {
					for k, v := range row {
						existing[0][k] = v
					}
					created = append(created, existing[0])
					continue
				}
			}
			id := f.insert(table, row)
			created = append(created, f.match(table, map[string]string{"id": id})...)
		}
		if representation {
			writeRows(w, http.StatusCreated, created)
			return
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodPatch:
		var cols map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		dec.Decode(&cols)
		out := f.match(table, filters)
		for _, row := range out {
			for k, v := range cols {
				row[k] = v
			}
		}
		writeRows(w, http.StatusOK, out)

	case http.MethodDelete:
		out := f.match(table, filters)
		kept := f.tables[table][:0]
		for _, row := range f.tables[table] {
			if !matches(row, filters) {
				kept = append(kept, row)
			}
		}
		f.tables[table] = kept
		writeRows(w, http.StatusOK, out)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// match returns the live rows (not copies) that satisfy filters.
func (f *fakePostgREST) match(table string, filters map[string]string) []map[string]any {
	var out []map[string]any
	for _, row := range f.tables[table] {
		if matches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row map[string]any, filters map[string]string) bool {
	for k, v := range filters {
		if fmt.Sprint(row[k]) != v {
			return false
		}
	}
	return true
}

func writeRows(w http.ResponseWriter, status int, rows []map[string]any) {
	if rows == nil {
		rows = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(rows)
}
