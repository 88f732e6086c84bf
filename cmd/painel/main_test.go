package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekinformatica/painel-go/internal/listing"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "import", "export", "sync-status"}, names)
}

func TestExportFlagsQuery(t *testing.T) {
	q, err := exportFlags{status: "Vencido", tier: "P2X", sortField: "data_vencimento", direction: "desc"}.query()
	require.NoError(t, err)
	assert.Equal(t, "Vencido", q.Status)
	assert.Equal(t, "P2X", q.Tier)
	assert.Equal(t, listing.FieldDueDate, q.SortField)
	assert.Equal(t, listing.Desc, q.Direction)

	_, err = exportFlags{tier: "NETFLIX"}.query()
	assert.Error(t, err)

	q, err = exportFlags{search: " ana ", status: listing.All, tier: listing.All, sortField: "coluna", direction: "DESC"}.query()
	require.NoError(t, err)
	assert.Equal(t, "ana", q.Search)
	assert.Equal(t, listing.All, q.Status)
	assert.Equal(t, listing.All, q.Tier)
	assert.Equal(t, listing.FieldName, q.SortField, "unknown sort column falls back to nome")
	assert.Equal(t, listing.Desc, q.Direction)
}

func TestTodayOverride(t *testing.T) {
	opts := &rootOptions{today: "2025-06-15"}
	clock, err := opts.clock()
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", clock.Today().String())

	opts.today = "15-06"
	_, err = opts.clock()
	assert.Error(t, err)

	opts.today = ""
	clock, err = opts.clock()
	require.NoError(t, err)
	assert.Nil(t, clock)
}

func TestSyncStatusCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	t.Setenv("SUPABASE_URL", srv.URL)
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("MAX_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sync-status", "--config", filepath.Join(t.TempDir(), "missing.env")})

	require.NoError(t, root.Execute())
	assert.Equal(t, "0 clientes atualizados\n", out.String())
}
