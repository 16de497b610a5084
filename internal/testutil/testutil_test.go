package testutil

import (
	"testing"

	"namereg/internal/config"
)

func TestNormalizeJSON(t *testing.T) {
	in := []byte(`{"status":"ready","timestamp":"2026-01-02T03:04:05Z","checks":{"database":true},"details":[{"version":"1.2.3","n":2}]}`)

	got := string(NormalizeJSON(t, in))
	want := `{
  "checks": {
    "database": true
  },
  "details": [
    {
      "n": 2,
      "version": "<normalized>"
    }
  ],
  "status": "ready",
  "timestamp": "<normalized>"
}
`
	if got != want {
		t.Errorf("NormalizeJSON() =\n%s\nwant\n%s", got, want)
	}
}

func TestOpenDB_CountsAndExec(t *testing.T) {
	db := OpenDB(t, func(c *config.DatabaseConfig) { c.MaxOpenConns = 2 })

	Exec(t, db, `INSERT INTO users (id, name) VALUES ('id-1', 'alice')`)
	Exec(t, db, `INSERT INTO users (id, name) VALUES ('id-2', 'bob')`)

	if got := CountRows(t, db, "alice"); got != 1 {
		t.Errorf("CountRows(alice) = %d, want 1", got)
	}
	if got := CountRows(t, db, ""); got != 2 {
		t.Errorf("CountRows() = %d, want 2", got)
	}
	if got := StoredName(t, db, "id-2"); got != "bob" {
		t.Errorf("StoredName(id-2) = %q, want bob", got)
	}
	if got := db.Stats().MaxOpen; got != 2 {
		t.Errorf("MaxOpen = %d, want 2", got)
	}
}

func TestStartRunner(t *testing.T) {
	r := StartRunner(t, 2, 4)
	if !r.IsRunning() {
		t.Error("runner should be running")
	}
}
