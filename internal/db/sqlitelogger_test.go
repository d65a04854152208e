package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) sqlRecords(op string) []map[string]slog.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.attrs {
		if m["msg"].String() == "sql" && m["op"].String() == op {
			out = append(out, m)
		}
	}
	return out
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = nil
}

func openLogged(t *testing.T) (*sql.DB, *captureHandler) {
	t.Helper()
	handler := &captureHandler{}
	db := sql.OpenDB(NewLoggingConnector(":memory:", slog.New(handler)))
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, handler
}

func TestLoggingConnector_ExecAndQueryLogged(t *testing.T) {
	db, handler := openLogged(t)

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	recs := handler.sqlRecords("exec")
	if len(recs) == 0 {
		t.Fatal("expected at least one exec log record")
	}
	if got := recs[len(recs)-1]["sql"].String(); got != `CREATE TABLE t (id INTEGER PRIMARY KEY)` {
		t.Errorf("sql: got %q", got)
	}

	handler.reset()
	var one int
	if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil {
		t.Fatalf("query row: %v", err)
	}
	recs = handler.sqlRecords("query")
	if len(recs) == 0 {
		t.Fatal("expected query log record for QueryRow")
	}
	if got := recs[len(recs)-1]["sql"].String(); got != `SELECT 1` {
		t.Errorf("sql: got %q", got)
	}
	if _, ok := recs[len(recs)-1]["elapsed"]; !ok {
		t.Error("expected elapsed attribute")
	}
}

func TestLoggingConnector_ArgsLogged(t *testing.T) {
	db, handler := openLogged(t)

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	handler.reset()

	if _, err := db.Exec(`INSERT INTO t (id, name) VALUES (?, ?)`, 1, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	recs := handler.sqlRecords("exec")
	if len(recs) == 0 {
		t.Fatal("expected exec log with args")
	}
	args, ok := recs[len(recs)-1]["args"].Any().([]string)
	if !ok {
		t.Fatalf("args attribute has type %T", recs[len(recs)-1]["args"].Any())
	}
	if len(args) != 2 || args[0] != "1" || args[1] != "NULL" {
		t.Errorf("args = %v, want [1 NULL]", args)
	}
}

func TestLoggingConnector_ErrorLogged(t *testing.T) {
	db, handler := openLogged(t)

	if _, err := db.Exec(`INSERT INTO missing VALUES (1)`); err == nil {
		t.Fatal("insert into missing table: want error")
	}
	recs := handler.sqlRecords("exec")
	if len(recs) == 0 {
		t.Fatal("expected exec log record")
	}
	if _, ok := recs[len(recs)-1]["error"]; !ok {
		t.Error("expected error attribute")
	}
}

func TestLoggingConnector_NilLoggerUsesDefault(t *testing.T) {
	db := sql.OpenDB(NewLoggingConnector(":memory:", nil))
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
