package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"batikcore/pkg/domain"
)

var stubSeq uint64

// newStubDB registers a sql.DB backed by an in-memory stub connection
// that understands the snapshot table statements.
func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	buckets  map[string][]byte
	execs    []string
	failExec bool
	failPing bool
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	if c.failExec {
		return nil, fmt.Errorf("exec fail")
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected bucket and payload args, got %d", len(args))
		}
		bucket, ok := args[0].Value.(string)
		if !ok {
			return nil, fmt.Errorf("bucket arg is %T", args[0].Value)
		}
		payload, ok := args[1].Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload arg is %T", args[1].Value)
		}
		c.buckets[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToUpper(query), "FROM STATE") {
		return nil, fmt.Errorf("unexpected query %s", query)
	}
	rows := &stubRows{}
	for bucket, payload := range c.buckets {
		rows.data = append(rows.data, [2]driver.Value{bucket, append([]byte(nil), payload...)})
	}
	return rows, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	data [][2]driver.Value
	pos  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	dest[0] = r.data[r.pos][0]
	dest[1] = r.data[r.pos][1]
	r.pos++
	return nil
}

func TestNewStoreAppliesDDLAndLoadsSnapshot(t *testing.T) {
	db, conn := newStubDB()
	conn.buckets["rules"] = []byte(`[{"id":"r1","type":"technique","priority":1,"seq":4,
		"conditions":{"wax_visible":true},"conclusion":"Batik Tulis",
		"explanation":null,"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z"}]`)
	conn.buckets["meta"] = []byte(`{"seeded":true}`)

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	rules := store.ListRules()
	if len(rules) != 1 || rules[0].Conclusion != "Batik Tulis" || rules[0].Seq != 4 {
		t.Fatalf("expected hydrated rule, got %+v", rules)
	}
	if !store.Seeded() {
		t.Fatalf("expected seeded flag hydrated from meta bucket")
	}
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.execs)
	}
}

func TestRunInTransactionPersistsState(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("ignored")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateRule(domain.RuleDraft{
			Type:       domain.GoalQuality,
			Priority:   1,
			Conditions: domain.Conditions{"defect_count": domain.IntValue(0)},
			Conclusion: "Premium",
		})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	payload, ok := conn.buckets["rules"]
	if !ok {
		t.Fatalf("rules bucket not persisted, have %v", conn.buckets)
	}
	if !strings.Contains(string(payload), "Premium") {
		t.Fatalf("rules bucket missing payload: %s", payload)
	}
	if _, ok := conn.buckets["meta"]; !ok {
		t.Fatalf("meta bucket not persisted")
	}
}

func TestNewStoreSurfacesPingFailure(t *testing.T) {
	db, conn := newStubDB()
	conn.failPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore(""); err == nil {
		t.Fatalf("expected ping failure to surface")
	}
}

func TestPersistSurfacesExecFailure(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.failExec = true
	if err := store.RunInTransaction(context.Background(), func(_ domain.Transaction) error { return nil }); err == nil {
		t.Fatalf("expected persist error when exec fails")
	}
}
