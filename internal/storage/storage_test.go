package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()

	level, err := NewLevelDBKV(&LevelDBConfig{Path: t.TempDir(), Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	t.Cleanup(func() { level.Close() })

	return map[string]KV{
		"memory":  NewMemoryKV(),
		"leveldb": level,
	}
}

func TestKV_GetMissing(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(context.Background(), []byte("nope"))
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestKV_CommitThenGet(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := kv.Commit(ctx, []Write{
				{Key: []byte("a"), Value: []byte("1")},
				{Key: []byte("b"), Value: []byte("2")},
			})
			if err != nil {
				t.Fatalf("commit: %v", err)
			}

			v, err := kv.Get(ctx, []byte("b"))
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(v) != "2" {
				t.Errorf("expected 2, got %q", v)
			}
		})
	}
}

func TestTxn_ReadYourWrites(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Commit(ctx, []Write{{Key: []byte("k"), Value: []byte("old")}})

	txn := NewTxn(kv)
	txn.Put([]byte("k"), []byte("new"))

	v, err := txn.Get(ctx, []byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != "new" {
		t.Errorf("txn should see its own write, got %q", v)
	}

	stored, _ := kv.Get(ctx, []byte("k"))
	if string(stored) != "old" {
		t.Errorf("kv must not change before commit, got %q", stored)
	}

	if err := txn.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	stored, _ = kv.Get(ctx, []byte("k"))
	if string(stored) != "new" {
		t.Errorf("expected committed value, got %q", stored)
	}
}

func TestTxn_Discard(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	txn := NewTxn(kv)
	txn.Put([]byte("k"), []byte("v"))
	txn.Discard()

	if kv.Len() != 0 {
		t.Errorf("discarded txn wrote %d keys", kv.Len())
	}
	if err := txn.Commit(ctx); err == nil {
		t.Error("expected commit after discard to fail")
	}
}

func TestTxn_CommitKeepsFirstWriteOrder(t *testing.T) {
	rec := &recordingKV{KV: NewMemoryKV()}
	txn := NewTxn(rec)
	txn.Put([]byte("b"), []byte("1"))
	txn.Put([]byte("a"), []byte("1"))
	txn.Put([]byte("b"), []byte("2"))

	if err := txn.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(rec.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(rec.writes))
	}
	if string(rec.writes[0].Key) != "b" || string(rec.writes[0].Value) != "2" {
		t.Errorf("unexpected first write %q=%q", rec.writes[0].Key, rec.writes[0].Value)
	}
	if string(rec.writes[1].Key) != "a" {
		t.Errorf("unexpected second write %q", rec.writes[1].Key)
	}
}

func TestTxn_PutCopiesValue(t *testing.T) {
	txn := NewTxn(NewMemoryKV())
	buf := []byte("abc")
	txn.Put([]byte("k"), buf)
	buf[0] = 'z'

	v, _ := txn.Get(context.Background(), []byte("k"))
	if string(v) != "abc" {
		t.Errorf("expected buffered copy, got %q", v)
	}
}

type recordingKV struct {
	KV
	writes []Write
}

func (r *recordingKV) Commit(ctx context.Context, writes []Write) error {
	r.writes = append(r.writes, writes...)
	return r.KV.Commit(ctx, writes)
}

func TestConsoleKV_PrintsCommittedWrites(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleKV(NewMemoryKV(), zap.NewNop())
	c.out = &out

	err := c.Commit(context.Background(), []Write{{Key: RoundKey(7), Value: []byte(`{"epoch":7}`)}})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if !bytes.Contains(out.Bytes(), []byte("round/7")) {
		t.Errorf("expected output to name the round key, got %q", out.String())
	}

	v, err := c.Get(context.Background(), RoundKey(7))
	if err != nil || string(v) != `{"epoch":7}` {
		t.Errorf("expected write to reach the wrapped store, got %q, %v", v, err)
	}
}

func TestPostgresKV_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p := &PostgresKV{db: db, logger: zap.NewNop()}

	mock.ExpectQuery("SELECT value FROM updown_kv").
		WithArgs([]byte("state")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"epoch":3}`)))

	v, err := p.Get(context.Background(), []byte("state"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(v) != `{"epoch":3}` {
		t.Errorf("unexpected value %q", v)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresKV_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p := &PostgresKV{db: db, logger: zap.NewNop()}

	mock.ExpectQuery("SELECT value FROM updown_kv").
		WithArgs([]byte("config")).
		WillReturnError(sql.ErrNoRows)

	_, err = p.Get(context.Background(), []byte("config"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresKV_Commit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p := &PostgresKV{db: db, logger: zap.NewNop()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO updown_kv").
		WithArgs([]byte("a"), []byte("1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO updown_kv").
		WithArgs([]byte("b"), []byte("2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = p.Commit(context.Background(), []Write{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresKV_CommitRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p := &PostgresKV{db: db, logger: zap.NewNop()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO updown_kv").
		WithArgs([]byte("a"), []byte("1")).
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err = p.Commit(context.Background(), []Write{{Key: []byte("a"), Value: []byte("1")}})
	if err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresKV_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p := &PostgresKV{db: db, logger: zap.NewNop()}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS updown_kv").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := p.EnsureSchema(context.Background()); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresKV_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	p := &PostgresKV{db: db, logger: zap.NewNop()}

	mock.ExpectClose()

	if err := p.Close(); err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestKV_Interface(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ KV = NewMemoryKV()
	var _ KV = &LevelDBKV{}
	var _ KV = &PostgresKV{db: db, logger: zap.NewNop()}
	var _ KV = NewConsoleKV(NewMemoryKV(), zap.NewNop())
	var _ Pinger = &PostgresKV{}
}
