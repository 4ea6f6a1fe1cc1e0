package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCacheCheck_RoundTrip(t *testing.T) {
	check := CacheCheck(NewMemoryKV())

	ok, err := check(context.Background())
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if !ok {
		t.Error("round trip through a working cache should pass")
	}
}

// staleKV ignores writes and always returns a stale value.
type staleKV struct{}

func (staleKV) Set(context.Context, string, string, time.Duration) error { return nil }
func (staleKV) Get(context.Context, string) (string, error)              { return "stale", nil }

func TestCacheCheck_MismatchFails(t *testing.T) {
	check := CacheCheck(staleKV{})

	ok, err := check(context.Background())
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if ok {
		t.Error("mismatched round trip should fail the check")
	}
}

// brokenKV fails every operation.
type brokenKV struct{ err error }

func (b brokenKV) Set(context.Context, string, string, time.Duration) error { return b.err }
func (b brokenKV) Get(context.Context, string) (string, error)              { return "", b.err }

func TestCacheCheck_SetFailure(t *testing.T) {
	sentinel := errors.New("cache down")
	check := CacheCheck(brokenKV{err: sentinel})

	ok, err := check(context.Background())
	if ok {
		t.Error("check should fail when the cache is down")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("check error = %v, want %v", err, sentinel)
	}
}

// fakeExecer records the probe query.
type fakeExecer struct {
	sql string
	err error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	return pgconn.CommandTag{}, f.err
}

func TestDatabaseCheck(t *testing.T) {
	db := &fakeExecer{}
	check := DatabaseCheck(db)

	ok, err := check(context.Background())
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if !ok {
		t.Error("check should pass when the probe query succeeds")
	}
	if db.sql != "SELECT 1" {
		t.Errorf("probe query = %q, want SELECT 1", db.sql)
	}
}

func TestDatabaseCheck_Failure(t *testing.T) {
	sentinel := errors.New("dial tcp: connection refused")
	check := DatabaseCheck(&fakeExecer{err: sentinel})

	ok, err := check(context.Background())
	if ok {
		t.Error("check should fail when the probe query errors")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("check error = %v, want %v", err, sentinel)
	}
}

func TestMemoryKV_Expiry(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "v", time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryKV_ZeroTTLNotStored(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() error = %v, want ErrKeyNotFound for zero TTL", err)
	}
}

func TestMemoryKV_Get(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "v" {
		t.Errorf("Get() = %q, want v", got)
	}

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}
}
