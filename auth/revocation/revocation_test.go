package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kbukum/codecompass/redis/testutil"
)

func newSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&RevokedToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// contract runs the shared Store behavior against a backend whose clock
// can be moved forward by advance.
func contract(t *testing.T, s Store, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()
	until := time.Now().Add(time.Hour)

	if revoked, err := s.IsRevoked(ctx, "jti-1"); err != nil || revoked {
		t.Fatalf("fresh jti: revoked=%v err=%v", revoked, err)
	}
	if claimed, err := s.Revoke(ctx, "jti-1", until); err != nil || !claimed {
		t.Fatalf("Revoke: claimed=%v err=%v", claimed, err)
	}
	if claimed, err := s.Revoke(ctx, "jti-1", until); err != nil || claimed {
		t.Fatalf("second Revoke must not claim: claimed=%v err=%v", claimed, err)
	}
	if revoked, err := s.IsRevoked(ctx, "jti-1"); err != nil || !revoked {
		t.Fatalf("after Revoke: revoked=%v err=%v", revoked, err)
	}
	if revoked, _ := s.IsRevoked(ctx, "jti-2"); revoked {
		t.Error("unrelated jti reported revoked")
	}

	advance(time.Hour + time.Second)
	if revoked, err := s.IsRevoked(ctx, "jti-1"); err != nil || revoked {
		t.Errorf("entry should lapse after expiry: revoked=%v err=%v", revoked, err)
	}
}

// claimOnce revokes one jti from many goroutines and expects exactly one
// caller to win.
func claimOnce(t *testing.T, s Store) {
	t.Helper()
	const callers = 20
	var (
		wg     sync.WaitGroup
		claims atomic.Int32
	)
	errs := make(chan error, callers)
	until := time.Now().Add(time.Hour)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.Revoke(context.Background(), "shared", until)
			if err != nil {
				errs <- err
				return
			}
			if claimed {
				claims.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Revoke: %v", err)
	}
	if n := claims.Load(); n != 1 {
		t.Errorf("expected exactly one claim, got %d", n)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	offset := time.Duration(0)
	s.now = func() time.Time { return time.Now().Add(offset) }
	contract(t, s, func(d time.Duration) { offset += d })
}

func TestMemoryStore_ClaimOnce(t *testing.T) {
	claimOnce(t, NewMemoryStore())
}

func TestMemoryStore_ReclaimAfterExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if claimed, _ := s.Revoke(ctx, "jti", time.Now().Add(-time.Second)); !claimed {
		t.Fatal("first Revoke should claim")
	}
	if claimed, _ := s.Revoke(ctx, "jti", time.Now().Add(time.Minute)); !claimed {
		t.Error("a lapsed entry should be claimable again")
	}
}

func TestMemoryStore_Purge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Revoke(ctx, "old", time.Now().Add(-time.Minute))
	_, _ = s.Revoke(ctx, "live", time.Now().Add(time.Minute))
	if n := s.Purge(); n != 1 {
		t.Errorf("expected 1 purged, got %d", n)
	}
	if revoked, _ := s.IsRevoked(ctx, "live"); !revoked {
		t.Error("live entry purged")
	}
}

func TestRedisStore(t *testing.T) {
	client, mini := testutil.NewClient(t)
	s := NewRedisStore(client, "revoked:")
	contract(t, s, mini.FastForward)
}

func TestRedisStore_ClaimOnce(t *testing.T) {
	client, _ := testutil.NewClient(t)
	claimOnce(t, NewRedisStore(client, "revoked:"))
}

func TestRedisStore_KeyAndPastExpiry(t *testing.T) {
	client, mini := testutil.NewClient(t)
	s := NewRedisStore(client, "revoked:")
	ctx := context.Background()

	if _, err := s.Revoke(ctx, "abc", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !mini.Exists("revoked:abc") {
		t.Error("expected key revoked:abc")
	}
	if ttl := mini.TTL("revoked:abc"); ttl <= 0 || ttl > time.Minute {
		t.Errorf("unexpected ttl %v", ttl)
	}

	claimed, err := s.Revoke(ctx, "stale", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Revoke past expiry: %v", err)
	}
	if claimed {
		t.Error("already-expired token should not be claimed")
	}
	if mini.Exists("revoked:stale") {
		t.Error("already-expired token should not be stored")
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	client, mini := testutil.NewClient(t)
	s := NewRedisStore(client, "revoked:")
	mini.Close()
	if _, err := s.IsRevoked(context.Background(), "x"); err == nil {
		t.Error("expected error when redis is down")
	}
}

func TestGormStore(t *testing.T) {
	s := NewGormStore(newSQLite(t))
	offset := time.Duration(0)
	s.now = func() time.Time { return time.Now().Add(offset) }
	contract(t, s, func(d time.Duration) { offset += d })

	n, err := s.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 purged row, got %d", n)
	}
}

func TestGormStore_ClaimOnce(t *testing.T) {
	claimOnce(t, NewGormStore(newSQLite(t)))
}

func TestNew(t *testing.T) {
	client, _ := testutil.NewClient(t)
	db := newSQLite(t)

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"default memory", Config{}, "*revocation.MemoryStore"},
		{"redis", Config{Backend: BackendRedis}, "*revocation.RedisStore"},
		{"database", Config{Backend: BackendDatabase}, "*revocation.GormStore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, client, db)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := fmt.Sprintf("%T", s); got != tt.want {
				t.Errorf("New() = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := New(Config{Backend: BackendRedis}, nil, db); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := New(Config{Backend: "etcd"}, nil, nil); err == nil {
		t.Error("expected unsupported backend error")
	}
}
