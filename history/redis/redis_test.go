package redis_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/adorahq/companion-go-sdk/core"
	redishistory "github.com/adorahq/companion-go-sdk/history/redis"
)

func newTestStore(t *testing.T, cfg redishistory.Config) (*redishistory.Store, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redishistory.New(client, cfg), srv
}

func TestSeedOnce(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, redishistory.Config{})

	if err := store.Seed(ctx, "ns1", "Hi: A\n\nHi: B", "\n\n"); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	err := store.Seed(ctx, "ns1", "Hi: C", "\n\n")
	if !errors.Is(err, core.ErrAlreadySeeded) {
		t.Fatalf("second seed: got %v, want ErrAlreadySeeded", err)
	}

	seeded, err := store.Seeded(ctx, "ns1")
	if err != nil {
		t.Fatalf("Seeded: %v", err)
	}
	if !seeded {
		t.Fatal("namespace should report seeded")
	}

	entries, err := store.ReadRecent(ctx, "ns1", 0)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Text != "Hi: A" || entries[1].Text != "Hi: B" {
		t.Errorf("seed run out of order: %+v", entries)
	}
	if entries[0].Speaker != core.RoleCompanion {
		t.Errorf("seed entries must be companion voice, got %q", entries[0].Speaker)
	}
}

func TestSeedConcurrent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, redishistory.Config{})

	var wg sync.WaitGroup
	winners := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Seed(ctx, "ns1", "Hi: A\n\nHi: B", "\n\n")
			if err == nil {
				winners <- struct{}{}
				return
			}
			if !errors.Is(err, core.ErrAlreadySeeded) {
				t.Errorf("seed: %v", err)
			}
		}()
	}
	wg.Wait()
	close(winners)

	if n := len(winners); n != 1 {
		t.Errorf("%d seeders won, want exactly 1", n)
	}

	entries, err := store.ReadRecent(ctx, "ns1", 0)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want one seed run of 2", len(entries))
	}
}

func TestSeedRunPrecedesRacingAppend(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, redishistory.Config{})

	// An appender that waits for the seeded marker must find the full
	// seed run already in the log; its entry may never slip in front.
	for i := 0; i < 500; i++ {
		ns := fmt.Sprintf("race-ns-%d", i)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				seeded, err := store.Seeded(ctx, ns)
				if err != nil {
					t.Errorf("Seeded: %v", err)
					return
				}
				if seeded {
					break
				}
			}
			if _, err := store.Append(ctx, ns, core.RoleUser, "hello"); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()

		if err := store.Seed(ctx, ns, "Hi: A\n\nHi: B", "\n\n"); err != nil {
			t.Fatalf("Seed: %v", err)
		}
		wg.Wait()

		entries, err := store.ReadRecent(ctx, ns, 0)
		if err != nil {
			t.Fatalf("ReadRecent: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("got %d entries, want seed run plus one append", len(entries))
		}
		if entries[0].Speaker != core.RoleCompanion || entries[0].Text != "Hi: A" {
			t.Fatalf("first entry is %+v, want the start of the seed run", entries[0])
		}
		if entries[2].Speaker != core.RoleUser {
			t.Fatalf("append landed at %+v, want it after the seed run", entries[2])
		}
	}
}

func TestAppendSequenceMonotonic(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, redishistory.Config{})

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Append(ctx, "ns1", core.RoleUser, "hello"); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := store.ReadRecent(ctx, "ns1", 0)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(entries) != 30 {
		t.Fatalf("lost entries: got %d, want 30", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Sequence <= entries[i-1].Sequence {
			t.Fatalf("sequence not strictly increasing: %d then %d",
				entries[i-1].Sequence, entries[i].Sequence)
		}
	}
}

func TestReadRecentWindow(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, redishistory.Config{})

	for i := 0; i < 10; i++ {
		if _, err := store.Append(ctx, "ns1", core.RoleUser, "msg"); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := store.ReadRecent(ctx, "ns1", 4)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	if entries[0].Sequence != 7 || entries[3].Sequence != 10 {
		t.Errorf("window should hold the newest entries oldest-first, got %+v", entries)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, redishistory.Config{})

	if _, err := store.Append(ctx, "ns1", core.RoleUser, "for ns1"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := store.ReadRecent(ctx, "ns2", 0)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ns2 should be empty, got %+v", entries)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestStore(t, redishistory.Config{TTL: time.Minute})

	if err := store.Seed(ctx, "ns1", "Hi: A", "\n"); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := store.Append(ctx, "ns1", core.RoleUser, "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	srv.FastForward(2 * time.Minute)

	entries, err := store.ReadRecent(ctx, "ns1", 0)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("idle namespace should have expired, got %+v", entries)
	}

	seeded, err := store.Seeded(ctx, "ns1")
	if err != nil {
		t.Fatalf("Seeded: %v", err)
	}
	if seeded {
		t.Error("expired namespace should read as unseeded again")
	}
}

func TestAppendBackendDown(t *testing.T) {
	ctx := context.Background()
	store, srv := newTestStore(t, redishistory.Config{})

	srv.Close()

	if _, err := store.Append(ctx, "ns1", core.RoleUser, "hello"); err == nil {
		t.Fatal("append against a dead backend must fail, not silently proceed")
	}
}
