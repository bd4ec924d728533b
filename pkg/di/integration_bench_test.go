package di

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-repository-criteria/cache"
	"github.com/goliatone/go-repository-criteria/criteria"
	"github.com/goliatone/go-repository-criteria/repository"
)

func seedUsers(tb testing.TB, users *repository.Repository, n int) []int64 {
	tb.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		u, err := repository.As[*User](users.Create(context.Background(), map[string]any{
			"name":  fmt.Sprintf("User %d", i),
			"email": fmt.Sprintf("user%d@example.com", i),
		}))
		if err != nil {
			tb.Fatalf("Create() failed: %v", err)
		}
		ids = append(ids, u.ID)
	}
	return ids
}

// TestConcurrentAccess shares one repository handle between goroutines
func TestConcurrentAccess(t *testing.T) {
	container := newTestContainer(t, testConfig())
	repo := container.NewBunRepository(newTestDB(t), newTestRegistry())
	users := repo.Entity("user")
	ids := seedUsers(t, users, 20)

	ctx := context.Background()
	const numGoroutines = 20
	const operationsPerGoroutine = 25

	var wg sync.WaitGroup
	errs := make(chan error, numGoroutines*operationsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := 0; j < operationsPerGoroutine; j++ {
				id := ids[(workerID+j)%len(ids)]
				switch j % 3 {
				case 0:
					u, err := repository.As[*User](users.Find(ctx, id))
					if err != nil {
						errs <- err
						continue
					}
					if u.ID != id {
						errs <- fmt.Errorf("worker %d: expected user %d, got %d", workerID, id, u.ID)
					}
				case 1:
					if _, err := users.All(ctx); err != nil {
						errs <- err
					}
				default:
					if _, err := users.WithCriteria(criteria.WhereEq("id", id)).First(ctx); err != nil {
						errs <- err
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}
}

// TestConcurrentReadWrite interleaves updates with cached reads
func TestConcurrentReadWrite(t *testing.T) {
	container := newTestContainer(t, testConfig())
	repo := container.NewBunRepository(newTestDB(t), newTestRegistry())
	users := repo.Entity("user")
	ids := seedUsers(t, users, 5)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 200)

	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if _, err := users.Find(ctx, ids[j%len(ids)]); err != nil {
					errs <- err
				}
			}
		}(i)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				name := fmt.Sprintf("writer-%d-%d", workerID, j)
				if _, err := users.Update(ctx, ids[j], map[string]any{"name": name}); err != nil {
					errs <- err
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	// A write with no readers in flight leaves the cache consistent
	for _, id := range ids {
		want := fmt.Sprintf("final-%d", id)
		if _, err := users.Update(ctx, id, map[string]any{"name": want}); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		cached, err := repository.As[*User](users.Find(ctx, id))
		if err != nil {
			t.Fatalf("Find() failed: %v", err)
		}
		if cached.Name != want {
			t.Errorf("User %d: expected %q, got %q", id, want, cached.Name)
		}
	}
}

// BenchmarkKeySerializationPerformance benchmarks key serialization performance
func BenchmarkKeySerializationPerformance(b *testing.B) {
	serializer := cache.NewDefaultKeySerializer()

	testCases := []struct {
		name string
		args []any
	}{
		{name: "record_id", args: []any{int64(123)}},
		{name: "collection", args: []any{cache.CollectionMarker}},
		{name: "string_id", args: []any{"4f6c1c9e-8d5e-4a53-b0a2-0d1f0e7c9a11"}},
		{name: "composite", args: []any{"tenant", []int{1, 2, 3}, map[string]int{"limit": 10}}},
	}

	for _, tc := range testCases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = serializer.SerializeKey("users", tc.args...)
			}
		})
	}
}

// BenchmarkCachedVsUncachedFind compares reads served from the cache with
// reads that always reach sqlite.
func BenchmarkCachedVsUncachedFind(b *testing.B) {
	container := newTestContainer(b, testConfig())
	db := newTestDB(b)
	registry := newTestRegistry()

	cached := container.NewBunRepository(db, registry).Entity("user")
	ids := seedUsers(b, cached, 100)
	ctx := context.Background()

	b.Run("cached_Find", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = cached.Find(ctx, ids[i%len(ids)])
		}
	})

	uncached := container.NewBunRepository(db, registry, repository.WithCache(nil)).Entity("user")
	b.Run("uncached_Find", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = uncached.Find(ctx, ids[i%len(ids)])
		}
	})
}

// BenchmarkConcurrentCacheAccess benchmarks parallel cached reads
func BenchmarkConcurrentCacheAccess(b *testing.B) {
	container := newTestContainer(b, testConfig())
	users := container.NewBunRepository(newTestDB(b), newTestRegistry()).Entity("user")
	ids := seedUsers(b, users, 100)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = users.Find(ctx, ids[i%len(ids)])
			i++
		}
	})
}
