package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if got, err := s.Get(ctx, "auth_token"); err != nil || got != "" {
		t.Fatalf("Get on empty store = (%q, %v), want (\"\", nil)", got, err)
	}

	if err := s.Put(ctx, "auth_token", "tok"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got, _ := s.Get(ctx, "auth_token"); got != "tok" {
		t.Fatalf("Get = %q, want %q", got, "tok")
	}

	if err := s.Delete(ctx, "auth_token"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := s.Get(ctx, "auth_token"); got != "" {
		t.Fatalf("Get after delete = %q, want empty", got)
	}

	// Deleting again must stay a no-op.
	if err := s.Delete(ctx, "auth_token"); err != nil {
		t.Fatalf("repeat Delete failed: %v", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%4)
			for j := 0; j < 200; j++ {
				_ = s.Put(ctx, key, "v")
				_, _ = s.Get(ctx, key)
				_ = s.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
