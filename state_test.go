package authsess

import (
	"sync"
	"testing"
)

func TestStateCellStartsUnauthenticated(t *testing.T) {
	cell := newStateCell()

	if _, ok := cell.get().(Unauthenticated); !ok {
		t.Fatalf("expected Unauthenticated, got %T", cell.get())
	}
}

func TestStateCellPublishesLatestWrite(t *testing.T) {
	cell := newStateCell()

	cell.set(LoggingIn{})
	if _, ok := cell.get().(LoggingIn); !ok {
		t.Fatalf("expected LoggingIn, got %T", cell.get())
	}

	auth := Authenticated{
		User:  UserInfo{ID: "user-1"},
		Token: Token{AccessToken: "access-1"},
	}
	cell.set(auth)

	got, ok := cell.get().(Authenticated)
	if !ok {
		t.Fatalf("expected Authenticated, got %T", cell.get())
	}
	if got.User.ID != "user-1" || got.Token.AccessToken != "access-1" {
		t.Fatalf("state payload mangled: %+v", got)
	}
}

// Readers never lock; this only has teeth under the race detector.
func TestStateCellConcurrentReadsDuringWrites(t *testing.T) {
	cell := newStateCell()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				cell.set(Authenticated{User: UserInfo{ID: "user-1"}})
			} else {
				cell.set(Unauthenticated{})
			}
		}
		close(stop)
	}()

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				switch cell.get().(type) {
				case Unauthenticated, LoggingIn, Authenticated:
				default:
					t.Error("unknown state type")
					return
				}
			}
		}()
	}

	wg.Wait()
}
