package session

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mindcarelabs/mindcare/internal/domain"
)

func TestGetOrCreate(t *testing.T) {
	s := NewStore()

	sess, created := s.GetOrCreate("user-1")
	if !created {
		t.Fatal("Expected first GetOrCreate to create a session")
	}
	if sess.State != domain.StateMenu {
		t.Errorf("Expected new session in menu state, got %s", sess.State)
	}
	if sess.UserID != "user-1" {
		t.Errorf("Expected user-1, got %s", sess.UserID)
	}

	again, created := s.GetOrCreate("user-1")
	if created {
		t.Fatal("Expected second GetOrCreate to return the existing session")
	}
	if again.CreatedAt != sess.CreatedAt {
		t.Error("Expected the same session on repeated GetOrCreate")
	}
	if s.Len() != 1 {
		t.Errorf("Expected exactly one session, got %d", s.Len())
	}
}

func TestUpdateMissingSession(t *testing.T) {
	s := NewStore()

	_, err := s.Update("ghost", func(sess *domain.Session) error { return nil })
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
}

func TestUpdateAfterRemove(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")
	s.Remove("user-1")

	_, err := s.Update("user-1", func(sess *domain.Session) error { return nil })
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired after removal, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")

	s.Remove("user-1")
	s.Remove("user-1")
	s.Remove("never-existed")

	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d sessions", s.Len())
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")

	snap, err := s.Update("user-1", func(sess *domain.Session) error {
		sess.AddAnswer(2)
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Mutating the snapshot must not leak back into the store.
	snap.Answers[0] = 3

	check, _ := s.GetOrCreate("user-1")
	if check.Answers[0] != 2 {
		t.Errorf("Snapshot mutation leaked into store: got answer %d", check.Answers[0])
	}
}

func TestSameUserUpdatesAreSerialized(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, _ = s.Update("user-1", func(sess *domain.Session) error {
					sess.QuestionIndex++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	sess, _ := s.GetOrCreate("user-1")
	if sess.QuestionIndex != workers*perWorker {
		t.Errorf("Lost updates: expected %d increments, got %d", workers*perWorker, sess.QuestionIndex)
	}
}

func TestDistinctUsersAreIsolated(t *testing.T) {
	s := NewStore()

	const users = 50
	var wg sync.WaitGroup
	wg.Add(users)
	for u := 0; u < users; u++ {
		go func(u int) {
			defer wg.Done()
			id := "user-" + strconv.Itoa(u)
			s.GetOrCreate(id)
			for i := 0; i < 20; i++ {
				_, _ = s.Update(id, func(sess *domain.Session) error {
					sess.AddAnswer(i % 4)
					return nil
				})
			}
		}(u)
	}
	wg.Wait()

	if s.Len() != users {
		t.Fatalf("Expected %d sessions, got %d", users, s.Len())
	}
	for u := 0; u < users; u++ {
		sess, created := s.GetOrCreate("user-" + strconv.Itoa(u))
		if created {
			t.Fatalf("Session for user-%d disappeared", u)
		}
		if len(sess.Answers) != 20 {
			t.Errorf("user-%d: expected 20 answers, got %d", u, len(sess.Answers))
		}
	}
}

func TestConcurrentFirstContact(t *testing.T) {
	s := NewStore()

	// Two near-simultaneous first events for the same user: one plain
	// lookup, one lookup followed by a mutation. The create-path snapshot
	// must never observe the mutation mid-write.
	const users = 100
	var wg sync.WaitGroup
	wg.Add(users * 2)
	for u := 0; u < users; u++ {
		id := "user-" + strconv.Itoa(u)
		go func() {
			defer wg.Done()
			sess, _ := s.GetOrCreate(id)
			if sess.UserID != id {
				t.Errorf("Expected %s, got %s", id, sess.UserID)
			}
		}()
		go func() {
			defer wg.Done()
			s.GetOrCreate(id)
			_, _ = s.Update(id, func(sess *domain.Session) error {
				sess.AddAnswer(1)
				return nil
			})
		}()
	}
	wg.Wait()

	if s.Len() != users {
		t.Errorf("Expected %d sessions, got %d", users, s.Len())
	}
}

func TestUpdateRemovesSessionAtomically(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")

	snap, err := s.Update("user-1", func(sess *domain.Session) error {
		sess.QuestionIndex = 7
		return ErrRemoveSession
	})
	if err != nil {
		t.Fatalf("Update with remove failed: %v", err)
	}
	if snap.QuestionIndex != 7 {
		t.Errorf("Expected snapshot of the final state, got index %d", snap.QuestionIndex)
	}

	if s.Len() != 0 {
		t.Errorf("Expected session to be removed, store has %d", s.Len())
	}
	if _, err := s.Update("user-1", func(sess *domain.Session) error { return nil }); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired after removal, got %v", err)
	}
}

func TestConcurrentUpdatesRacingRemoval(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("user-1")

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers + 1)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = s.Update("user-1", func(sess *domain.Session) error {
					sess.QuestionIndex++
					return nil
				})
			}
		}()
	}
	go func() {
		defer wg.Done()
		_, _ = s.Update("user-1", func(sess *domain.Session) error {
			return ErrRemoveSession
		})
	}()
	wg.Wait()

	// Whatever interleaving happened, the session must be gone and further
	// updates must report expiry.
	if s.Len() != 0 {
		t.Errorf("Expected empty store after removal, got %d", s.Len())
	}
	if _, err := s.Update("user-1", func(sess *domain.Session) error { return nil }); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("stale")
	s.GetOrCreate("fresh")

	// Age one session well past the TTL.
	_, err := s.Update("stale", func(sess *domain.Session) error {
		sess.LastActivityAt = time.Now().Add(-2 * time.Hour)
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	removed := s.SweepExpired(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}

	if _, err := s.Update("stale", func(sess *domain.Session) error { return nil }); !errors.Is(err, ErrSessionExpired) {
		t.Error("Expected stale session to be gone")
	}
	if _, err := s.Update("fresh", func(sess *domain.Session) error { return nil }); err != nil {
		t.Errorf("Expected fresh session to survive, got %v", err)
	}
}

func TestSweepExpiredEmptyStore(t *testing.T) {
	s := NewStore()
	if removed := s.SweepExpired(time.Minute); removed != 0 {
		t.Errorf("Expected 0 removed from empty store, got %d", removed)
	}
}
