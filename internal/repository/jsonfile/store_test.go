package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/avolkhov/melodeon/internal/errs"
	"github.com/avolkhov/melodeon/internal/model"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	s, err := New(path, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, path
}

func testAccount(username string) *model.Account {
	return &model.Account{
		ID:             uuid.Must(uuid.NewV4()),
		Username:       username,
		CredentialHash: "$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, testAccount("alice"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("username=%q", byID.Username)
	}

	byName, err := s.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("id mismatch: %s != %s", byName.ID, created.ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetByID(ctx, uuid.Must(uuid.NewV4())); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("GetByID: want ErrNotFound, got %v", err)
	}
	if _, err := s.GetByUsername(ctx, "ghost"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("GetByUsername: want ErrNotFound, got %v", err)
	}
}

func TestCreate_CaseInsensitiveConflict(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, testAccount("TestUser")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, testAccount("testuser")); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	// Display case is preserved, lookup is folded.
	for _, name := range []string{"testuser", "TESTUSER", "TestUser"} {
		a, err := s.GetByUsername(ctx, name)
		if err != nil {
			t.Fatalf("GetByUsername(%q): %v", name, err)
		}
		if a.Username != "TestUser" {
			t.Fatalf("stored case lost: %q", a.Username)
		}
	}
}

func TestCreate_FirstAccountBecomesAdmin(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, testAccount("first"))
	if err != nil {
		t.Fatalf("Create(first): %v", err)
	}
	if !first.IsAdmin {
		t.Fatalf("first account must be admin")
	}

	second, err := s.Create(ctx, testAccount("second"))
	if err != nil {
		t.Fatalf("Create(second): %v", err)
	}
	if second.IsAdmin {
		t.Fatalf("second account must not be admin")
	}
}

func TestCreate_ConcurrentDuplicate_ExactlyOneWins(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	const n = 16
	names := []string{"Alice", "alice", "ALICE", "aLiCe"}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := s.Create(ctx, testAccount(name))
			results <- err
		}(names[i%len(names)])
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, errs.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("ok=%d conflicts=%d, want 1/%d", ok, conflicts, n-1)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count=%d, want 1", count)
	}
}

func TestCreate_ConcurrentFirstRegistration_OneAdmin(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	admins := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := s.Create(ctx, testAccount("user"+string(rune('a'+i))))
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			admins <- a.IsAdmin
		}(i)
	}
	wg.Wait()
	close(admins)

	var adminCount int
	for isAdmin := range admins {
		if isAdmin {
			adminCount++
		}
	}
	if adminCount != 1 {
		t.Fatalf("admins=%d, want exactly 1", adminCount)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, testAccount("alice"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Now().UTC()
	created.LastLogin = &now
	updated, err := s.Update(ctx, created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.LastLogin == nil || !updated.LastLogin.Equal(now) {
		t.Fatalf("last_login not persisted: %+v", updated.LastLogin)
	}

	missing := testAccount("ghost")
	if _, err := s.Update(ctx, missing); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, testAccount("alice"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal")
	}

	removed, err = s.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete(2): %v", err)
	}
	if removed {
		t.Fatalf("second delete must report false")
	}
}

func TestPersistence_Reload(t *testing.T) {
	t.Parallel()
	s, path := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, testAccount("alice"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened, err := New(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	a, err := reopened.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID after reload: %v", err)
	}
	if a.Username != "alice" || !a.IsAdmin {
		t.Fatalf("record lost on reload: %+v", a)
	}
	if a.CredentialHash != created.CredentialHash {
		t.Fatalf("credential hash not persisted")
	}
}

func TestStartup_CorruptFileFailsLoudly(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "accounts.json")
	if err := os.WriteFile(path, []byte(`{"accounts": [truncated`), 0o600); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	if _, err := New(path, zap.NewNop()); err == nil {
		t.Fatalf("want startup error for corrupt file")
	}
}

func TestStartup_InterruptedWriteRecovers(t *testing.T) {
	t.Parallel()
	s, path := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, testAccount("alice"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Simulate a crash between the temp write and the rename: a stray temp
	// file with garbage next to an intact canonical snapshot.
	if err := os.WriteFile(path+".tmp", []byte("half-written"), 0o600); err != nil {
		t.Fatalf("seed tmp file: %v", err)
	}

	reopened, err := New(path, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen after interrupted write: %v", err)
	}
	if _, err := reopened.GetByID(ctx, created.ID); err != nil {
		t.Fatalf("committed state lost: %v", err)
	}
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	seed, err := s.Create(ctx, testAccount("seed"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				a, err := s.GetByID(ctx, seed.ID)
				if err != nil {
					t.Errorf("GetByID: %v", err)
					return
				}
				// A reader sees either no last_login or a complete timestamp,
				// never a torn record.
				if a.Username != "seed" {
					t.Errorf("torn read: %+v", a)
					return
				}
				if _, err := s.Count(ctx); err != nil {
					t.Errorf("Count: %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		now := time.Now().UTC()
		seed.LastLogin = &now
		if _, err := s.Update(ctx, seed); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}
