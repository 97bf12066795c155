package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"rentalcore/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentalcore.db")

	store := openStore(t, path)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateProperty(domain.Property{
			Base:     domain.Base{ID: "p1"},
			Category: "house",
			Region:   "Mwanza",
			Price:    "800000",
		}); err != nil {
			return err
		}
		if err := tx.SetFollowUp("p1", domain.StatusMark{UserID: "staff1", UserName: "Asha"}); err != nil {
			return err
		}
		if err := tx.AddBookmark(domain.BookmarkKey{UserID: "u1", PropertyID: "p1"}); err != nil {
			return err
		}
		return tx.SetStaffNote("p1", "owner asked for repaint")
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	got, ok := reloaded.GetProperty("p1")
	if !ok {
		t.Fatal("property missing after reload")
	}
	if got.Region != "Mwanza" || got.Price != "800000" {
		t.Fatalf("property fields lost: %+v", got)
	}
	if mark, ok := reloaded.FollowUps()["p1"]; !ok || mark.UserName != "Asha" {
		t.Fatalf("follow-up mark lost: %+v", mark)
	}
	if !reloaded.HasBookmark(domain.BookmarkKey{UserID: "u1", PropertyID: "p1"}) {
		t.Fatal("bookmark lost after reload")
	}
	if reloaded.GetStaffNote("p1") != "owner asked for repaint" {
		t.Fatal("staff note lost after reload")
	}
}

func TestFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentalcore.db")

	store := openStore(t, path)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.SetFollowUp("ghost", domain.StatusMark{UserID: "staff1"})
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	if len(reloaded.FollowUps()) != 0 {
		t.Fatal("failed transaction leaked into sqlite state")
	}
}

func TestCorruptPayloadDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentalcore.db")

	store := openStore(t, path)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProperty(domain.Property{Base: domain.Base{ID: "p1"}})
		return err
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.DB().Exec(`UPDATE state SET payload = ? WHERE bucket = 'properties'`, []byte("{not json")); err != nil {
		t.Fatalf("corrupt payload: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	if got := reloaded.ListProperties(); len(got) != 0 {
		t.Fatalf("corrupt bucket should hydrate empty, got %d properties", len(got))
	}
	// store stays usable for new writes
	_, err = reloaded.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProperty(domain.Property{Base: domain.Base{ID: "p2"}})
		return err
	})
	if err != nil {
		t.Fatalf("write after corrupt hydrate: %v", err)
	}
}

func TestDefaultPathApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.db")
	store := openStore(t, path)
	if store.Path() != path {
		t.Fatalf("unexpected path %q", store.Path())
	}
}
