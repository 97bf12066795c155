package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentalcore/pkg/domain"
)

func fixedClock() func() time.Time {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return base }
}

func createProperty(t *testing.T, store *Store, id string) domain.Property {
	t.Helper()
	var created domain.Property
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProperty(domain.Property{
			Base:     domain.Base{ID: id},
			Category: "apartment",
			Status:   domain.Available,
			Region:   "Dar es Salaam",
			Ward:     "Kinondoni",
			Price:    "450000",
		})
		return err
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return created
}

func TestCreateAndGetProperty(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	created := createProperty(t, store, "p1")

	if created.ID != "p1" {
		t.Fatalf("expected id p1, got %q", created.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("timestamps not assigned")
	}
	got, ok := store.GetProperty("p1")
	if !ok {
		t.Fatal("property not found after commit")
	}
	if got.Region != "Dar es Salaam" {
		t.Fatalf("unexpected region %q", got.Region)
	}
}

func TestCreateAssignsIDWhenEmpty(t *testing.T) {
	store := NewStore(nil)
	created := createProperty(t, store, "")
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	created := createProperty(t, store, "p1")

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateProperty("p1", func(p *domain.Property) error {
			p.ID = "hijacked"
			p.Price = "500000"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := store.GetProperty("p1")
	if !ok {
		t.Fatal("property lost after update")
	}
	if got.Price != "500000" {
		t.Fatalf("price not updated: %q", got.Price)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("update must preserve CreatedAt")
	}
	if _, ok := store.GetProperty("hijacked"); ok {
		t.Fatal("mutator must not be able to change the id")
	}
}

func TestUpdateMissingPropertyReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateProperty("missing", func(p *domain.Property) error { return nil })
		return err
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateProperty(domain.Property{Base: domain.Base{ID: "p1"}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, ok := store.GetProperty("p1"); ok {
		t.Fatal("failed transaction must not commit")
	}
}

func TestDeleteCascades(t *testing.T) {
	store := NewStore(nil)
	createProperty(t, store, "p1")

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.SetFollowUp("p1", domain.StatusMark{UserID: "staff1"}); err != nil {
			return err
		}
		if err := tx.SetConfirmation("p1", domain.StatusConfirmation{StaffID: "staff1"}); err != nil {
			return err
		}
		if err := tx.AddBookmark(domain.BookmarkKey{UserID: "u1", PropertyID: "p1"}); err != nil {
			return err
		}
		if err := tx.SetStaffNote("p1", "check the roof"); err != nil {
			return err
		}
		return tx.SetPrivateNote(domain.NoteKey{UserID: "u1", PropertyID: "p1"}, "liked it")
	})
	if err != nil {
		t.Fatalf("seed marks: %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteProperty("p1")
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, ok := store.GetProperty("p1"); ok {
		t.Fatal("property still present")
	}
	if len(store.FollowUps()) != 0 {
		t.Fatal("follow-up mark not cascaded")
	}
	if _, ok := store.GetConfirmation("p1"); ok {
		t.Fatal("confirmation not cascaded")
	}
	if store.HasBookmark(domain.BookmarkKey{UserID: "u1", PropertyID: "p1"}) {
		t.Fatal("bookmark not cascaded")
	}
	if store.GetStaffNote("p1") != "" {
		t.Fatal("staff note not cascaded")
	}
	if store.GetPrivateNote(domain.NoteKey{UserID: "u1", PropertyID: "p1"}) != "" {
		t.Fatal("private note not cascaded")
	}
}

func TestMarkRequiresProperty(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.SetFollowUp("ghost", domain.StatusMark{UserID: "staff1"})
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found for ghost property, got %v", err)
	}
}

func TestClearAbsentMarkIsNoOp(t *testing.T) {
	store := NewStore(nil)
	createProperty(t, store, "p1")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.ClearFollowUp("p1"); err != nil {
			return err
		}
		return tx.ClearClosure("p1")
	})
	if err != nil {
		t.Fatalf("clearing absent marks should succeed: %v", err)
	}
}

func TestBookmarkIdempotence(t *testing.T) {
	store := NewStore(nil)
	createProperty(t, store, "p1")
	key := domain.BookmarkKey{UserID: "u1", PropertyID: "p1"}

	for i := 0; i < 2; i++ {
		_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
			return tx.AddBookmark(key)
		})
		if err != nil {
			t.Fatalf("add bookmark (round %d): %v", i, err)
		}
	}
	if got := store.ListBookmarks("u1"); len(got) != 1 {
		t.Fatalf("expected single bookmark, got %v", got)
	}

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.RemoveBookmark(key); err != nil {
			return err
		}
		return tx.RemoveBookmark(key) // second removal is a no-op
	})
	if err != nil {
		t.Fatalf("remove bookmark: %v", err)
	}
	if store.HasBookmark(key) {
		t.Fatal("bookmark should be gone")
	}
}

func TestEmptyNoteDeletes(t *testing.T) {
	store := NewStore(nil)
	createProperty(t, store, "p1")

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.SetStaffNote("p1", "first draft")
	})
	if err != nil {
		t.Fatalf("set note: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.SetStaffNote("p1", "")
	})
	if err != nil {
		t.Fatalf("clear note: %v", err)
	}
	if store.GetStaffNote("p1") != "" {
		t.Fatal("empty text should delete the note")
	}
}

type blockEverything struct{}

func (blockEverything) Name() string { return "block_everything" }

func (blockEverything) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     "block_everything",
		Severity: domain.SeverityBlock,
		Message:  "no writes allowed",
	}}}, nil
}

func TestBlockingRuleRollsBack(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockEverything{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProperty(domain.Property{Base: domain.Base{ID: "p1"}})
		return err
	})
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if _, ok := store.GetProperty("p1"); ok {
		t.Fatal("blocked transaction must not commit")
	}
}

func TestQuotaRejectsOversizedState(t *testing.T) {
	store := NewStore(nil, WithQuota(200))

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProperty(domain.Property{
			Base:        domain.Base{ID: "p1"},
			Description: strPtr(string(make([]byte, 1024))),
		})
		return err
	})
	if !domain.IsQuotaExceeded(err) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if _, ok := store.GetProperty("p1"); ok {
		t.Fatal("over-quota write must roll back")
	}

	store.SetQuota(1 << 20)
	createProperty(t, store, "p1")
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	createProperty(t, store, "p1")
	createProperty(t, store, "p2")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.SetClosure("p1", domain.StatusMark{UserID: "staff1"}); err != nil {
			return err
		}
		return tx.SetUserNote("owner1", "responsive landlord")
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	snap := store.ExportState()
	restored := NewStore(nil)
	restored.ImportState(snap)

	if len(restored.ListProperties()) != 2 {
		t.Fatal("properties lost on import")
	}
	if len(restored.Closures()) != 1 {
		t.Fatal("closure lost on import")
	}
	if restored.GetUserNote("owner1") != "responsive landlord" {
		t.Fatal("user note lost on import")
	}
}

func TestViewSeesCommittedState(t *testing.T) {
	store := NewStore(nil)
	createProperty(t, store, "p1")
	err := store.View(context.Background(), func(v domain.TransactionView) error {
		if _, ok := v.FindProperty("p1"); !ok {
			t.Fatal("view missing committed property")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func strPtr(s string) *string { return &s }
