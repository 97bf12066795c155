package memory

import (
	"context"
	"encoding/json"
	"testing"

	"rentalcore/pkg/domain"
)

func TestExportIsDeterministic(t *testing.T) {
	store := NewStore(nil, WithClock(fixedClock()))
	for _, id := range []string{"c", "a", "b"} {
		createProperty(t, store, id)
	}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.AddBookmark(domain.BookmarkKey{UserID: "u2", PropertyID: "a"}); err != nil {
			return err
		}
		return tx.AddBookmark(domain.BookmarkKey{UserID: "u1", PropertyID: "b"})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := json.Marshal(store.ExportState())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(store.ExportState())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("export must serialize identically across calls")
	}

	snap := store.ExportState()
	if len(snap.Properties) != 3 || snap.Properties[0].ID != "a" {
		t.Fatalf("properties not sorted: %+v", snap.Properties)
	}
}

func TestImportDropsEmptyKeys(t *testing.T) {
	store := NewStore(nil)
	store.ImportState(Snapshot{
		Properties: []domain.Property{
			{Base: domain.Base{ID: "p1"}},
			{}, // no id, dropped
		},
		UserNotes: []NoteEntry{
			{Key: "owner1", Text: "fine"},
			{Key: "", Text: "orphan"},
		},
	})
	if len(store.ListProperties()) != 1 {
		t.Fatal("empty-id property should be dropped")
	}
	if store.GetUserNote("owner1") != "fine" {
		t.Fatal("valid note lost")
	}
}
