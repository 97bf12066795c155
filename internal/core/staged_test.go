package core

import (
	"context"
	"errors"
	"testing"

	"rentalcore/pkg/domain"
)

func openSession(t *testing.T, svc *Service, id string, actor Actor) *EditSession {
	t.Helper()
	session, err := svc.OpenEdit(id, actor)
	if err != nil {
		t.Fatalf("open edit: %v", err)
	}
	return session
}

func TestOpenEditMissingProperty(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.OpenEdit("ghost", ownerActor); !domain.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestHasChangesTracksBaseline(t *testing.T) {
	svc, _ := newTestService(t)
	created := seedProperty(t, svc)
	session := openSession(t, svc, created.ID, ownerActor)

	if session.HasChanges() {
		t.Fatal("fresh session should report no changes")
	}

	// staging the baseline value is not a change
	if err := session.Stage(FieldPrice, created.Price); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if session.HasChanges() {
		t.Fatal("staging the baseline value should not count as a change")
	}

	if err := session.Stage(FieldPrice, "999999"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if !session.HasChanges() {
		t.Fatal("changed price should be reported")
	}

	// staging back the original reverts to no changes
	if err := session.Stage(FieldPrice, created.Price); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if session.HasChanges() {
		t.Fatal("restoring the baseline value should clear the change")
	}
}

func TestAmenitiesCompareAsSet(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.CreateProperty(context.Background(), PropertyDraft{
		Category:  "apartment",
		Amenities: []string{"wifi", "parking"},
	}, Owner{ID: ownerActor.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	session := openSession(t, svc, created.ID, ownerActor)

	if err := session.Stage(FieldAmenities, []string{"parking", "wifi"}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if session.HasChanges() {
		t.Fatal("reordered amenities are the same set")
	}
	if err := session.Stage(FieldAmenities, []string{"wifi"}); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if !session.HasChanges() {
		t.Fatal("dropped amenity should be a change")
	}
}

func TestImagesCompareAsSequence(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.CreateProperty(context.Background(), PropertyDraft{
		Category: "apartment",
		Images:   []string{"main", "second"},
	}, Owner{ID: ownerActor.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	session := openSession(t, svc, created.ID, ownerActor)

	if err := session.StageImages([]string{"main", "second"}); err != nil {
		t.Fatalf("stage images: %v", err)
	}
	if session.HasChanges() {
		t.Fatal("identical image sequence is not a change")
	}
	// swapping changes the main image, so order matters
	if err := session.StageImages([]string{"second", "main"}); err != nil {
		t.Fatalf("stage images: %v", err)
	}
	if !session.HasChanges() {
		t.Fatal("reordered images change the main image")
	}
}

func TestStageRejectsWrongType(t *testing.T) {
	svc, _ := newTestService(t)
	created := seedProperty(t, svc)
	session := openSession(t, svc, created.ID, ownerActor)

	if err := session.Stage(FieldBathrooms, "two"); err == nil {
		t.Fatal("expected type error for string bathrooms")
	}
	if err := session.Stage(FieldStatus, "open"); err == nil {
		t.Fatal("expected type error for raw string status")
	}
	if err := session.Stage(EditField("unknown"), "x"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestCommitMergesStagedValues(t *testing.T) {
	svc, _ := newTestService(t)
	created := seedProperty(t, svc)
	session := openSession(t, svc, created.ID, ownerActor)

	if err := session.Stage(FieldPrice, "777000"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := session.Stage(FieldTitle, "Sunny two-bedroom"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := session.Stage(FieldBathrooms, 2); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := session.StageImages([]string{"properties/x/cover"}); err != nil {
		t.Fatalf("stage images: %v", err)
	}

	updated, err := session.Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if updated.Price != "777000" || updated.Bathrooms != 2 {
		t.Fatalf("staged fields not merged: %+v", updated)
	}
	if updated.Title == nil || *updated.Title != "Sunny two-bedroom" {
		t.Fatal("title not merged")
	}
	if updated.MainImage() != "properties/x/cover" {
		t.Fatalf("images not merged: %v", updated.Images)
	}
	// untouched fields survive
	if updated.Region != created.Region {
		t.Fatalf("unstaged field changed: %q", updated.Region)
	}

	// the session is spent after a successful commit
	if _, err := session.Commit(context.Background()); !errors.Is(err, ErrEditSessionClosed) {
		t.Fatalf("expected closed-session error, got %v", err)
	}
}

func TestFailedCommitKeepsBuffer(t *testing.T) {
	svc, _ := newTestService(t)
	created := seedProperty(t, svc)

	// session opened by someone who cannot write
	session := openSession(t, svc, created.ID, otherActor)
	if err := session.Stage(FieldPrice, "1"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	if _, err := session.Commit(context.Background()); !domain.IsDenied(err) {
		t.Fatalf("expected denied commit, got %v", err)
	}
	if !session.HasChanges() {
		t.Fatal("failed commit must keep the staged buffer")
	}

	got, err := svc.GetProperty(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Price != created.Price {
		t.Fatal("failed commit must not write")
	}
}

func TestDiscardDropsBuffer(t *testing.T) {
	svc, _ := newTestService(t)
	created := seedProperty(t, svc)
	session := openSession(t, svc, created.ID, ownerActor)

	if err := session.Stage(FieldWard, "Ilala"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	session.Discard()

	if session.HasChanges() {
		t.Fatal("discarded session should report no changes")
	}
	if err := session.Stage(FieldWard, "Temeke"); !errors.Is(err, ErrEditSessionClosed) {
		t.Fatalf("staging after discard should fail, got %v", err)
	}
	if _, err := session.Commit(context.Background()); !errors.Is(err, ErrEditSessionClosed) {
		t.Fatalf("commit after discard must never write, got %v", err)
	}

	got, err := svc.GetProperty(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Ward != created.Ward {
		t.Fatal("discard leaked a write")
	}
}

func TestCommittedStatusEditClearsConfirmation(t *testing.T) {
	svc, _ := newTestService(t)
	created := seedProperty(t, svc)
	ctx := context.Background()

	if err := svc.ConfirmAvailability(ctx, created.ID, staffActor); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// a commit that leaves the availability alone keeps the receipt
	session := openSession(t, svc, created.ID, ownerActor)
	if err := session.Stage(FieldWard, "Ilala"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := session.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, ok := svc.Confirmation(created.ID); !ok {
		t.Fatal("non-status edit should not drop the receipt")
	}

	session = openSession(t, svc, created.ID, ownerActor)
	if err := session.Stage(FieldStatus, Occupied); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := session.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, ok := svc.Confirmation(created.ID); ok {
		t.Fatal("staged availability edit should drop the confirmation receipt")
	}
	got, err := svc.GetProperty(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != Occupied {
		t.Fatalf("expected occupied, got %q", got.Status)
	}
}
