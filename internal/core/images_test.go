package core

import (
	"context"
	"io"
	"strings"
	"testing"

	"rentalcore/internal/blob"
)

func newVault() *ImageVault {
	return NewImageVault(blob.NewMemory())
}

func TestVaultAddAndOpen(t *testing.T) {
	vault := newVault()
	ctx := context.Background()

	info, err := vault.Add(ctx, "p1", strings.NewReader("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.HasPrefix(info.Key, "properties/p1/") {
		t.Fatalf("unexpected key %q", info.Key)
	}
	if info.ContentType != "image/jpeg" {
		t.Fatalf("content type lost: %q", info.ContentType)
	}

	got, rc, err := vault.Open(ctx, info.Key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("content mismatch: %q", data)
	}
	if got.Size != int64(len("jpeg-bytes")) {
		t.Fatalf("size mismatch: %d", got.Size)
	}
}

func TestVaultAddRequiresProperty(t *testing.T) {
	if _, err := newVault().Add(context.Background(), "", strings.NewReader("x"), ""); err == nil {
		t.Fatal("expected error for empty property id")
	}
}

func TestVaultListIsPrefixScoped(t *testing.T) {
	vault := newVault()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := vault.Add(ctx, "p1", strings.NewReader("a"), ""); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := vault.Add(ctx, "p2", strings.NewReader("b"), ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	infos, err := vault.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 images for p1, got %d", len(infos))
	}
}

func TestVaultRemoveAll(t *testing.T) {
	vault := newVault()
	ctx := context.Background()

	if _, err := vault.Add(ctx, "p1", strings.NewReader("a"), ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := vault.Add(ctx, "p1", strings.NewReader("b"), ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	keep, err := vault.Add(ctx, "p2", strings.NewReader("c"), "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	removed, err := vault.RemoveAll(ctx, "p1")
	if err != nil {
		t.Fatalf("remove all: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if infos, _ := vault.List(ctx, "p1"); len(infos) != 0 {
		t.Fatal("p1 images should be gone")
	}
	if _, _, err := vault.Open(ctx, keep.Key); err != nil {
		t.Fatalf("p2 image should survive: %v", err)
	}
}

func TestDeletePropertyCascadesToVault(t *testing.T) {
	vault := newVault()
	svc, _ := newTestService(t, WithImageVault(vault))
	ctx := context.Background()
	created := seedProperty(t, svc)

	if _, err := vault.Add(ctx, created.ID, strings.NewReader("img"), "image/png"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.DeleteProperty(ctx, created.ID, ownerActor); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if infos, _ := vault.List(ctx, created.ID); len(infos) != 0 {
		t.Fatal("images should be removed with the property")
	}
}
