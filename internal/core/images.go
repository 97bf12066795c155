package core

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"rentalcore/internal/blob"
)

// ImageVault stores property images in a blob backend under
// properties/<propertyID>/<imageID> keys. The keys it returns are what
// Property.Images carries; deleting a property removes its whole prefix.
type ImageVault struct {
	blobs blob.Store
}

// NewImageVault wraps a blob store.
func NewImageVault(store blob.Store) *ImageVault {
	return &ImageVault{blobs: store}
}

// Store exposes the underlying blob store.
func (v *ImageVault) Store() blob.Store { return v.blobs }

func (v *ImageVault) prefix(propertyID string) string {
	return fmt.Sprintf("properties/%s/", propertyID)
}

// Add uploads one image for a property and returns its key.
func (v *ImageVault) Add(ctx context.Context, propertyID string, r io.Reader, contentType string) (blob.Info, error) {
	if propertyID == "" {
		return blob.Info{}, fmt.Errorf("property id required")
	}
	key := v.prefix(propertyID) + uuid.NewString()
	return v.blobs.Put(ctx, key, r, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"property_id": propertyID},
	})
}

// Open returns the image metadata and content for a stored key.
func (v *ImageVault) Open(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	return v.blobs.Get(ctx, key)
}

// URL returns a presigned or local URL for the image, when the backend
// supports it.
func (v *ImageVault) URL(ctx context.Context, key string) (string, error) {
	return v.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET"})
}

// Remove deletes one image, reporting whether it existed.
func (v *ImageVault) Remove(ctx context.Context, key string) (bool, error) {
	return v.blobs.Delete(ctx, key)
}

// List returns the stored image infos for a property, sorted by key.
func (v *ImageVault) List(ctx context.Context, propertyID string) ([]blob.Info, error) {
	return v.blobs.List(ctx, v.prefix(propertyID))
}

// RemoveAll deletes every image stored for the property and returns the
// count removed. Used as the cascade when a property is deleted.
func (v *ImageVault) RemoveAll(ctx context.Context, propertyID string) (int, error) {
	infos, err := v.blobs.List(ctx, v.prefix(propertyID))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		ok, err := v.blobs.Delete(ctx, info.Key)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
