package core

import (
	"context"

	"rentalcore/pkg/domain"
	"rentalcore/pkg/eventbus"
)

// AddBookmark records a per-user bookmark. Bookmarking twice is a no-op; an
// empty user id is rejected so anonymous sessions cannot write.
func (s *Service) AddBookmark(ctx context.Context, userID, propertyID string) error {
	return s.observe(ctx, "add_bookmark", func(ctx context.Context) error {
		if userID == "" {
			return domain.DeniedError{Op: "add_bookmark"}
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.AddBookmark(BookmarkKey{UserID: userID, PropertyID: propertyID})
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicBookmarksChanged, PropertyID: propertyID, UserID: userID})
		return nil
	})
}

// RemoveBookmark deletes a per-user bookmark. Removing an absent bookmark is
// a no-op that still publishes.
func (s *Service) RemoveBookmark(ctx context.Context, userID, propertyID string) error {
	return s.observe(ctx, "remove_bookmark", func(ctx context.Context) error {
		if userID == "" {
			return domain.DeniedError{Op: "remove_bookmark"}
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.RemoveBookmark(BookmarkKey{UserID: userID, PropertyID: propertyID})
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicBookmarksChanged, PropertyID: propertyID, UserID: userID})
		return nil
	})
}

// IsBookmarked reports whether the user has bookmarked the property.
func (s *Service) IsBookmarked(userID, propertyID string) bool {
	return s.store.HasBookmark(BookmarkKey{UserID: userID, PropertyID: propertyID})
}

// Bookmarks returns the property ids the user has bookmarked, sorted.
func (s *Service) Bookmarks(userID string) []string {
	return s.store.ListBookmarks(userID)
}
