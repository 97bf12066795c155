package core

import (
	"context"

	"rentalcore/pkg/domain"
	"rentalcore/pkg/eventbus"
)

// Three note scopes live side by side: staff notes are shared per property
// among moderators, private notes are per user per property, and user notes
// record staff observations about a user. Saving an empty text deletes the
// note in every scope.

// StaffNote returns the shared staff note for a property, readable only by
// moderators.
func (s *Service) StaffNote(propertyID string, reader Actor) (string, error) {
	if !reader.CanModerate() {
		return "", domain.DeniedError{Op: "read_staff_note", Actor: reader.ID}
	}
	return s.store.GetStaffNote(propertyID), nil
}

// SaveStaffNote writes the shared staff note for a property. Empty text
// deletes the note.
func (s *Service) SaveStaffNote(ctx context.Context, propertyID, text string, actor Actor) error {
	return s.observe(ctx, "save_staff_note", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "save_staff_note", Actor: actor.ID}
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.SetStaffNote(propertyID, text)
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicNotesChanged, PropertyID: propertyID, Actor: actor})
		return nil
	})
}

// PrivateNote returns a user's personal note on a property. Only the owning
// user or an admin may read it.
func (s *Service) PrivateNote(userID, propertyID string, reader Actor) (string, error) {
	if reader.ID == "" || (reader.ID != userID && reader.Role != RoleAdmin) {
		return "", domain.DeniedError{Op: "read_private_note", Actor: reader.ID}
	}
	return s.store.GetPrivateNote(NoteKey{UserID: userID, PropertyID: propertyID}), nil
}

// SavePrivateNote writes the actor's personal note on a property. Empty text
// deletes the note.
func (s *Service) SavePrivateNote(ctx context.Context, propertyID, text string, actor Actor) error {
	return s.observe(ctx, "save_private_note", func(ctx context.Context) error {
		if actor.ID == "" {
			return domain.DeniedError{Op: "save_private_note"}
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.SetPrivateNote(NoteKey{UserID: actor.ID, PropertyID: propertyID}, text)
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicPrivateNotesChange, PropertyID: propertyID, UserID: actor.ID, Actor: actor})
		return nil
	})
}

// UserNote returns the staff observation recorded about a user, readable only
// by moderators.
func (s *Service) UserNote(subjectUserID string, reader Actor) (string, error) {
	if !reader.CanModerate() {
		return "", domain.DeniedError{Op: "read_user_note", Actor: reader.ID}
	}
	return s.store.GetUserNote(subjectUserID), nil
}

// SaveUserNote records a staff observation about a user. Empty text deletes
// the note.
func (s *Service) SaveUserNote(ctx context.Context, subjectUserID, text string, actor Actor) error {
	return s.observe(ctx, "save_user_note", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "save_user_note", Actor: actor.ID}
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.SetUserNote(subjectUserID, text)
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicUserNotesChanged, UserID: subjectUserID, Actor: actor})
		return nil
	})
}
