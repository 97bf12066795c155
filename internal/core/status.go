package core

import (
	"context"
	"fmt"

	"rentalcore/pkg/domain"
	"rentalcore/pkg/eventbus"
)

// Status mutators enforce the mark exclusivity invariant inside the
// transaction itself: setting one mark clears the other in the same atomic
// scope, so no committed state ever carries both. The commit-time rule in
// rule_status_exclusivity.go backstops this for any future mutation path.

// AddFollowUp marks a property for follow-up on behalf of a moderator,
// clearing any closed mark in the same transaction.
func (s *Service) AddFollowUp(ctx context.Context, propertyID string, actor Actor) error {
	return s.observe(ctx, "add_follow_up", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "add_follow_up", Actor: actor.ID}
		}
		var clearedClosure bool
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			_, clearedClosure = tx.Snapshot().Closures()[propertyID]
			if err := tx.SetFollowUp(propertyID, s.newMark(actor)); err != nil {
				return err
			}
			return tx.ClearClosure(propertyID)
		})
		if err != nil {
			return err
		}
		events := []eventbus.Event{
			{Topic: eventbus.TopicStatusChanged, PropertyID: propertyID, Actor: actor},
			{Topic: eventbus.TopicFollowUpChanged, PropertyID: propertyID, Actor: actor},
		}
		if clearedClosure {
			events = append(events, eventbus.Event{Topic: eventbus.TopicClosedChanged, PropertyID: propertyID, Actor: actor})
		}
		s.publish(events...)
		return nil
	})
}

// RemoveFollowUp clears the follow-up mark. Clearing an absent mark is a
// no-op that still publishes, so late subscribers converge.
func (s *Service) RemoveFollowUp(ctx context.Context, propertyID string, actor Actor) error {
	return s.observe(ctx, "remove_follow_up", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "remove_follow_up", Actor: actor.ID}
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.ClearFollowUp(propertyID)
		})
		if err != nil {
			return err
		}
		s.publish(
			eventbus.Event{Topic: eventbus.TopicStatusChanged, PropertyID: propertyID, Actor: actor},
			eventbus.Event{Topic: eventbus.TopicFollowUpChanged, PropertyID: propertyID, Actor: actor},
		)
		return nil
	})
}

// AddClosed marks a property closed, clearing any follow-up mark in the same
// transaction.
func (s *Service) AddClosed(ctx context.Context, propertyID string, actor Actor) error {
	return s.observe(ctx, "add_closed", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "add_closed", Actor: actor.ID}
		}
		var clearedFollowUp bool
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			_, clearedFollowUp = tx.Snapshot().FollowUps()[propertyID]
			if err := tx.SetClosure(propertyID, s.newMark(actor)); err != nil {
				return err
			}
			return tx.ClearFollowUp(propertyID)
		})
		if err != nil {
			return err
		}
		events := []eventbus.Event{
			{Topic: eventbus.TopicStatusChanged, PropertyID: propertyID, Actor: actor},
			{Topic: eventbus.TopicClosedChanged, PropertyID: propertyID, Actor: actor},
		}
		if clearedFollowUp {
			events = append(events, eventbus.Event{Topic: eventbus.TopicFollowUpChanged, PropertyID: propertyID, Actor: actor})
		}
		s.publish(events...)
		return nil
	})
}

// RemoveClosed clears the closed mark, returning the property to its default
// status state.
func (s *Service) RemoveClosed(ctx context.Context, propertyID string, actor Actor) error {
	return s.observe(ctx, "remove_closed", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "remove_closed", Actor: actor.ID}
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.ClearClosure(propertyID)
		})
		if err != nil {
			return err
		}
		s.publish(
			eventbus.Event{Topic: eventbus.TopicStatusChanged, PropertyID: propertyID, Actor: actor},
			eventbus.Event{Topic: eventbus.TopicClosedChanged, PropertyID: propertyID, Actor: actor},
		)
		return nil
	})
}

// ConfirmAvailability records a staff confirmation receipt that the listed
// availability was checked, without changing the availability itself.
func (s *Service) ConfirmAvailability(ctx context.Context, propertyID string, actor Actor) error {
	return s.observe(ctx, "confirm_availability", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "confirm_availability", Actor: actor.ID}
		}
		receipt := StatusConfirmation{StaffID: actor.ID, StaffName: actor.Name, ConfirmedAt: s.nowFn()}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			return tx.SetConfirmation(propertyID, receipt)
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicStatusChanged, PropertyID: propertyID, Actor: actor})
		return nil
	})
}

// SetAvailability flips the listed availability and drops any stale
// confirmation receipt, since the confirmed state no longer matches.
func (s *Service) SetAvailability(ctx context.Context, propertyID string, availability Availability, actor Actor) error {
	return s.observe(ctx, "set_availability", func(ctx context.Context) error {
		if !actor.CanModerate() {
			return domain.DeniedError{Op: "set_availability", Actor: actor.ID}
		}
		if availability != Available && availability != Occupied {
			return fmt.Errorf("unknown availability %q", availability)
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			if _, err := tx.UpdateProperty(propertyID, func(p *Property) error {
				p.Status = availability
				return nil
			}); err != nil {
				return err
			}
			return tx.ClearConfirmation(propertyID)
		})
		if err != nil {
			return err
		}
		s.publish(
			eventbus.Event{Topic: eventbus.TopicStatusChanged, PropertyID: propertyID, Actor: actor},
			eventbus.Event{Topic: eventbus.TopicPropertyUpdated, PropertyID: propertyID, Actor: actor},
		)
		return nil
	})
}

// IsFollowedUp reports whether the property carries a follow-up mark.
func (s *Service) IsFollowedUp(propertyID string) bool {
	_, ok := s.store.FollowUps()[propertyID]
	return ok
}

// IsClosed reports whether the property carries a closed mark.
func (s *Service) IsClosed(propertyID string) bool {
	_, ok := s.store.Closures()[propertyID]
	return ok
}

// FollowUpMark returns the follow-up mark for a property, if present.
func (s *Service) FollowUpMark(propertyID string) (StatusMark, bool) {
	mark, ok := s.store.FollowUps()[propertyID]
	return mark, ok
}

// ClosedMark returns the closed mark for a property, if present.
func (s *Service) ClosedMark(propertyID string) (StatusMark, bool) {
	mark, ok := s.store.Closures()[propertyID]
	return mark, ok
}

// Confirmation returns the availability confirmation receipt, if present.
func (s *Service) Confirmation(propertyID string) (StatusConfirmation, bool) {
	return s.store.GetConfirmation(propertyID)
}

func (s *Service) newMark(actor Actor) StatusMark {
	return StatusMark{UserID: actor.ID, UserName: actor.Name, At: s.nowFn()}
}
