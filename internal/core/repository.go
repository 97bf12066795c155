package core

import (
	"context"
	"sort"

	"rentalcore/pkg/domain"
	"rentalcore/pkg/eventbus"
)

// PropertyDraft carries the caller-supplied fields for a new listing. The
// service assigns the id and timestamps.
type PropertyDraft struct {
	Category    string
	Status      Availability
	Region      string
	Ward        string
	Price       string
	PaymentPlan string
	PricingUnit PricingUnit
	Amenities   []string
	Images      []string
	Title       *string
	Description *string
	Bathrooms   int
	Area        Area
}

// CreateProperty persists a new listing owned by the given owner and publishes
// a property-added event. The returned property carries the assigned id.
func (s *Service) CreateProperty(ctx context.Context, draft PropertyDraft, owner Owner) (Property, error) {
	var created Property
	err := s.observe(ctx, "create_property", func(ctx context.Context) error {
		candidate := Property{
			Base:        domain.Base{ID: s.newPropertyID()},
			Category:    draft.Category,
			Status:      draft.Status,
			Region:      draft.Region,
			Ward:        draft.Ward,
			Price:       draft.Price,
			PaymentPlan: draft.PaymentPlan,
			PricingUnit: draft.PricingUnit,
			Amenities:   append([]string(nil), draft.Amenities...),
			Images:      append([]string(nil), draft.Images...),
			Title:       draft.Title,
			Description: draft.Description,
			Owner:       owner,
			Bathrooms:   draft.Bathrooms,
			Area:        draft.Area,
		}
		if candidate.Status == "" {
			candidate.Status = Available
		}
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			stored, err := tx.CreateProperty(candidate)
			if err != nil {
				return err
			}
			created = stored
			return nil
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicPropertyAdded, PropertyID: created.ID})
		return nil
	})
	if err != nil {
		return Property{}, err
	}
	return created, nil
}

// GetProperty fetches a single property, serving repeat lookups from the
// bounded id cache until the next write invalidates it.
func (s *Service) GetProperty(id string) (Property, error) {
	if p, ok := s.byID.Get(id); ok {
		return p.Clone(), nil
	}
	p, ok := s.store.GetProperty(id)
	if !ok {
		return Property{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
	}
	s.byID.Add(id, p.Clone())
	return p, nil
}

// ListProperties returns every property ordered newest first. The list is
// computed once per write generation and memoized.
func (s *Service) ListProperties() []Property {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if !s.listValid {
		props := s.store.ListProperties()
		sortPropertiesNewestFirst(props)
		s.listCache = props
		s.listValid = true
	}
	return clonedProperties(s.listCache)
}

// UpdateProperty applies the mutator to the stored record. Only the owner or
// a moderator may update; the id and creation timestamp are preserved. When
// the update changes availability, any confirmation receipt is dropped in the
// same transaction, so the invariant holds no matter which caller edits.
func (s *Service) UpdateProperty(ctx context.Context, id string, actor Actor, mutate func(*Property) error) (Property, error) {
	var updated Property
	err := s.observe(ctx, "update_property", func(ctx context.Context) error {
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			current, ok := tx.Snapshot().FindProperty(id)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
			}
			if !canEditProperty(actor, current) {
				return domain.DeniedError{Op: "update_property", Actor: actor.ID}
			}
			stored, err := tx.UpdateProperty(id, func(p *Property) error {
				if err := mutate(p); err != nil {
					return err
				}
				p.Owner = current.Owner
				return nil
			})
			if err != nil {
				return err
			}
			if stored.Status != current.Status {
				if err := tx.ClearConfirmation(id); err != nil {
					return err
				}
			}
			updated = stored
			return nil
		})
		if err != nil {
			return err
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicPropertyUpdated, PropertyID: id, Actor: actor})
		return nil
	})
	if err != nil {
		return Property{}, err
	}
	return updated, nil
}

// DeleteProperty removes a listing. The store cascades marks, bookmarks, and
// notes; stored images are removed best-effort afterwards.
func (s *Service) DeleteProperty(ctx context.Context, id string, actor Actor) error {
	return s.observe(ctx, "delete_property", func(ctx context.Context) error {
		_, err := s.runWrite(ctx, func(tx domain.Transaction) error {
			current, ok := tx.Snapshot().FindProperty(id)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
			}
			if !canEditProperty(actor, current) {
				return domain.DeniedError{Op: "delete_property", Actor: actor.ID}
			}
			return tx.DeleteProperty(id)
		})
		if err != nil {
			return err
		}
		if s.images != nil {
			if _, err := s.images.RemoveAll(ctx, id); err != nil {
				s.logger.Warn("image cleanup after delete failed", "property", id, "error", err)
			}
		}
		s.publish(eventbus.Event{Topic: eventbus.TopicPropertyDeleted, PropertyID: id, Actor: actor})
		return nil
	})
}

// ListClosed returns the properties currently marked closed, newest first.
func (s *Service) ListClosed() []Property {
	closures := s.store.Closures()
	return s.filterProperties(func(p Property) bool {
		_, closed := closures[p.ID]
		return closed
	})
}

// ListFollowedUp returns the properties marked for follow-up, newest first.
// A property that somehow carries both marks is treated as closed and
// excluded here, mirroring the commit-time exclusivity rule.
func (s *Service) ListFollowedUp() []Property {
	followUps := s.store.FollowUps()
	closures := s.store.Closures()
	return s.filterProperties(func(p Property) bool {
		if _, closed := closures[p.ID]; closed {
			return false
		}
		_, followed := followUps[p.ID]
		return followed
	})
}

// ListBookmarked returns the properties the user has bookmarked, newest
// first. Bookmarks pointing at deleted properties are skipped.
func (s *Service) ListBookmarked(userID string) []Property {
	ids := s.store.ListBookmarks(userID)
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	return s.filterProperties(func(p Property) bool {
		_, ok := keep[p.ID]
		return ok
	})
}

func (s *Service) filterProperties(keep func(Property) bool) []Property {
	all := s.ListProperties()
	out := make([]Property, 0, len(all))
	for _, p := range all {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func canEditProperty(actor Actor, p Property) bool {
	if actor.ID == "" {
		return false
	}
	return actor.ID == p.Owner.ID || actor.CanModerate()
}

func clonedProperties(in []Property) []Property {
	out := make([]Property, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func sortPropertiesNewestFirst(props []Property) {
	sort.Slice(props, func(i, j int) bool {
		if props[i].CreatedAt.Equal(props[j].CreatedAt) {
			return props[i].ID > props[j].ID
		}
		return props[i].CreatedAt.After(props[j].CreatedAt)
	})
}

func sortPropertiesOldestFirst(props []Property) {
	sort.Slice(props, func(i, j int) bool {
		if props[i].CreatedAt.Equal(props[j].CreatedAt) {
			return props[i].ID < props[j].ID
		}
		return props[i].CreatedAt.Before(props[j].CreatedAt)
	})
}
