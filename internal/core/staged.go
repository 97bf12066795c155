package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// EditField names a property field that can be staged in an edit session.
type EditField string

const (
	FieldCategory    EditField = "category"
	FieldStatus      EditField = "status"
	FieldRegion      EditField = "region"
	FieldWard        EditField = "ward"
	FieldPrice       EditField = "price"
	FieldPaymentPlan EditField = "paymentPlan"
	FieldPricingUnit EditField = "pricingUnit"
	FieldAmenities   EditField = "amenities"
	FieldTitle       EditField = "title"
	FieldDescription EditField = "description"
	FieldBathrooms   EditField = "bathrooms"
	FieldArea        EditField = "area"
)

// ErrEditSessionClosed is returned when staging or committing against a
// session that was already committed or discarded.
var ErrEditSessionClosed = errors.New("edit session closed")

// EditSession buffers staged changes against a baseline snapshot of one
// property. Nothing touches the store until Commit; a failed Commit keeps the
// buffer so the caller can retry or discard.
type EditSession struct {
	svc      *Service
	actor    Actor
	baseline Property

	staged       map[EditField]any
	stagedImages []string
	imagesStaged bool
	closed       bool
}

// OpenEdit snapshots the property as the baseline for a new edit session.
func (s *Service) OpenEdit(propertyID string, actor Actor) (*EditSession, error) {
	baseline, err := s.GetProperty(propertyID)
	if err != nil {
		return nil, err
	}
	return &EditSession{
		svc:      s,
		actor:    actor,
		baseline: baseline,
		staged:   make(map[EditField]any),
	}, nil
}

// Baseline returns the snapshot the session was opened against.
func (e *EditSession) Baseline() Property { return e.baseline.Clone() }

// Stage records a proposed value for one field. The value's type must match
// the field; staging a value equal to the baseline is allowed and simply
// leaves HasChanges false for that field.
func (e *EditSession) Stage(field EditField, value any) error {
	if e.closed {
		return ErrEditSessionClosed
	}
	switch field {
	case FieldCategory, FieldRegion, FieldWard, FieldPrice, FieldPaymentPlan, FieldTitle, FieldDescription:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %s expects string, got %T", field, value)
		}
	case FieldStatus:
		v, ok := value.(Availability)
		if !ok {
			return fmt.Errorf("field %s expects Availability, got %T", field, value)
		}
		if v != Available && v != Occupied {
			return fmt.Errorf("unknown availability %q", v)
		}
	case FieldPricingUnit:
		if _, ok := value.(PricingUnit); !ok {
			return fmt.Errorf("field %s expects PricingUnit, got %T", field, value)
		}
	case FieldAmenities:
		v, ok := value.([]string)
		if !ok {
			return fmt.Errorf("field %s expects []string, got %T", field, value)
		}
		value = append([]string(nil), v...)
	case FieldBathrooms:
		if _, ok := value.(int); !ok {
			return fmt.Errorf("field %s expects int, got %T", field, value)
		}
	case FieldArea:
		if _, ok := value.(Area); !ok {
			return fmt.Errorf("field %s expects Area, got %T", field, value)
		}
	default:
		return fmt.Errorf("unknown edit field %q", field)
	}
	e.staged[field] = value
	return nil
}

// StageImages stages the full replacement image list, main image first.
func (e *EditSession) StageImages(images []string) error {
	if e.closed {
		return ErrEditSessionClosed
	}
	e.stagedImages = append([]string(nil), images...)
	e.imagesStaged = true
	return nil
}

// HasChanges reports whether any staged value differs from the baseline.
// Amenities compare as a set; images compare as an ordered sequence since the
// first entry is the main image.
func (e *EditSession) HasChanges() bool {
	if e.closed {
		return false
	}
	for field, value := range e.staged {
		if fieldDiffers(e.baseline, field, value) {
			return true
		}
	}
	if e.imagesStaged && !slices.Equal(e.stagedImages, e.baseline.Images) {
		return true
	}
	return false
}

// Commit merges the staged values over the baseline and writes the result as
// a single update. On success the session closes; on failure the buffer is
// retained.
func (e *EditSession) Commit(ctx context.Context) (Property, error) {
	if e.closed {
		return Property{}, ErrEditSessionClosed
	}
	updated, err := e.svc.UpdateProperty(ctx, e.baseline.ID, e.actor, func(p *Property) error {
		e.applyStaged(p)
		return nil
	})
	if err != nil {
		return Property{}, err
	}
	e.closed = true
	return updated, nil
}

// Discard drops every staged value and closes the session.
func (e *EditSession) Discard() {
	e.staged = nil
	e.stagedImages = nil
	e.imagesStaged = false
	e.closed = true
}

func (e *EditSession) applyStaged(p *Property) {
	for field, value := range e.staged {
		switch field {
		case FieldCategory:
			p.Category = value.(string)
		case FieldStatus:
			p.Status = value.(Availability)
		case FieldRegion:
			p.Region = value.(string)
		case FieldWard:
			p.Ward = value.(string)
		case FieldPrice:
			p.Price = value.(string)
		case FieldPaymentPlan:
			p.PaymentPlan = value.(string)
		case FieldPricingUnit:
			p.PricingUnit = value.(PricingUnit)
		case FieldAmenities:
			p.Amenities = append([]string(nil), value.([]string)...)
		case FieldTitle:
			title := value.(string)
			p.Title = &title
		case FieldDescription:
			desc := value.(string)
			p.Description = &desc
		case FieldBathrooms:
			p.Bathrooms = value.(int)
		case FieldArea:
			p.Area = value.(Area)
		}
	}
	if e.imagesStaged {
		p.Images = append([]string(nil), e.stagedImages...)
	}
}

func fieldDiffers(baseline Property, field EditField, value any) bool {
	switch field {
	case FieldCategory:
		return value.(string) != baseline.Category
	case FieldStatus:
		return value.(Availability) != baseline.Status
	case FieldRegion:
		return value.(string) != baseline.Region
	case FieldWard:
		return value.(string) != baseline.Ward
	case FieldPrice:
		return value.(string) != baseline.Price
	case FieldPaymentPlan:
		return value.(string) != baseline.PaymentPlan
	case FieldPricingUnit:
		return value.(PricingUnit) != baseline.PricingUnit
	case FieldAmenities:
		return !sameStringSet(value.([]string), baseline.Amenities)
	case FieldTitle:
		return value.(string) != derefOrEmpty(baseline.Title)
	case FieldDescription:
		return value.(string) != derefOrEmpty(baseline.Description)
	case FieldBathrooms:
		return value.(int) != baseline.Bathrooms
	case FieldArea:
		return value.(Area) != baseline.Area
	}
	return false
}

func sameStringSet(a, b []string) bool {
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	as = slices.Compact(as)
	bs = slices.Compact(bs)
	return slices.Equal(as, bs)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
