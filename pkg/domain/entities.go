// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by rentalcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityProperty identifies a property listing record.
	EntityProperty EntityType = "property"
	// EntityFollowUp identifies a follow-up status mark.
	EntityFollowUp EntityType = "follow_up"
	// EntityClosure identifies a closed status mark.
	EntityClosure EntityType = "closure"
	// EntityConfirmation identifies an availability confirmation receipt.
	EntityConfirmation EntityType = "confirmation"
	// EntityBookmark identifies a per-user bookmark membership.
	EntityBookmark EntityType = "bookmark"
	// EntityStaffNote identifies the shared staff note for a property.
	EntityStaffNote EntityType = "staff_note"
	// EntityPrivateNote identifies a per-user private note on a property.
	EntityPrivateNote EntityType = "private_note"
	// EntityUserNote identifies a behavior note about an uploader user.
	EntityUserNote EntityType = "user_note"
)

// Availability represents the occupancy state of a property. It is an
// ordinary property field, independent of the follow-up/closed status marks.
type Availability string

// Canonical availability values.
const (
	Available Availability = "available"
	Occupied  Availability = "occupied"
)

// PricingUnit enumerates the billing period a price refers to.
type PricingUnit string

// Canonical pricing units.
const (
	PerMonth PricingUnit = "month"
	PerNight PricingUnit = "night"
	PerDay   PricingUnit = "day"
	PerHour  PricingUnit = "hour"
)

// Role identifies the privilege class of an actor.
type Role string

// Actor roles recognised by mutator authorization checks.
const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

// Actor carries the identity consumed from the external auth collaborator:
// current user id, display name, role, and staff approval flag.
type Actor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Approved bool   `json:"approved"`
}

// CanModerate reports whether the actor may invoke staff-only mutators.
// Staff accounts must additionally be approved.
func (a Actor) CanModerate() bool {
	return a.Role == RoleAdmin || (a.Role == RoleStaff && a.Approved)
}

// Base contains common fields for all identified domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Owner captures the identity of the user who uploaded a property.
type Owner struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	UploaderType string `json:"uploader_type"`
}

// Area holds a surface measurement with its unit.
type Area struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Property represents a rental listing tracked by the system. The image list,
// when non-empty, always carries the main image at index 0.
type Property struct {
	Base
	Category    string       `json:"category"`
	Status      Availability `json:"status"`
	Region      string       `json:"region"`
	Ward        string       `json:"ward"`
	Price       string       `json:"price"`
	PaymentPlan string       `json:"payment_plan"`
	PricingUnit PricingUnit  `json:"pricing_unit"`
	Amenities   []string     `json:"amenities"`
	Images      []string     `json:"images"`
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Owner       Owner        `json:"owner"`
	Bathrooms   int          `json:"bathrooms"`
	Area        Area         `json:"area"`
}

// MainImage returns the key of the main image, or the empty string when the
// property has no images.
func (p Property) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Clone returns a deep copy of the property, detaching slices and optional
// string fields from the receiver.
func (p Property) Clone() Property {
	cp := p
	cp.Amenities = append([]string(nil), p.Amenities...)
	cp.Images = append([]string(nil), p.Images...)
	if p.Title != nil {
		title := *p.Title
		cp.Title = &title
	}
	if p.Description != nil {
		desc := *p.Description
		cp.Description = &desc
	}
	return cp
}

// StatusMark records who placed a follow-up or closed mark and when.
// At most one of the two marks exists per property at any time; the status
// engine enforces the exclusion on every mutator and the rules engine
// re-checks it at commit time.
type StatusMark struct {
	UserID   string    `json:"user_id"`
	UserName string    `json:"user_name"`
	At       time.Time `json:"at"`
}

// StatusConfirmation is the receipt left by a staff member who last verified
// a property's availability. Overwritten on each reconfirmation; presence is
// informational only and never feeds the status state machine.
type StatusConfirmation struct {
	StaffID     string    `json:"staff_id"`
	StaffName   string    `json:"staff_name"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// BookmarkKey is the typed composite key of a bookmark membership. A struct
// key instead of delimiter-joined id strings removes any possibility of
// collisions when ids contain the delimiter.
type BookmarkKey struct {
	UserID     string `json:"user_id"`
	PropertyID string `json:"property_id"`
}

// NoteKey is the typed composite key of a private note.
type NoteKey struct {
	UserID     string `json:"user_id"`
	PropertyID string `json:"property_id"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Key    string
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured for rule evaluation.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
