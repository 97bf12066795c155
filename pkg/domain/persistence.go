package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Mutators run to completion under the
// store lock; no two transactions interleave their read-modify-write cycles.
type Transaction interface {
	Snapshot() TransactionView
	CreateProperty(Property) (Property, error)
	UpdateProperty(id string, mutator func(*Property) error) (Property, error)
	// DeleteProperty removes the record and cascades removal of every status
	// mark, confirmation, bookmark, staff note, and private note keyed to it.
	DeleteProperty(id string) error
	SetFollowUp(propertyID string, mark StatusMark) error
	ClearFollowUp(propertyID string) error
	SetClosure(propertyID string, mark StatusMark) error
	ClearClosure(propertyID string) error
	SetConfirmation(propertyID string, receipt StatusConfirmation) error
	ClearConfirmation(propertyID string) error
	AddBookmark(key BookmarkKey) error
	RemoveBookmark(key BookmarkKey) error
	SetStaffNote(propertyID, text string) error
	SetPrivateNote(key NoteKey, text string) error
	SetUserNote(subjectUserID, text string) error
}

// TransactionView provides read-only access to snapshot data for rules and
// derived views. Returned collections are defensive copies.
type TransactionView interface {
	ListProperties() []Property
	FindProperty(id string) (Property, bool)
	FollowUps() map[string]StatusMark
	Closures() map[string]StatusMark
	FindConfirmation(propertyID string) (StatusConfirmation, bool)
	HasBookmark(key BookmarkKey) bool
	ListBookmarks(userID string) []string
	StaffNote(propertyID string) string
	PrivateNote(key NoteKey) string
	UserNote(subjectUserID string) string
}

// RuleView is the read surface handed to rules during evaluation.
type RuleView = TransactionView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetProperty(id string) (Property, bool)
	ListProperties() []Property
	FollowUps() map[string]StatusMark
	Closures() map[string]StatusMark
	GetConfirmation(propertyID string) (StatusConfirmation, bool)
	HasBookmark(key BookmarkKey) bool
	ListBookmarks(userID string) []string
	GetStaffNote(propertyID string) string
	GetPrivateNote(key NoteKey) string
	GetUserNote(subjectUserID string) string
}
