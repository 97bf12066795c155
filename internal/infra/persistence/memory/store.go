// Package memory implements the canonical in-memory persistent store for the
// rentalcore domain. Transactions run to completion under a single lock
// against a cloned snapshot, rules are evaluated before commit, and an
// optional byte quota models the capacity limit of the underlying storage.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"rentalcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

type state struct {
	properties    map[string]domain.Property
	followUps     map[string]domain.StatusMark
	closures      map[string]domain.StatusMark
	confirmations map[string]domain.StatusConfirmation
	bookmarks     map[domain.BookmarkKey]time.Time
	staffNotes    map[string]string
	privateNotes  map[domain.NoteKey]string
	userNotes     map[string]string
}

func newState() state {
	return state{
		properties:    make(map[string]domain.Property),
		followUps:     make(map[string]domain.StatusMark),
		closures:      make(map[string]domain.StatusMark),
		confirmations: make(map[string]domain.StatusConfirmation),
		bookmarks:     make(map[domain.BookmarkKey]time.Time),
		staffNotes:    make(map[string]string),
		privateNotes:  make(map[domain.NoteKey]string),
		userNotes:     make(map[string]string),
	}
}

func (s state) clone() state {
	cloned := newState()
	for k, v := range s.properties {
		cloned.properties[k] = cloneProperty(v)
	}
	for k, v := range s.followUps {
		cloned.followUps[k] = v
	}
	for k, v := range s.closures {
		cloned.closures[k] = v
	}
	for k, v := range s.confirmations {
		cloned.confirmations[k] = v
	}
	for k, v := range s.bookmarks {
		cloned.bookmarks[k] = v
	}
	for k, v := range s.staffNotes {
		cloned.staffNotes[k] = v
	}
	for k, v := range s.privateNotes {
		cloned.privateNotes[k] = v
	}
	for k, v := range s.userNotes {
		cloned.userNotes[k] = v
	}
	return cloned
}

func cloneProperty(p domain.Property) domain.Property {
	return p.Clone()
}

// Store provides an in-memory transactional store for the rentalcore domain.
type Store struct {
	mu     sync.RWMutex
	state  state
	engine *domain.RulesEngine
	nowFn  func() time.Time
	quota  int
}

// Option configures a Store.
type Option func(*Store)

// WithQuota bounds the serialized snapshot size in bytes. Zero means
// unlimited. A transaction whose committed state would exceed the quota
// fails with a domain.QuotaError and leaves prior state untouched.
func WithQuota(bytes int) Option {
	return func(s *Store) { s.quota = bytes }
}

// WithClock overrides the transaction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Quota returns the configured byte quota (zero when unlimited).
func (s *Store) Quota() int { return s.quota }

// SetQuota adjusts the byte quota at runtime. Used by tests simulating
// shrinking capacity.
func (s *Store) SetQuota(bytes int) {
	s.mu.Lock()
	s.quota = bytes
	s.mu.Unlock()
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	store   *Store
	state   state
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*Transaction)(nil)

// view exposes a read-only snapshot of a state to rules and derived reads.
type view struct {
	state *state
}

var _ domain.TransactionView = view{}

// ListProperties returns all properties within the snapshot.
func (v view) ListProperties() []domain.Property {
	out := make([]domain.Property, 0, len(v.state.properties))
	for _, p := range v.state.properties {
		out = append(out, cloneProperty(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindProperty retrieves a property by id from the snapshot.
func (v view) FindProperty(id string) (domain.Property, bool) {
	p, ok := v.state.properties[id]
	if !ok {
		return domain.Property{}, false
	}
	return cloneProperty(p), true
}

// FollowUps returns a copy of the follow-up marks keyed by property id.
func (v view) FollowUps() map[string]domain.StatusMark {
	out := make(map[string]domain.StatusMark, len(v.state.followUps))
	for k, m := range v.state.followUps {
		out[k] = m
	}
	return out
}

// Closures returns a copy of the closed marks keyed by property id.
func (v view) Closures() map[string]domain.StatusMark {
	out := make(map[string]domain.StatusMark, len(v.state.closures))
	for k, m := range v.state.closures {
		out[k] = m
	}
	return out
}

// FindConfirmation retrieves the availability confirmation receipt, if any.
func (v view) FindConfirmation(propertyID string) (domain.StatusConfirmation, bool) {
	c, ok := v.state.confirmations[propertyID]
	return c, ok
}

// HasBookmark reports bookmark membership for the composite key.
func (v view) HasBookmark(key domain.BookmarkKey) bool {
	_, ok := v.state.bookmarks[key]
	return ok
}

// ListBookmarks returns the property ids bookmarked by a user, ordered by id.
func (v view) ListBookmarks(userID string) []string {
	var out []string
	for k := range v.state.bookmarks {
		if k.UserID == userID {
			out = append(out, k.PropertyID)
		}
	}
	sort.Strings(out)
	return out
}

// StaffNote returns the shared staff note text, empty string when absent.
func (v view) StaffNote(propertyID string) string {
	return v.state.staffNotes[propertyID]
}

// PrivateNote returns the private note text for the composite key.
func (v view) PrivateNote(key domain.NoteKey) string {
	return v.state.privateNotes[key]
}

// UserNote returns the behavior note recorded about a user.
func (v view) UserNote(subjectUserID string) string {
	return v.state.userNotes[subjectUserID]
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The commit is rejected when a registered rule reports a blocking
// violation or when the serialized result exceeds the configured quota; in
// both cases prior state is left untouched.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.quota > 0 {
		size, err := serializedSize(tx.state)
		if err != nil {
			return domain.Result{}, fmt.Errorf("measure state: %w", err)
		}
		if size > s.quota {
			return result, domain.QuotaError{Size: size, Limit: s.quota}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

func serializedSize(st state) (int, error) {
	data, err := json.Marshal(exportState(st))
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func (tx *Transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state for reads within the same scope.
func (tx *Transaction) Snapshot() domain.TransactionView {
	return view{state: &tx.state}
}

// CreateProperty stores a new property within the transaction. An empty id
// is replaced with a random one; callers that need time-ordered ids assign
// their own before calling.
func (tx *Transaction) CreateProperty(p domain.Property) (domain.Property, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.properties[p.ID]; exists {
		return domain.Property{}, fmt.Errorf("property %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	tx.state.properties[p.ID] = cloneProperty(p)
	tx.recordChange(domain.Change{Entity: domain.EntityProperty, Action: domain.ActionCreate, Key: p.ID, After: cloneProperty(p)})
	return cloneProperty(p), nil
}

// UpdateProperty mutates a property using the provided mutator function.
// The id and creation timestamp are preserved; UpdatedAt is refreshed.
func (tx *Transaction) UpdateProperty(id string, mutator func(*domain.Property) error) (domain.Property, error) {
	current, ok := tx.state.properties[id]
	if !ok {
		return domain.Property{}, domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
	}
	before := cloneProperty(current)
	working := cloneProperty(current)
	if err := mutator(&working); err != nil {
		return domain.Property{}, err
	}
	working.ID = id
	working.CreatedAt = before.CreatedAt
	working.UpdatedAt = tx.now
	tx.state.properties[id] = cloneProperty(working)
	tx.recordChange(domain.Change{Entity: domain.EntityProperty, Action: domain.ActionUpdate, Key: id, Before: before, After: cloneProperty(working)})
	return cloneProperty(working), nil
}

// DeleteProperty removes a property and cascades removal of every status
// mark, confirmation, bookmark, and note keyed to it. The cascade lives here
// rather than in callers so no mutation path can leave orphans behind.
func (tx *Transaction) DeleteProperty(id string) error {
	current, ok := tx.state.properties[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
	}
	delete(tx.state.properties, id)
	delete(tx.state.followUps, id)
	delete(tx.state.closures, id)
	delete(tx.state.confirmations, id)
	delete(tx.state.staffNotes, id)
	for key := range tx.state.bookmarks {
		if key.PropertyID == id {
			delete(tx.state.bookmarks, key)
		}
	}
	for key := range tx.state.privateNotes {
		if key.PropertyID == id {
			delete(tx.state.privateNotes, key)
		}
	}
	tx.recordChange(domain.Change{Entity: domain.EntityProperty, Action: domain.ActionDelete, Key: id, Before: cloneProperty(current)})
	return nil
}

func (tx *Transaction) requireProperty(id string) error {
	if _, ok := tx.state.properties[id]; !ok {
		return domain.NotFoundError{Entity: domain.EntityProperty, ID: id}
	}
	return nil
}

// SetFollowUp places or overwrites the follow-up mark for a property.
// Mutual exclusion with the closed mark is the status engine's concern; the
// exclusivity rule re-checks it before commit.
func (tx *Transaction) SetFollowUp(propertyID string, mark domain.StatusMark) error {
	if err := tx.requireProperty(propertyID); err != nil {
		return err
	}
	if mark.At.IsZero() {
		mark.At = tx.now
	}
	tx.state.followUps[propertyID] = mark
	tx.recordChange(domain.Change{Entity: domain.EntityFollowUp, Action: domain.ActionCreate, Key: propertyID, After: mark})
	return nil
}

// ClearFollowUp removes the follow-up mark. Clearing an absent mark is a no-op.
func (tx *Transaction) ClearFollowUp(propertyID string) error {
	mark, ok := tx.state.followUps[propertyID]
	if !ok {
		return nil
	}
	delete(tx.state.followUps, propertyID)
	tx.recordChange(domain.Change{Entity: domain.EntityFollowUp, Action: domain.ActionDelete, Key: propertyID, Before: mark})
	return nil
}

// SetClosure places or overwrites the closed mark for a property.
func (tx *Transaction) SetClosure(propertyID string, mark domain.StatusMark) error {
	if err := tx.requireProperty(propertyID); err != nil {
		return err
	}
	if mark.At.IsZero() {
		mark.At = tx.now
	}
	tx.state.closures[propertyID] = mark
	tx.recordChange(domain.Change{Entity: domain.EntityClosure, Action: domain.ActionCreate, Key: propertyID, After: mark})
	return nil
}

// ClearClosure removes the closed mark. Clearing an absent mark is a no-op.
func (tx *Transaction) ClearClosure(propertyID string) error {
	mark, ok := tx.state.closures[propertyID]
	if !ok {
		return nil
	}
	delete(tx.state.closures, propertyID)
	tx.recordChange(domain.Change{Entity: domain.EntityClosure, Action: domain.ActionDelete, Key: propertyID, Before: mark})
	return nil
}

// SetConfirmation overwrites the availability confirmation receipt.
func (tx *Transaction) SetConfirmation(propertyID string, receipt domain.StatusConfirmation) error {
	if err := tx.requireProperty(propertyID); err != nil {
		return err
	}
	if receipt.ConfirmedAt.IsZero() {
		receipt.ConfirmedAt = tx.now
	}
	tx.state.confirmations[propertyID] = receipt
	tx.recordChange(domain.Change{Entity: domain.EntityConfirmation, Action: domain.ActionUpdate, Key: propertyID, After: receipt})
	return nil
}

// ClearConfirmation drops the confirmation receipt, if present. An
// availability edit invalidates any prior human confirmation.
func (tx *Transaction) ClearConfirmation(propertyID string) error {
	receipt, ok := tx.state.confirmations[propertyID]
	if !ok {
		return nil
	}
	delete(tx.state.confirmations, propertyID)
	tx.recordChange(domain.Change{Entity: domain.EntityConfirmation, Action: domain.ActionDelete, Key: propertyID, Before: receipt})
	return nil
}

// AddBookmark inserts a bookmark membership. Adding an existing membership
// is a no-op.
func (tx *Transaction) AddBookmark(key domain.BookmarkKey) error {
	if key.UserID == "" {
		return fmt.Errorf("bookmark user id required")
	}
	if err := tx.requireProperty(key.PropertyID); err != nil {
		return err
	}
	if _, exists := tx.state.bookmarks[key]; exists {
		return nil
	}
	tx.state.bookmarks[key] = tx.now
	tx.recordChange(domain.Change{Entity: domain.EntityBookmark, Action: domain.ActionCreate, Key: key.PropertyID, After: key})
	return nil
}

// RemoveBookmark drops a bookmark membership. Removing an absent membership
// is a no-op.
func (tx *Transaction) RemoveBookmark(key domain.BookmarkKey) error {
	if _, exists := tx.state.bookmarks[key]; !exists {
		return nil
	}
	delete(tx.state.bookmarks, key)
	tx.recordChange(domain.Change{Entity: domain.EntityBookmark, Action: domain.ActionDelete, Key: key.PropertyID, Before: key})
	return nil
}

// SetStaffNote overwrites the shared staff note for a property. Saving the
// empty string removes the entry; reads treat absence as the empty string.
func (tx *Transaction) SetStaffNote(propertyID, text string) error {
	if err := tx.requireProperty(propertyID); err != nil {
		return err
	}
	before := tx.state.staffNotes[propertyID]
	if text == "" {
		delete(tx.state.staffNotes, propertyID)
	} else {
		tx.state.staffNotes[propertyID] = text
	}
	tx.recordChange(domain.Change{Entity: domain.EntityStaffNote, Action: domain.ActionUpdate, Key: propertyID, Before: before, After: text})
	return nil
}

// SetPrivateNote overwrites a per-user private note on a property.
func (tx *Transaction) SetPrivateNote(key domain.NoteKey, text string) error {
	if key.UserID == "" {
		return fmt.Errorf("private note user id required")
	}
	if err := tx.requireProperty(key.PropertyID); err != nil {
		return err
	}
	before := tx.state.privateNotes[key]
	if text == "" {
		delete(tx.state.privateNotes, key)
	} else {
		tx.state.privateNotes[key] = text
	}
	tx.recordChange(domain.Change{Entity: domain.EntityPrivateNote, Action: domain.ActionUpdate, Key: key.PropertyID, Before: before, After: text})
	return nil
}

// SetUserNote overwrites the behavior note recorded about an uploader user.
func (tx *Transaction) SetUserNote(subjectUserID, text string) error {
	if subjectUserID == "" {
		return fmt.Errorf("user note subject id required")
	}
	before := tx.state.userNotes[subjectUserID]
	if text == "" {
		delete(tx.state.userNotes, subjectUserID)
	} else {
		tx.state.userNotes[subjectUserID] = text
	}
	tx.recordChange(domain.Change{Entity: domain.EntityUserNote, Action: domain.ActionUpdate, Key: subjectUserID, Before: before, After: text})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetProperty retrieves a property by id from committed state.
func (s *Store) GetProperty(id string) (domain.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.properties[id]
	if !ok {
		return domain.Property{}, false
	}
	return cloneProperty(p), true
}

// ListProperties returns all properties from committed state.
func (s *Store) ListProperties() []domain.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Property, 0, len(s.state.properties))
	for _, p := range s.state.properties {
		out = append(out, cloneProperty(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FollowUps returns the committed follow-up marks keyed by property id.
func (s *Store) FollowUps() map[string]domain.StatusMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.StatusMark, len(s.state.followUps))
	for k, m := range s.state.followUps {
		out[k] = m
	}
	return out
}

// Closures returns the committed closed marks keyed by property id.
func (s *Store) Closures() map[string]domain.StatusMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.StatusMark, len(s.state.closures))
	for k, m := range s.state.closures {
		out[k] = m
	}
	return out
}

// GetConfirmation retrieves the availability confirmation receipt, if any.
func (s *Store) GetConfirmation(propertyID string) (domain.StatusConfirmation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.confirmations[propertyID]
	return c, ok
}

// HasBookmark reports bookmark membership from committed state.
func (s *Store) HasBookmark(key domain.BookmarkKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.state.bookmarks[key]
	return ok
}

// ListBookmarks returns the property ids bookmarked by a user.
func (s *Store) ListBookmarks(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.state.bookmarks {
		if k.UserID == userID {
			out = append(out, k.PropertyID)
		}
	}
	sort.Strings(out)
	return out
}

// GetStaffNote returns the shared staff note, empty string when absent.
func (s *Store) GetStaffNote(propertyID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.staffNotes[propertyID]
}

// GetPrivateNote returns the private note for the composite key.
func (s *Store) GetPrivateNote(key domain.NoteKey) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.privateNotes[key]
}

// GetUserNote returns the behavior note about a user.
func (s *Store) GetUserNote(subjectUserID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.userNotes[subjectUserID]
}
