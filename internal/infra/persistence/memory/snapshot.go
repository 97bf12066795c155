package memory

import (
	"sort"
	"time"

	"rentalcore/pkg/domain"
)

// Snapshot is the JSON-serializable image of the full store state. Durable
// backends persist one bucket per collection and hydrate a fresh store from
// it on open. Map collections with composite keys are flattened to entry
// slices so the encoding stays plain JSON.
type Snapshot struct {
	Properties    []domain.Property   `json:"properties"`
	FollowUps     []StatusEntry       `json:"follow_ups"`
	Closures      []StatusEntry       `json:"closures"`
	Confirmations []ConfirmationEntry `json:"confirmations"`
	Bookmarks     []BookmarkEntry     `json:"bookmarks"`
	StaffNotes    []NoteEntry         `json:"staff_notes"`
	PrivateNotes  []PrivateNoteEntry  `json:"private_notes"`
	UserNotes     []NoteEntry         `json:"user_notes"`
}

// StatusEntry flattens a status mark keyed by property id.
type StatusEntry struct {
	PropertyID string            `json:"property_id"`
	Mark       domain.StatusMark `json:"mark"`
}

// ConfirmationEntry flattens an availability confirmation receipt.
type ConfirmationEntry struct {
	PropertyID string                    `json:"property_id"`
	Receipt    domain.StatusConfirmation `json:"receipt"`
}

// BookmarkEntry flattens a bookmark membership with its insertion time.
type BookmarkEntry struct {
	UserID     string    `json:"user_id"`
	PropertyID string    `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NoteEntry flattens a single-key note (staff note by property id, user
// behavior note by subject user id).
type NoteEntry struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// PrivateNoteEntry flattens a private note with its composite key.
type PrivateNoteEntry struct {
	UserID     string `json:"user_id"`
	PropertyID string `json:"property_id"`
	Text       string `json:"text"`
}

func exportState(st state) Snapshot {
	snap := Snapshot{
		Properties:    make([]domain.Property, 0, len(st.properties)),
		FollowUps:     make([]StatusEntry, 0, len(st.followUps)),
		Closures:      make([]StatusEntry, 0, len(st.closures)),
		Confirmations: make([]ConfirmationEntry, 0, len(st.confirmations)),
		Bookmarks:     make([]BookmarkEntry, 0, len(st.bookmarks)),
		StaffNotes:    make([]NoteEntry, 0, len(st.staffNotes)),
		PrivateNotes:  make([]PrivateNoteEntry, 0, len(st.privateNotes)),
		UserNotes:     make([]NoteEntry, 0, len(st.userNotes)),
	}
	for _, p := range st.properties {
		snap.Properties = append(snap.Properties, cloneProperty(p))
	}
	sort.Slice(snap.Properties, func(i, j int) bool { return snap.Properties[i].ID < snap.Properties[j].ID })
	for id, m := range st.followUps {
		snap.FollowUps = append(snap.FollowUps, StatusEntry{PropertyID: id, Mark: m})
	}
	sort.Slice(snap.FollowUps, func(i, j int) bool { return snap.FollowUps[i].PropertyID < snap.FollowUps[j].PropertyID })
	for id, m := range st.closures {
		snap.Closures = append(snap.Closures, StatusEntry{PropertyID: id, Mark: m})
	}
	sort.Slice(snap.Closures, func(i, j int) bool { return snap.Closures[i].PropertyID < snap.Closures[j].PropertyID })
	for id, c := range st.confirmations {
		snap.Confirmations = append(snap.Confirmations, ConfirmationEntry{PropertyID: id, Receipt: c})
	}
	sort.Slice(snap.Confirmations, func(i, j int) bool { return snap.Confirmations[i].PropertyID < snap.Confirmations[j].PropertyID })
	for key, at := range st.bookmarks {
		snap.Bookmarks = append(snap.Bookmarks, BookmarkEntry{UserID: key.UserID, PropertyID: key.PropertyID, CreatedAt: at})
	}
	sort.Slice(snap.Bookmarks, func(i, j int) bool {
		if snap.Bookmarks[i].UserID != snap.Bookmarks[j].UserID {
			return snap.Bookmarks[i].UserID < snap.Bookmarks[j].UserID
		}
		return snap.Bookmarks[i].PropertyID < snap.Bookmarks[j].PropertyID
	})
	for id, text := range st.staffNotes {
		snap.StaffNotes = append(snap.StaffNotes, NoteEntry{Key: id, Text: text})
	}
	sort.Slice(snap.StaffNotes, func(i, j int) bool { return snap.StaffNotes[i].Key < snap.StaffNotes[j].Key })
	for key, text := range st.privateNotes {
		snap.PrivateNotes = append(snap.PrivateNotes, PrivateNoteEntry{UserID: key.UserID, PropertyID: key.PropertyID, Text: text})
	}
	sort.Slice(snap.PrivateNotes, func(i, j int) bool {
		if snap.PrivateNotes[i].UserID != snap.PrivateNotes[j].UserID {
			return snap.PrivateNotes[i].UserID < snap.PrivateNotes[j].UserID
		}
		return snap.PrivateNotes[i].PropertyID < snap.PrivateNotes[j].PropertyID
	})
	for id, text := range st.userNotes {
		snap.UserNotes = append(snap.UserNotes, NoteEntry{Key: id, Text: text})
	}
	sort.Slice(snap.UserNotes, func(i, j int) bool { return snap.UserNotes[i].Key < snap.UserNotes[j].Key })
	return snap
}

func importState(snap Snapshot) state {
	st := newState()
	for _, p := range snap.Properties {
		if p.ID == "" {
			continue
		}
		st.properties[p.ID] = cloneProperty(p)
	}
	for _, e := range snap.FollowUps {
		if e.PropertyID == "" {
			continue
		}
		st.followUps[e.PropertyID] = e.Mark
	}
	for _, e := range snap.Closures {
		if e.PropertyID == "" {
			continue
		}
		st.closures[e.PropertyID] = e.Mark
	}
	for _, e := range snap.Confirmations {
		if e.PropertyID == "" {
			continue
		}
		st.confirmations[e.PropertyID] = e.Receipt
	}
	for _, e := range snap.Bookmarks {
		if e.UserID == "" || e.PropertyID == "" {
			continue
		}
		st.bookmarks[domain.BookmarkKey{UserID: e.UserID, PropertyID: e.PropertyID}] = e.CreatedAt
	}
	for _, e := range snap.StaffNotes {
		if e.Key == "" || e.Text == "" {
			continue
		}
		st.staffNotes[e.Key] = e.Text
	}
	for _, e := range snap.PrivateNotes {
		if e.UserID == "" || e.PropertyID == "" || e.Text == "" {
			continue
		}
		st.privateNotes[domain.NoteKey{UserID: e.UserID, PropertyID: e.PropertyID}] = e.Text
	}
	for _, e := range snap.UserNotes {
		if e.Key == "" || e.Text == "" {
			continue
		}
		st.userNotes[e.Key] = e.Text
	}
	return st
}

// ExportState returns a serializable snapshot of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return exportState(s.state)
}

// ImportState replaces the committed state with the snapshot contents.
// Entries with empty keys are dropped rather than rejected so a partially
// corrupt snapshot still hydrates to a usable store.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = importState(snap)
}
