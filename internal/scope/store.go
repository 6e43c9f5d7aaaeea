// Package scope holds the ambient team/project/user context shared by a
// subtree of views. A Store is passed explicitly down the construction chain;
// there is no process-wide instance.
package scope

import (
	"sync"

	"github.com/starford/folio/internal/models"
)

// Snapshot is the merged view of a Store. Callers must treat the pointed-to
// values as read-only.
type Snapshot struct {
	Team        *models.Team
	Project     *models.Project
	CurrentUser *models.User
}

// Store is a hierarchical, merge-on-write key/value store. Writes never
// remove a key and never replace a populated field with an empty one.
// Reads overlay the store's own fields on its parent's merged snapshot.
type Store struct {
	parent *Store

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a root store.
func New() *Store {
	return &Store{}
}

// Child creates a store whose reads fall back to s.
func (s *Store) Child() *Store {
	return &Store{parent: s}
}

// Write merges the populated fields of p into the store.
func (s *Store) Write(p Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if teamPopulated(p.Team) {
		s.snap.Team = overlayTeam(s.snap.Team, p.Team)
	}
	if projectPopulated(p.Project) {
		s.snap.Project = p.Project
	}
	if userPopulated(p.CurrentUser) {
		s.snap.CurrentUser = p.CurrentUser
	}
}

// Read returns the merged snapshot visible from s.
func (s *Store) Read() Snapshot {
	var out Snapshot
	if s.parent != nil {
		out = s.parent.Read()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Team != nil {
		out.Team = overlayTeam(out.Team, s.snap.Team)
	}
	if s.snap.Project != nil {
		out.Project = s.snap.Project
	}
	if s.snap.CurrentUser != nil {
		out.CurrentUser = s.snap.CurrentUser
	}
	return out
}

// SyncTeam writes team only when its slug differs from the visible one, or
// when it carries settings the visible team with that slug lacks. It reports
// whether a write happened.
func (s *Store) SyncTeam(team *models.Team) bool {
	if !teamPopulated(team) {
		return false
	}
	if cur := s.Read().Team; cur != nil && cur.Slug == team.Slug && !teamRicher(team, cur) {
		return false
	}
	s.Write(Snapshot{Team: team})
	return true
}

// SyncProject writes project only when its id differs from the visible one.
// It reports whether a write happened.
func (s *Store) SyncProject(project *models.Project) bool {
	if !projectPopulated(project) {
		return false
	}
	if cur := s.Read().Project; cur != nil && cur.ID == project.ID {
		return false
	}
	s.Write(Snapshot{Project: project})
	return true
}

// teamRicher reports whether t sets a field that cur, the same team, leaves
// empty.
func teamRicher(t, cur *models.Team) bool {
	return (cur.Name == "" && t.Name != "") || (cur.SuggestedTags == "" && t.SuggestedTags != "")
}

// overlayTeam puts over on top of base. A slug-only reference to the same
// team keeps base's settings instead of hiding them.
func overlayTeam(base, over *models.Team) *models.Team {
	if base == nil || base.Slug != over.Slug || !teamRicher(base, over) {
		return over
	}
	merged := *over
	if merged.Name == "" {
		merged.Name = base.Name
	}
	if merged.SuggestedTags == "" {
		merged.SuggestedTags = base.SuggestedTags
	}
	return &merged
}

func teamPopulated(t *models.Team) bool       { return t != nil && t.Slug != "" }
func projectPopulated(p *models.Project) bool { return p != nil && p.ID != 0 }
func userPopulated(u *models.User) bool       { return u != nil && u.ID != "" }
