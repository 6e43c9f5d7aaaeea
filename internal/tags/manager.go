// Package tags computes an entity's tag labels and team suggestions and
// issues tag create/delete mutations.
package tags

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
	"github.com/starford/folio/internal/scope"
)

// CurrentLabels returns e's tag labels in collection order.
func CurrentLabels(e *models.Entity) []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		out = append(out, t.Label)
	}
	return out
}

// ParseSuggestions splits a comma-separated suggestion list, trimming entries
// and dropping empty and repeated ones.
func ParseSuggestions(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Manager issues tag mutations through a Gateway.
type Manager struct {
	gw     *mutation.Gateway
	scope  *scope.Store
	logger *slog.Logger

	mu     sync.Mutex
	parsed map[string][]string
}

// NewManager creates a Manager. sc may be nil when no annotator context is
// available.
func NewManager(gw *mutation.Gateway, sc *scope.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{gw: gw, scope: sc, logger: logger, parsed: make(map[string][]string)}
}

// SuggestedLabels returns the team's suggestion list, parsed once per
// distinct source string. It is empty when team is nil or has none.
func (m *Manager) SuggestedLabels(team *models.Team) []string {
	if team == nil || team.SuggestedTags == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if labels, ok := m.parsed[team.SuggestedTags]; ok {
		return labels
	}
	labels := ParseSuggestions(team.SuggestedTags)
	m.parsed[team.SuggestedTags] = labels
	return labels
}

// AvailableSuggestions returns the team suggestions not already on e.
func (m *Manager) AvailableSuggestions(e *models.Entity, team *models.Team) []string {
	current := make(map[string]struct{})
	for _, l := range CurrentLabels(e) {
		current[l] = struct{}{}
	}
	var out []string
	for _, s := range m.SuggestedLabels(team) {
		if _, ok := current[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Add dispatches a tag-create for the trimmed label. An empty label is
// rejected locally and reports false. Duplicates are left to the server.
func (m *Manager) Add(ctx context.Context, e *models.Entity, rawLabel string) (<-chan mutation.Result, bool) {
	label := strings.TrimSpace(rawLabel)
	if label == "" || e == nil {
		return nil, false
	}
	payload := map[string]string{mutation.KeyLabel: label}
	if m.scope != nil {
		snap := m.scope.Read()
		if snap.CurrentUser != nil {
			payload[mutation.KeyAnnotatorID] = snap.CurrentUser.ID
		}
		if snap.Team != nil {
			payload[mutation.KeyTeam] = snap.Team.Slug
		}
	}
	return m.gw.Dispatch(ctx, mutation.Request{
		Operation: mutation.OpCreateTag,
		EntityID:  e.ID,
		Payload:   payload,
	}), true
}

// Remove dispatches a tag-delete for tagID.
func (m *Manager) Remove(ctx context.Context, e *models.Entity, tagID string) (<-chan mutation.Result, bool) {
	if tagID == "" || e == nil {
		return nil, false
	}
	return m.gw.Dispatch(ctx, mutation.Request{
		Operation: mutation.OpDeleteTag,
		EntityID:  e.ID,
		Payload:   map[string]string{mutation.KeyTagID: tagID},
	}), true
}
