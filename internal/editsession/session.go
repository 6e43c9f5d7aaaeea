// Package editsession coordinates one entity's edit cycle: entering edit
// mode, editing the metadata field map locally, and committing entity fields
// plus metadata as a single save with one lock and one error slot.
package editsession

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/metadata"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
	"github.com/starford/folio/internal/scope"
	"github.com/starford/folio/internal/tags"
)

// State is the edit-cycle state. A failed save returns to Editing with
// LastError set.
type State int

const (
	Viewing State = iota
	Editing
	Saving
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Saving:
		return "saving"
	}
	return "unknown"
}

// EntityFields are the core fields submitted alongside metadata.
type EntityFields struct {
	Name        string
	Description string
	// Image is a reference to an already uploaded image; empty leaves it unchanged.
	Image string
}

// Deps are the collaborators of a Session.
type Deps struct {
	Gateway    *mutation.Gateway
	Repository *metadata.Repository
	Tags       *tags.Manager
	Scope      *scope.Store
	Logger     *slog.Logger
}

// View is a read-only snapshot of a Session.
type View struct {
	State     State
	Locked    bool
	LastError string
	// Metadata is the pending map while editing or saving and the confirmed
	// map otherwise (nil when the entity has none).
	Metadata metadata.FieldMap
	Tags     []models.Tag
	Entity   *models.Entity
}

// Session is safe for concurrent use; every transition happens under one
// mutex, so user actions and mutation completions never interleave.
type Session struct {
	gw     *mutation.Gateway
	repo   *metadata.Repository
	tags   *tags.Manager
	scope  *scope.Store
	logger *slog.Logger

	mu        sync.Mutex
	entity    *models.Entity
	state     State
	locked    bool
	pending   metadata.FieldMap
	lastError string
	shownTags []models.Tag
}

// New creates a Session in the Viewing state for entity and publishes the
// entity's team and project into the scope store.
func New(entity *models.Entity, deps Deps) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Repository == nil {
		deps.Repository = metadata.NewRepository(deps.Logger)
	}
	if deps.Scope == nil {
		deps.Scope = scope.New()
	}
	if deps.Tags == nil {
		deps.Tags = tags.NewManager(deps.Gateway, deps.Scope, deps.Logger)
	}
	s := &Session{
		gw:     deps.Gateway,
		repo:   deps.Repository,
		tags:   deps.Tags,
		scope:  deps.Scope,
		logger: deps.Logger,
		entity: entity.Clone(),
	}
	s.shownTags = append([]models.Tag(nil), s.entity.Tags...)
	s.syncScope()
	return s
}

// Refresh replaces the confirmed server state, e.g. after an external
// refetch. Pending edits are untouched.
func (s *Session) Refresh(entity *models.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entity = entity.Clone()
	s.shownTags = append([]models.Tag(nil), s.entity.Tags...)
	s.syncScope()
}

func (s *Session) syncScope() {
	if s.entity.TeamSlug != "" {
		s.scope.SyncTeam(&models.Team{Slug: s.entity.TeamSlug})
	}
	if s.entity.ProjectID != 0 {
		s.scope.SyncProject(&models.Project{ID: s.entity.ProjectID, TeamSlug: s.entity.TeamSlug})
	}
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		State:     s.state,
		Locked:    s.locked,
		LastError: s.lastError,
		Tags:      append([]models.Tag(nil), s.shownTags...),
		Entity:    s.entity.Clone(),
	}
	if s.state == Viewing {
		v.Metadata = s.repo.Load(s.entity)
	} else {
		v.Metadata = s.pending.Clone()
	}
	return v
}

// AvailableSuggestions returns the scope team's suggested tags that are not
// on the entity.
func (s *Session) AvailableSuggestions() []string {
	s.mu.Lock()
	e := &models.Entity{Tags: append([]models.Tag(nil), s.shownTags...)}
	s.mu.Unlock()
	return s.tags.AvailableSuggestions(e, s.scope.Read().Team)
}

// Enter switches from Viewing to Editing, starting from the confirmed field
// map (or a blank one when there is none or it is unreadable).
func (s *Session) Enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Viewing {
		return false
	}
	s.pending = s.repo.Load(s.entity).Clone()
	s.state = Editing
	return true
}

// Cancel leaves edit mode without saving. It is ignored while a save is in
// flight, since saves cannot be aborted.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return false
	}
	s.state = Viewing
	s.pending = nil
	s.lastError = ""
	return true
}

// AddField makes key present in the pending map.
func (s *Session) AddField(key string) bool {
	return s.edit(func(m metadata.FieldMap) { m.Add(key) })
}

// SetField assigns a pending value.
func (s *Session) SetField(key, value string) bool {
	return s.edit(func(m metadata.FieldMap) { m.Set(key, value) })
}

// RemoveField deletes key from the pending map.
func (s *Session) RemoveField(key string) bool {
	return s.edit(func(m metadata.FieldMap) { m.Remove(key) })
}

func (s *Session) edit(fn func(metadata.FieldMap)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return false
	}
	fn(s.pending)
	return true
}

// Submit dispatches the entity-field update and the metadata write as two
// independent mutations and returns a channel closed once both resolved.
// It reports false, doing nothing, unless the session is Editing and
// unlocked.
func (s *Session) Submit(ctx context.Context, fields EntityFields) (<-chan struct{}, bool) {
	s.mu.Lock()
	if s.state != Editing || s.locked {
		s.mu.Unlock()
		return nil, false
	}
	target := s.entity.AnnotationTarget()
	// Another session on the same gateway may be saving this entity.
	entityCh, ok := s.gw.TryDispatch(ctx, s.entityRequest(target, fields))
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	s.locked = true
	s.state = Saving
	s.lastError = ""
	metaReq := s.metadataRequest(target)
	s.mu.Unlock()

	metaCh := s.gw.Dispatch(ctx, metaReq)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var entityRes, metaRes mutation.Result
		var g errgroup.Group
		g.Go(func() error {
			entityRes = <-entityCh
			return entityRes.Err()
		})
		g.Go(func() error {
			metaRes = <-metaCh
			return metaRes.Err()
		})
		err := g.Wait()
		s.finishSave(entityRes, metaRes, err)
	}()
	return done, true
}

func (s *Session) entityRequest(target *models.Entity, fields EntityFields) mutation.Request {
	payload := map[string]string{
		mutation.KeyName:        fields.Name,
		mutation.KeyDescription: fields.Description,
	}
	if fields.Image != "" {
		payload[mutation.KeyImage] = fields.Image
	}
	return mutation.Request{Operation: mutation.OpUpdateEntity, EntityID: target.ID, Payload: payload}
}

func (s *Session) metadataRequest(target *models.Entity) mutation.Request {
	value := metadata.EncodeValue(s.pending)
	if existing := s.repo.Find(target.Annotations); existing != nil && existing.ID != "" {
		return mutation.Request{
			Operation: mutation.OpUpdateAnnotation,
			EntityID:  target.ID,
			Payload: map[string]string{
				mutation.KeyAnnotationID:  existing.ID,
				mutation.KeyMetadataValue: value,
			},
		}
	}
	payload := s.annotatorPayload()
	payload[mutation.KeyAnnotationType] = models.AnnotationTypeMetadata
	payload[mutation.KeyMetadataValue] = value
	return mutation.Request{Operation: mutation.OpCreateAnnotation, EntityID: target.ID, Payload: payload}
}

func (s *Session) annotatorPayload() map[string]string {
	payload := make(map[string]string)
	snap := s.scope.Read()
	if snap.CurrentUser != nil {
		payload[mutation.KeyAnnotatorID] = snap.CurrentUser.ID
	}
	if snap.Team != nil {
		payload[mutation.KeyTeam] = snap.Team.Slug
	}
	return payload
}

func (s *Session) finishSave(entityRes, metaRes mutation.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false

	if err != nil {
		s.state = Editing
		s.lastError = err.Error()
		s.logger.Info("editsession: save failed",
			slog.String("entity_id", s.entity.ID),
			slog.String("error", s.lastError))
		return
	}

	target := s.entity.AnnotationTarget()
	if refreshed, decErr := entityRes.Entity(); decErr == nil {
		target.Name = refreshed.Name
		target.Description = refreshed.Description
		target.Image = refreshed.Image
	} else {
		s.logger.Warn("editsession: entity state unreadable", slog.String("error", decErr.Error()))
	}
	if refreshed, decErr := metaRes.Entity(); decErr == nil {
		target.Annotations = refreshed.Annotations
	} else {
		s.logger.Warn("editsession: metadata state unreadable, keeping saved value locally",
			slog.String("entity_id", target.ID),
			slog.String("error", decErr.Error()))
		s.keepPending(target, metaRes.Request)
	}

	s.state = Viewing
	s.pending = nil
	s.lastError = ""
}

// keepPending records the saved map on target when the server did not
// return its state. An annotation created that way has no id until the next
// refresh.
func (s *Session) keepPending(target *models.Entity, req mutation.Request) {
	content := metadata.WrapContent(metadata.FieldMetadataValue, metadata.EncodeValue(s.pending))
	if existing := s.repo.Find(target.Annotations); existing != nil {
		existing.Content = content
		return
	}
	target.Annotations = append(target.Annotations, models.Annotation{
		Type:        models.AnnotationTypeMetadata,
		Content:     content,
		AnnotatorID: req.Payload[mutation.KeyAnnotatorID],
	})
}

// AddTag dispatches a tag-create. A blank label is ignored. On success the
// message slot is cleared; on failure it holds the server message.
func (s *Session) AddTag(ctx context.Context, rawLabel string) (<-chan struct{}, bool) {
	s.mu.Lock()
	e := s.entity.Clone()
	s.mu.Unlock()

	ch, ok := s.tags.Add(ctx, e, rawLabel)
	if !ok {
		return nil, false
	}
	return s.await(ch, func(res mutation.Result) {
		if !res.OK() {
			s.lastError = res.Failure.Message
			return
		}
		s.lastError = ""
		s.applyTags(res)
	}), true
}

// RemoveTag removes the tag from the displayed list immediately and
// dispatches the delete. A failed delete sets LastError but does not bring
// the row back.
func (s *Session) RemoveTag(ctx context.Context, tagID string) (<-chan struct{}, bool) {
	s.mu.Lock()
	e := s.entity.Clone()
	kept := s.shownTags[:0:0]
	for _, t := range s.shownTags {
		if t.ID != tagID {
			kept = append(kept, t)
		}
	}
	s.shownTags = kept
	s.mu.Unlock()

	ch, ok := s.tags.Remove(ctx, e, tagID)
	if !ok {
		return nil, false
	}
	return s.await(ch, func(res mutation.Result) {
		if !res.OK() {
			s.lastError = res.Failure.Message
			return
		}
		s.applyTags(res)
	}), true
}

func (s *Session) applyTags(res mutation.Result) {
	refreshed, err := res.Entity()
	if err != nil {
		s.logger.Warn("editsession: tag state unreadable", slog.String("error", err.Error()))
		return
	}
	s.entity.Tags = refreshed.Tags
	s.shownTags = append([]models.Tag(nil), refreshed.Tags...)
}

// AddComment dispatches a comment annotation on the annotation target.
// Blank text is ignored.
func (s *Session) AddComment(ctx context.Context, text string) (<-chan struct{}, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	s.mu.Lock()
	target := s.entity.AnnotationTarget()
	payload := s.annotatorPayload()
	s.mu.Unlock()

	payload[mutation.KeyAnnotationType] = models.AnnotationTypeComment
	payload[mutation.KeyParentType] = target.Kind.ParentType()
	payload[mutation.KeyText] = text
	ch := s.gw.Dispatch(ctx, mutation.Request{
		Operation: mutation.OpCreateAnnotation,
		EntityID:  target.ID,
		Payload:   payload,
	})
	return s.await(ch, func(res mutation.Result) {
		if !res.OK() {
			s.lastError = res.Failure.Message
			return
		}
		s.lastError = ""
		refreshed, err := res.Entity()
		if err != nil {
			s.logger.Warn("editsession: comment state unreadable", slog.String("error", err.Error()))
			return
		}
		s.entity.AnnotationTarget().Annotations = refreshed.Annotations
	}), true
}

// await applies fn under the session lock once ch resolves.
func (s *Session) await(ch <-chan mutation.Result, fn func(mutation.Result)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		res := <-ch
		s.mu.Lock()
		defer s.mu.Unlock()
		fn(res)
	}()
	return done
}
