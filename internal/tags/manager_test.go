package tags

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
	"github.com/starford/folio/internal/scope"
)

type recorder struct {
	mu   sync.Mutex
	reqs []mutation.Request
}

func (r *recorder) Send(_ context.Context, req mutation.Request) (mutation.Response, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	return mutation.Response{OK: true}, nil
}

func (r *recorder) requests() []mutation.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mutation.Request(nil), r.reqs...)
}

func entityWithTags(labels ...string) *models.Entity {
	e := &models.Entity{ID: "ps1", Kind: models.KindProjectSource}
	for i, l := range labels {
		e.Tags = append(e.Tags, models.Tag{ID: string(rune('a' + i)), Label: l})
	}
	return e
}

func TestCurrentLabelsOrder(t *testing.T) {
	got := CurrentLabels(entityWithTags("z", "a", "m"))
	if !reflect.DeepEqual(got, []string{"z", "a", "m"}) {
		t.Errorf("labels = %v", got)
	}
	if CurrentLabels(nil) != nil {
		t.Error("nil entity should have no labels")
	}
}

func TestParseSuggestions(t *testing.T) {
	got := ParseSuggestions(" a, b ,,a,c ")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("parsed = %v", got)
	}
	if ParseSuggestions("") != nil {
		t.Error("empty source should parse to nothing")
	}
}

func TestAvailableSuggestionsComplement(t *testing.T) {
	m := NewManager(nil, nil, nil)
	team := &models.Team{Slug: "t", SuggestedTags: "a,b,c"}
	got := m.AvailableSuggestions(entityWithTags("b"), team)
	if !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("available = %v, want [a c]", got)
	}
	if got := m.AvailableSuggestions(entityWithTags("b"), nil); got != nil {
		t.Errorf("no team should yield nothing, got %v", got)
	}
	if got := m.AvailableSuggestions(entityWithTags("b"), &models.Team{Slug: "t"}); got != nil {
		t.Errorf("team without suggestions should yield nothing, got %v", got)
	}
}

func TestSuggestedLabelsParsedOnce(t *testing.T) {
	m := NewManager(nil, nil, nil)
	team := &models.Team{SuggestedTags: "x,y"}
	first := m.SuggestedLabels(team)
	second := m.SuggestedLabels(team)
	if &first[0] != &second[0] {
		t.Error("expected cached slice on second call")
	}
}

func TestAddTrimsAndDispatches(t *testing.T) {
	rec := &recorder{}
	sc := scope.New()
	sc.Write(scope.Snapshot{CurrentUser: &models.User{ID: "u1"}, Team: &models.Team{Slug: "news"}})
	m := NewManager(mutation.NewGateway(rec, nil), sc, nil)

	ch, ok := m.Add(context.Background(), entityWithTags(), "  breaking  ")
	if !ok {
		t.Fatal("expected dispatch")
	}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	reqs := rec.requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	req := reqs[0]
	if req.Operation != mutation.OpCreateTag || req.EntityID != "ps1" {
		t.Errorf("request = %+v", req)
	}
	if req.Payload[mutation.KeyLabel] != "breaking" {
		t.Errorf("label = %q", req.Payload[mutation.KeyLabel])
	}
	if req.Payload[mutation.KeyAnnotatorID] != "u1" || req.Payload[mutation.KeyTeam] != "news" {
		t.Errorf("context not threaded: %v", req.Payload)
	}
}

func TestAddEmptyIsNoop(t *testing.T) {
	rec := &recorder{}
	m := NewManager(mutation.NewGateway(rec, nil), nil, nil)
	if _, ok := m.Add(context.Background(), entityWithTags(), "   "); ok {
		t.Error("blank label should not dispatch")
	}
	if len(rec.requests()) != 0 {
		t.Error("transport should not be called")
	}
}

func TestAddDuplicateStillDispatches(t *testing.T) {
	rec := &recorder{}
	g := mutation.NewGateway(rec, nil)
	m := NewManager(g, nil, nil)
	if _, ok := m.Add(context.Background(), entityWithTags("dup"), "dup"); !ok {
		t.Fatal("duplicate handling is the server's job")
	}
	g.Wait()
	if len(rec.requests()) != 1 {
		t.Error("expected one dispatch")
	}
}

func TestRemoveDispatchesDelete(t *testing.T) {
	rec := &recorder{}
	g := mutation.NewGateway(rec, nil)
	m := NewManager(g, nil, nil)
	if _, ok := m.Remove(context.Background(), entityWithTags("x"), "a"); !ok {
		t.Fatal("expected dispatch")
	}
	if _, ok := m.Remove(context.Background(), entityWithTags("x"), ""); ok {
		t.Error("empty tag id should not dispatch")
	}
	g.Wait()
	reqs := rec.requests()
	if len(reqs) != 1 || reqs[0].Operation != mutation.OpDeleteTag || reqs[0].Payload[mutation.KeyTagID] != "a" {
		t.Errorf("requests = %+v", reqs)
	}
}
