package scope

import (
	"sync"
	"testing"

	"github.com/starford/folio/internal/models"
)

func TestWriteNilDoesNotDowngrade(t *testing.T) {
	s := New()
	team := &models.Team{Slug: "newsroom", Name: "Newsroom"}
	s.Write(Snapshot{Team: team})
	s.Write(Snapshot{Team: nil})
	if got := s.Read().Team; got != team {
		t.Fatalf("team = %+v, want %+v", got, team)
	}
}

func TestWriteEmptyDoesNotDowngrade(t *testing.T) {
	s := New()
	s.Write(Snapshot{CurrentUser: &models.User{ID: "u1"}})
	s.Write(Snapshot{CurrentUser: &models.User{}})
	if got := s.Read().CurrentUser; got == nil || got.ID != "u1" {
		t.Fatalf("user = %+v, want u1", got)
	}
}

func TestWriteMergesKeys(t *testing.T) {
	s := New()
	s.Write(Snapshot{Team: &models.Team{Slug: "a"}})
	s.Write(Snapshot{Project: &models.Project{ID: 7}})
	snap := s.Read()
	if snap.Team == nil || snap.Team.Slug != "a" {
		t.Errorf("team lost after project write: %+v", snap.Team)
	}
	if snap.Project == nil || snap.Project.ID != 7 {
		t.Errorf("project = %+v", snap.Project)
	}
}

func TestLastWriterWins(t *testing.T) {
	s := New()
	s.Write(Snapshot{Team: &models.Team{Slug: "a"}})
	s.Write(Snapshot{Team: &models.Team{Slug: "b"}})
	if got := s.Read().Team.Slug; got != "b" {
		t.Errorf("slug = %q, want b", got)
	}
}

func TestChildReadsAncestor(t *testing.T) {
	root := New()
	root.Write(Snapshot{Team: &models.Team{Slug: "root"}, CurrentUser: &models.User{ID: "u1"}})
	child := root.Child()
	child.Write(Snapshot{Team: &models.Team{Slug: "child"}})

	snap := child.Read()
	if snap.Team.Slug != "child" {
		t.Errorf("child team = %q", snap.Team.Slug)
	}
	if snap.CurrentUser == nil || snap.CurrentUser.ID != "u1" {
		t.Errorf("child should see ancestor user, got %+v", snap.CurrentUser)
	}
	if root.Read().Team.Slug != "root" {
		t.Errorf("child write leaked into root")
	}
}

func TestSyncTeamComparesSlug(t *testing.T) {
	s := New()
	if !s.SyncTeam(&models.Team{Slug: "a", Name: "A"}) {
		t.Fatal("first sync should write")
	}
	if s.SyncTeam(&models.Team{Slug: "a", Name: "A again"}) {
		t.Error("same slug should not write")
	}
	if got := s.Read().Team.Name; got != "A" {
		t.Errorf("name = %q, want A", got)
	}
	if !s.SyncTeam(&models.Team{Slug: "b"}) {
		t.Error("new slug should write")
	}
	if s.SyncTeam(nil) {
		t.Error("nil team should not write")
	}
}

func TestSyncTeamFillsSlugOnlyTeam(t *testing.T) {
	s := New()
	s.SyncTeam(&models.Team{Slug: "news"})
	if !s.SyncTeam(&models.Team{Slug: "news", Name: "News", SuggestedTags: "a,b"}) {
		t.Fatal("full team should replace the slug-only one")
	}
	if got := s.Read().Team; got.SuggestedTags != "a,b" {
		t.Errorf("team = %+v", got)
	}
	s.Write(Snapshot{Team: &models.Team{Slug: "news"}})
	if got := s.Read().Team; got.SuggestedTags != "a,b" || got.Name != "News" {
		t.Errorf("slug-only write dropped settings: %+v", got)
	}
}

func TestChildSlugOnlyTeamKeepsAncestorSettings(t *testing.T) {
	root := New()
	child := root.Child()
	child.SyncTeam(&models.Team{Slug: "news"})
	root.SyncTeam(&models.Team{Slug: "news", SuggestedTags: "a,b,c"})

	if got := child.Read().Team; got == nil || got.SuggestedTags != "a,b,c" {
		t.Fatalf("child team = %+v", got)
	}
	if child.SyncTeam(&models.Team{Slug: "news", SuggestedTags: "a,b,c"}) {
		t.Error("child already sees the full team")
	}

	child.Write(Snapshot{Team: &models.Team{Slug: "other"}})
	if got := child.Read().Team; got.Slug != "other" || got.SuggestedTags != "" {
		t.Errorf("different slug should hide ancestor team, got %+v", got)
	}
}

func TestSyncProjectComparesID(t *testing.T) {
	s := New()
	if !s.SyncProject(&models.Project{ID: 1}) {
		t.Fatal("first sync should write")
	}
	if s.SyncProject(&models.Project{ID: 1, Title: "other"}) {
		t.Error("same id should not write")
	}
	if s.SyncProject(&models.Project{}) {
		t.Error("zero id should not write")
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Write(Snapshot{Team: &models.Team{Slug: "t"}})
		}()
		go func() {
			defer wg.Done()
			s.Write(Snapshot{CurrentUser: &models.User{ID: "u"}})
		}()
	}
	wg.Wait()
	snap := s.Read()
	if snap.Team == nil || snap.CurrentUser == nil {
		t.Fatalf("concurrent writes lost a key: %+v", snap)
	}
}
