package models

import "testing"

func TestKindParentType(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindSource, "source"},
		{KindProjectSource, "project_source"},
		{KindMedia, "media"},
	}
	for _, tt := range tests {
		if got := tt.kind.ParentType(); got != tt.want {
			t.Errorf("%s.ParentType() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestAnnotationTarget(t *testing.T) {
	src := &Entity{ID: "s1", Kind: KindSource}
	ps := &Entity{ID: "p1", Kind: KindProjectSource, Source: src}
	if got := ps.AnnotationTarget(); got != src {
		t.Errorf("project source target = %+v", got)
	}
	if got := src.AnnotationTarget(); got != src {
		t.Errorf("source target = %+v", got)
	}
}
