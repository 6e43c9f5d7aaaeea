// Package models defines the domain types for Folio.
package models

import (
	"regexp"
	"strings"
	"time"
)

// Kind is the closed set of annotatable entity kinds.
type Kind string

const (
	KindSource        Kind = "Source"
	KindProjectSource Kind = "ProjectSource"
	KindMedia         Kind = "Media"
)

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSource, KindProjectSource, KindMedia:
		return true
	}
	return false
}

// ParentType returns the snake_case form used to address the parent of a
// mutation (e.g. "project_source").
func (k Kind) ParentType() string {
	return strings.ToLower(camelBoundary.ReplaceAllString(string(k), "${1}_${2}"))
}

// Entity is any object that owns annotations and tags.
//
// A ProjectSource binds a Source to a project: its Source field holds the
// wrapped source, which is where metadata and comments live. Tags attach to
// the ProjectSource itself.
type Entity struct {
	ID          string       `json:"id"`
	NumericID   int64        `json:"dbid"`
	Kind        Kind         `json:"kind"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Image       string       `json:"image,omitempty"`
	TeamSlug    string       `json:"team_slug,omitempty"`
	ProjectID   int64        `json:"project_id,omitempty"`
	Source      *Entity      `json:"source,omitempty"`
	Annotations []Annotation `json:"annotations"`
	Tags        []Tag        `json:"tags"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// AnnotationTarget returns the entity whose annotation collection holds
// metadata and comments.
func (e *Entity) AnnotationTarget() *Entity {
	if e.Kind == KindProjectSource && e.Source != nil {
		return e.Source
	}
	return e
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Annotations = append([]Annotation(nil), e.Annotations...)
	c.Tags = append([]Tag(nil), e.Tags...)
	c.Source = e.Source.Clone()
	return &c
}
