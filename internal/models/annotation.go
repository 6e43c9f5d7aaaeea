package models

import "time"

// Annotation types.
const (
	AnnotationTypeMetadata = "metadata"
	AnnotationTypeComment  = "comment"
)

// Annotation is a single typed record attached to an entity. Content is an
// opaque payload whose layout depends on Type.
type Annotation struct {
	ID          string    `json:"id"`
	Type        string    `json:"annotation_type"`
	Content     string    `json:"content"`
	AnnotatorID string    `json:"annotator_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tag is a label attached to an entity.
type Tag struct {
	ID        string    `json:"id"`
	Label     string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}
