// Package mutation is the asynchronous boundary through which local edits
// become remote writes. Every dispatched request resolves exactly once, to
// either a success carrying the refreshed server state or a failure carrying
// a user-facing message.
package mutation

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Operation names a mutation endpoint.
type Operation string

const (
	OpCreateAnnotation Operation = "createAnnotation"
	OpUpdateAnnotation Operation = "updateAnnotation"
	OpCreateTag        Operation = "createTag"
	OpDeleteTag        Operation = "deleteTag"
	OpUpdateEntity     Operation = "updateEntity"
)

// Operations lists every known operation.
var Operations = []Operation{
	OpCreateAnnotation,
	OpUpdateAnnotation,
	OpCreateTag,
	OpDeleteTag,
	OpUpdateEntity,
}

// Payload keys.
const (
	KeyAnnotationType = "annotation_type"
	KeyAnnotationID   = "annotation_id"
	KeyMetadataValue  = "metadata_value"
	KeyText           = "text"
	KeyParentType     = "parent_type"
	KeyAnnotatorID    = "annotator_id"
	KeyTeam           = "team"
	KeyLabel          = "label"
	KeyTagID          = "tag_id"
	KeyName           = "name"
	KeyDescription    = "description"
	KeyImage          = "image"
)

// Valid reports whether o is a known operation.
func (o Operation) Valid() bool {
	for _, known := range Operations {
		if o == known {
			return true
		}
	}
	return false
}

// Key addresses one operation against one entity. Callers use it to keep a
// second identical dispatch from starting while the first is in flight.
type Key struct {
	Operation Operation
	EntityID  string
}

// Request is the input of a single mutation call.
type Request struct {
	Operation Operation         `json:"operation"`
	EntityID  string            `json:"entityId"`
	Payload   map[string]string `json:"payload"`
}

// Key returns the in-flight address of r.
func (r Request) Key() Key {
	return Key{Operation: r.Operation, EntityID: r.EntityID}
}

// Validate checks that r names a known operation and an entity.
func (r Request) Validate() error {
	ops := make([]interface{}, len(Operations))
	for i, o := range Operations {
		ops[i] = o
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Operation, validation.Required, validation.In(ops...)),
		validation.Field(&r.EntityID, validation.Required),
	)
}
