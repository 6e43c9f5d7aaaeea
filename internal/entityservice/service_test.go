package entityservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/metadata"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
	"github.com/starford/folio/internal/testutil"
)

func newService(t *testing.T) (*Service, *models.Entity) {
	t.Helper()
	db := testutil.TestDB(t)
	src := testutil.SeedSource(t, db, "City Hall", "acme")
	return NewService(db, nil), src
}

func apply(t *testing.T, svc *Service, op mutation.Operation, id string, p map[string]string) *models.Entity {
	t.Helper()
	e, err := svc.Apply(context.Background(), mutation.Request{Operation: op, EntityID: id, Payload: p})
	if err != nil {
		t.Fatalf("Apply %s: %v", op, err)
	}
	return e
}

func TestCreateAndUpdateMetadata(t *testing.T) {
	svc, src := newService(t)
	e := apply(t, svc, mutation.OpCreateAnnotation, src.ID, map[string]string{
		mutation.KeyAnnotationType: models.AnnotationTypeMetadata,
		mutation.KeyMetadataValue:  `{"phone":"555"}`,
		mutation.KeyAnnotatorID:    "u1",
	})
	if len(e.Annotations) != 1 {
		t.Fatalf("annotations = %+v", e.Annotations)
	}
	a := e.Annotations[0]
	if a.Content != `[{"field_name":"metadata_value","value":"{\"phone\":\"555\"}"}]` {
		t.Errorf("content = %s", a.Content)
	}
	if a.AnnotatorID != "u1" {
		t.Errorf("annotator = %q", a.AnnotatorID)
	}

	e = apply(t, svc, mutation.OpUpdateAnnotation, src.ID, map[string]string{
		mutation.KeyAnnotationID:  a.ID,
		mutation.KeyMetadataValue: `{"phone":"556","location":"Oslo"}`,
	})
	got := metadata.NewRepository(nil).Load(e)
	want := metadata.FieldMap{"phone": "556", "location": "Oslo"}
	if !got.Equal(want) {
		t.Errorf("metadata = %v, want %v", got, want)
	}
}

func TestCreateComment(t *testing.T) {
	svc, src := newService(t)
	e := apply(t, svc, mutation.OpCreateAnnotation, src.ID, map[string]string{
		mutation.KeyAnnotationType: models.AnnotationTypeComment,
		mutation.KeyText:           "  checked  ",
	})
	rec, err := metadata.UnwrapContent(e.Annotations[0].Content)
	if err != nil {
		t.Fatal(err)
	}
	if rec.FieldName != metadata.FieldText || rec.Value != "checked" {
		t.Errorf("record = %+v", rec)
	}
}

func TestCommentParentType(t *testing.T) {
	svc, src := newService(t)
	e := apply(t, svc, mutation.OpCreateAnnotation, src.ID, map[string]string{
		mutation.KeyAnnotationType: models.AnnotationTypeComment,
		mutation.KeyParentType:     "source",
		mutation.KeyText:           "ok",
	})
	if len(e.Annotations) != 1 {
		t.Fatalf("annotations = %+v", e.Annotations)
	}

	_, err := svc.Apply(context.Background(), mutation.Request{
		Operation: mutation.OpCreateAnnotation, EntityID: src.ID,
		Payload: map[string]string{
			mutation.KeyAnnotationType: models.AnnotationTypeComment,
			mutation.KeyParentType:     "project_source",
			mutation.KeyText:           "wrong parent",
		},
	})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("mismatched parent_type: expected ErrInvalidInput, got %v", err)
	}
}

func TestInvalidAnnotations(t *testing.T) {
	svc, src := newService(t)
	cases := map[string]map[string]string{
		"unknown type":   {mutation.KeyAnnotationType: "rating"},
		"bad metadata":   {mutation.KeyAnnotationType: models.AnnotationTypeMetadata, mutation.KeyMetadataValue: "[1]"},
		"blank comment":  {mutation.KeyAnnotationType: models.AnnotationTypeComment, mutation.KeyText: " "},
		"missing type":   {},
		"non-string map": {mutation.KeyAnnotationType: models.AnnotationTypeMetadata, mutation.KeyMetadataValue: `{"phone":1}`},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Apply(context.Background(), mutation.Request{
				Operation: mutation.OpCreateAnnotation, EntityID: src.ID, Payload: p,
			})
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestTagLifecycle(t *testing.T) {
	svc, src := newService(t)
	e := apply(t, svc, mutation.OpCreateTag, src.ID, map[string]string{mutation.KeyLabel: " local "})
	if len(e.Tags) != 1 || e.Tags[0].Label != "local" {
		t.Fatalf("tags = %+v", e.Tags)
	}

	_, err := svc.Apply(context.Background(), mutation.Request{
		Operation: mutation.OpCreateTag, EntityID: src.ID,
		Payload: map[string]string{mutation.KeyLabel: "local"},
	})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate: expected ErrAlreadyExists, got %v", err)
	}

	e = apply(t, svc, mutation.OpDeleteTag, src.ID, map[string]string{mutation.KeyTagID: e.Tags[0].ID})
	if len(e.Tags) != 0 {
		t.Errorf("tags after delete = %+v", e.Tags)
	}
}

func TestUpdateEntityFields(t *testing.T) {
	svc, src := newService(t)
	e := apply(t, svc, mutation.OpUpdateEntity, src.ID, map[string]string{
		mutation.KeyName:        "Town Hall",
		mutation.KeyDescription: "renamed",
		mutation.KeyImage:       "img/1.png",
	})
	if e.Name != "Town Hall" || e.Description != "renamed" || e.Image != "img/1.png" {
		t.Errorf("entity = %+v", e)
	}
}

func TestApplyUnknownEntity(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Apply(context.Background(), mutation.Request{
		Operation: mutation.OpUpdateEntity, EntityID: "missing",
		Payload: map[string]string{mutation.KeyName: "x"},
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyInvalidRequest(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Apply(context.Background(), mutation.Request{Operation: "dropTable", EntityID: "x"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateEntityValidation(t *testing.T) {
	svc, src := newService(t)
	ps, err := svc.CreateEntity(context.Background(), CreateEntityInput{
		Kind: string(models.KindProjectSource), SourceID: src.ID, ProjectID: 3,
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if ps.Source == nil || ps.Source.ID != src.ID {
		t.Errorf("source = %+v", ps.Source)
	}

	_, err = svc.CreateEntity(context.Background(), CreateEntityInput{Kind: string(models.KindProjectSource)})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("missing source: expected ErrInvalidInput, got %v", err)
	}
	_, err = svc.CreateEntity(context.Background(), CreateEntityInput{Kind: "Folder"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad kind: expected ErrInvalidInput, got %v", err)
	}
}
