package metadata

import (
	"reflect"
	"testing"

	"github.com/starford/folio/internal/models"
)

func TestRoundTrip(t *testing.T) {
	r := NewRepository(nil)
	cases := []FieldMap{
		{},
		{KeyPhone: "555-1000"},
		{KeyContactNote: "prefers email", KeyLocation: "Lisbon", KeyOrganization: "ACME"},
		{"twitter": "@someone", KeyPhone: ""},
		{"quote": `she said "hi" & <left>`, "unicode": "Кирилица ✓"},
	}
	for _, m := range cases {
		a := &models.Annotation{ID: "a1", Type: models.AnnotationTypeMetadata, Content: r.Encode(m)}
		got := r.Decode(a)
		if got == nil {
			t.Fatalf("decode(encode(%v)) = nil", m)
		}
		if !got.Equal(m) {
			t.Errorf("round trip = %v, want %v", got, m)
		}
	}
}

func TestEncodeWireShape(t *testing.T) {
	r := NewRepository(nil)
	got := r.Encode(FieldMap{KeyPhone: "1"})
	want := `[{"field_name":"metadata_value","value":"{\"phone\":\"1\"}"}]`
	if got != want {
		t.Errorf("content = %s, want %s", got, want)
	}
}

func TestDecodeMalformed(t *testing.T) {
	r := NewRepository(nil)
	cases := map[string]string{
		"garbage":          "not json at all",
		"empty":            "",
		"empty list":       "[]",
		"object not list":  `{"value":"{}"}`,
		"inner garbage":    `[{"value":"{oops"}]`,
		"inner non-string": `[{"value":"{\"phone\":5}"}]`,
		"inner null":       `[{"value":"null"}]`,
		"empty value":      `[{"value":""}]`,
		"value not string": `[{"value":{"phone":"1"}}]`,
	}
	for name, content := range cases {
		a := &models.Annotation{ID: "x", Type: models.AnnotationTypeMetadata, Content: content}
		if got := r.Decode(a); got != nil {
			t.Errorf("%s: decode = %v, want nil", name, got)
		}
	}
	if got := r.Decode(nil); got != nil {
		t.Errorf("decode(nil) = %v", got)
	}
}

func TestDecodeIgnoresExtraRecords(t *testing.T) {
	r := NewRepository(nil)
	a := &models.Annotation{Content: `[{"value":"{\"phone\":\"1\"}"},{"value":"{\"phone\":\"2\"}"}]`}
	got := r.Decode(a)
	if got[KeyPhone] != "1" {
		t.Errorf("phone = %q, want 1", got[KeyPhone])
	}
}

func TestFindFirstMetadataWins(t *testing.T) {
	r := NewRepository(nil)
	coll := []models.Annotation{
		{ID: "c1", Type: models.AnnotationTypeComment},
		{ID: "m1", Type: models.AnnotationTypeMetadata},
		{ID: "m2", Type: models.AnnotationTypeMetadata},
	}
	got := r.Find(coll)
	if got == nil || got.ID != "m1" {
		t.Fatalf("find = %+v, want m1", got)
	}
	if r.Find(coll[:1]) != nil {
		t.Error("find without metadata should be nil")
	}
	if r.Find(nil) != nil {
		t.Error("find on empty collection should be nil")
	}
}

func TestLoadUsesAnnotationTarget(t *testing.T) {
	r := NewRepository(nil)
	src := &models.Entity{ID: "s1", Kind: models.KindSource, Annotations: []models.Annotation{
		{ID: "m1", Type: models.AnnotationTypeMetadata, Content: r.Encode(FieldMap{KeyLocation: "Porto"})},
	}}
	ps := &models.Entity{ID: "ps1", Kind: models.KindProjectSource, Source: src}
	got := r.Load(ps)
	if got[KeyLocation] != "Porto" {
		t.Errorf("load = %v", got)
	}
}

func TestFieldMapKeysOrder(t *testing.T) {
	m := FieldMap{"zeta": "", KeyLocation: "", "alpha": "", KeyContactNote: ""}
	want := []string{KeyContactNote, KeyLocation, "alpha", "zeta"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if got := m.Missing(); !reflect.DeepEqual(got, []string{KeyPhone, KeyOrganization}) {
		t.Errorf("missing = %v", got)
	}
}

func TestFieldMapAddKeepsValue(t *testing.T) {
	m := FieldMap{KeyPhone: "1"}
	m.Add(KeyPhone)
	if m[KeyPhone] != "1" {
		t.Errorf("add overwrote value: %q", m[KeyPhone])
	}
	m.Add(KeyLocation)
	if v, ok := m[KeyLocation]; !ok || v != "" {
		t.Errorf("added key = %q, %v", v, ok)
	}
	m.Remove(KeyPhone)
	if m.Has(KeyPhone) {
		t.Error("remove should delete the key")
	}
}

func TestLabel(t *testing.T) {
	if Label(KeyContactNote) != "Contact note" {
		t.Errorf("label = %q", Label(KeyContactNote))
	}
	if Label("custom") != "custom" {
		t.Errorf("unknown label = %q", Label("custom"))
	}
}

func TestEncodeValueNil(t *testing.T) {
	if got := EncodeValue(nil); got != "{}" {
		t.Errorf("encode nil = %q", got)
	}
	m, err := DecodeValue("{}")
	if err != nil || m == nil || len(m) != 0 {
		t.Errorf("decode {} = %v, %v", m, err)
	}
}
