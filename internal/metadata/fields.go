package metadata

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Recognized metadata keys, in display order.
const (
	KeyContactNote  = "contact_note"
	KeyPhone        = "phone"
	KeyOrganization = "organization"
	KeyLocation     = "location"
)

// RecognizedKeys lists the keys the edit view offers, in display order.
var RecognizedKeys = []string{KeyContactNote, KeyPhone, KeyOrganization, KeyLocation}

var labels = map[string]string{
	KeyContactNote:  "Contact note",
	KeyPhone:        "Phone",
	KeyOrganization: "Organization",
	KeyLocation:     "Location",
}

// IsRecognized reports whether key has first-class handling.
func IsRecognized(key string) bool {
	_, ok := labels[key]
	return ok
}

// Label returns the display label for key. Unrecognized keys are returned as-is.
func Label(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return key
}

// FieldMap is the dynamic key to text mapping edited by the user. Keys are
// present only when added explicitly; any key found in stored data is kept
// and round-trips even if it is not recognized.
type FieldMap map[string]string

// Clone returns a copy of m. Cloning nil yields an empty map.
func (m FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Add makes key present. An existing value is kept.
func (m FieldMap) Add(key string) {
	if _, ok := m[key]; !ok {
		m[key] = ""
	}
}

// Set assigns value to key, adding it if needed.
func (m FieldMap) Set(key, value string) {
	m[key] = value
}

// Remove deletes key entirely.
func (m FieldMap) Remove(key string) {
	delete(m, key)
}

// Has reports whether key is present.
func (m FieldMap) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Keys returns recognized keys in display order followed by any other keys
// sorted lexically.
func (m FieldMap) Keys() []string {
	out := make([]string, 0, len(m))
	for _, k := range RecognizedKeys {
		if m.Has(k) {
			out = append(out, k)
		}
	}
	var extra []string
	for k := range m {
		if !IsRecognized(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Missing returns the recognized keys not yet present, in display order.
func (m FieldMap) Missing() []string {
	var out []string
	for _, k := range RecognizedKeys {
		if !m.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Equal reports whether m and o hold the same entries.
func (m FieldMap) Equal(o FieldMap) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// EncodeValue encodes m as the inner JSON object carried in a mutation
// payload. A nil map encodes as "{}".
func EncodeValue(m FieldMap) string {
	if m == nil {
		m = FieldMap{}
	}
	data, _ := json.Marshal(map[string]string(m))
	return string(data)
}

// DecodeValue parses an inner field map. Values must be strings.
func DecodeValue(s string) (FieldMap, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("metadata: parse field map: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("metadata: field map is null")
	}
	return FieldMap(m), nil
}
