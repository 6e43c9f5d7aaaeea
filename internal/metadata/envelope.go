package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EnvelopeVersion identifies the stored content layout:
//
//	content = [ {"field_name": "<name>", "value": "<payload>"}, ... ]
//
// Only the first record is meaningful; later records are ignored. The version
// is not written to the wire so existing stored content stays byte-compatible.
const EnvelopeVersion = 1

// Field names carried by envelope records.
const (
	FieldMetadataValue = "metadata_value"
	FieldText          = "text"
)

var errEmptyEnvelope = errors.New("metadata: empty envelope")

// Record is one entry of a content envelope.
type Record struct {
	FieldName string `json:"field_name,omitempty"`
	Value     string `json:"value"`
}

// WrapContent builds a single-record envelope.
func WrapContent(fieldName, value string) string {
	data, _ := json.Marshal([]Record{{FieldName: fieldName, Value: value}})
	return string(data)
}

// UnwrapContent parses an envelope and returns its first record.
func UnwrapContent(content string) (Record, error) {
	if content == "" {
		return Record{}, errEmptyEnvelope
	}
	var records []Record
	if err := json.Unmarshal([]byte(content), &records); err != nil {
		return Record{}, fmt.Errorf("metadata: parse envelope v%d: %w", EnvelopeVersion, err)
	}
	if len(records) == 0 {
		return Record{}, errEmptyEnvelope
	}
	return records[0], nil
}
