package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/folio/internal/metadata"
)

const contractURI = "folio://metadata-format"

// MetadataContract describes the metadata fields LLM consumers should write.
func MetadataContract() string {
	var keys strings.Builder
	for _, k := range metadata.RecognizedKeys {
		fmt.Fprintf(&keys, "- `%s`: %s\n", k, metadata.Label(k))
	}
	return `# Folio Metadata Contract

Metadata is a flat object of text fields attached to an entity.

## Recognized keys

` + keys.String() + `
Other keys are accepted and kept, but only the keys above get a label in the
editor. All values are strings; use an empty string for a field that is
present but not filled in.

## Addressing

- Metadata of a project source lives on its wrapped source. Writing through
  either id edits the same fields.
- Tags attach to the id you pass, so a project source keeps its own tags.

## Storage

Each entity keeps at most one metadata annotation. Its content is

` + "```" + `json
[{"field_name":"` + metadata.FieldMetadataValue + `","value":"{\"phone\":\"555-0100\"}"}]
` + "```" + `

where ` + "`value`" + ` is the field object encoded as a JSON string.
`
}
