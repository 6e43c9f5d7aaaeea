package mutation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/folio/internal/models"
)

// Response is what a Transport returns for a completed call. When OK is
// false, Raw holds the server's error payload, structured or not.
type Response struct {
	OK          bool            `json:"ok"`
	ServerState json.RawMessage `json:"serverState,omitempty"`
	Raw         string          `json:"raw,omitempty"`
}

// Failure is the error variant of a Result.
type Failure struct {
	Message string
	Raw     string
}

func (f *Failure) Error() string { return f.Message }

// Result is the outcome of one dispatched request: success when Failure is
// nil, failure otherwise.
type Result struct {
	Request Request
	State   json.RawMessage
	Failure *Failure
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Failure == nil }

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// Entity decodes the refreshed entity carried by a successful result.
func (r Result) Entity() (*models.Entity, error) {
	if !r.OK() {
		return nil, r.Failure
	}
	if len(r.State) == 0 {
		return nil, fmt.Errorf("mutation: %s: empty server state", r.Request.Operation)
	}
	var e models.Entity
	if err := json.Unmarshal(r.State, &e); err != nil {
		return nil, fmt.Errorf("mutation: %s: decode server state: %w", r.Request.Operation, err)
	}
	return &e, nil
}

func failed(req Request, message, raw string) Result {
	return Result{Request: req, Failure: &Failure{Message: message, Raw: raw}}
}

// fallbackMessage is shown when a failure carries no payload at all.
const fallbackMessage = "mutation failed"

// ExtractMessage turns a raw error payload into a user-facing message. A
// structured payload with a non-empty "error" string yields that string;
// anything else yields the raw text itself.
func ExtractMessage(raw string) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err == nil && body.Error != "" {
		return body.Error
	}
	if strings.TrimSpace(raw) == "" {
		return fallbackMessage
	}
	return raw
}
