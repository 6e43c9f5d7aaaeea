package api

import (
	"context"
	"encoding/json"

	"github.com/starford/folio/internal/entityservice"
	"github.com/starford/folio/internal/mutation"
)

// LocalTransport applies mutations in-process, producing the same responses
// the HTTP endpoint would. Embedders that share the backend's store use it
// in place of mutation.HTTPTransport.
type LocalTransport struct {
	svc    *entityservice.Service
	events Publisher
}

// NewLocalTransport creates a LocalTransport. events may be nil.
func NewLocalTransport(svc *entityservice.Service, events Publisher) *LocalTransport {
	return &LocalTransport{svc: svc, events: events}
}

// Send implements mutation.Transport.
func (t *LocalTransport) Send(ctx context.Context, req mutation.Request) (mutation.Response, error) {
	e, err := t.svc.Apply(ctx, req)
	if err != nil {
		_, msg := errorStatus(err)
		raw, _ := json.Marshal(errorBody(msg))
		return mutation.Response{OK: false, Raw: string(raw)}, nil
	}
	if t.events != nil {
		t.events.PublishMutation(string(req.Operation), req.EntityID)
	}
	state, err := json.Marshal(e)
	if err != nil {
		return mutation.Response{}, err
	}
	return mutation.Response{OK: true, ServerState: state}, nil
}
