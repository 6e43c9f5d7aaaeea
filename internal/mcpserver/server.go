// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes entity metadata and tag tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/editsession"
	"github.com/starford/folio/internal/metadata"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
	"github.com/starford/folio/internal/scope"
	"github.com/starford/folio/internal/tags"
)

// Reader loads current server state.
type Reader interface {
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	GetTeam(ctx context.Context, slug string) (*models.Team, error)
}

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp    *server.MCPServer
	reader Reader
	gw     *mutation.Gateway
	scope  *scope.Store
	repo   *metadata.Repository
	tags   *tags.Manager
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered. Mutations go
// through gw; sc carries the annotator identity.
func New(reader Reader, gw *mutation.Gateway, sc *scope.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if sc == nil {
		sc = scope.New()
	}
	s := &Server{
		reader: reader,
		gw:     gw,
		scope:  sc,
		repo:   metadata.NewRepository(logger),
		tags:   tags.NewManager(gw, sc, logger),
		logger: logger,
	}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Read an entity (source, project source or media) with its annotations and tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.getEntity)

	s.mcp.AddTool(mcp.NewTool("get_metadata",
		mcp.WithDescription("Read the metadata fields of an entity as a key/value object. "+
			"For a project source the fields of its wrapped source are returned."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.getMetadata)

	s.mcp.AddTool(mcp.NewTool("set_metadata_field",
		mcp.WithDescription("Set one metadata field and save. Read the contract first via "+
			"get_metadata_contract or the folio://metadata-format resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Field key, e.g. phone")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Field value (text)")),
	), s.setMetadataField)

	s.mcp.AddTool(mcp.NewTool("remove_metadata_field",
		mcp.WithDescription("Remove one metadata field and save."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Field key")),
	), s.removeMetadataField)

	s.mcp.AddTool(mcp.NewTool("add_tag",
		mcp.WithDescription("Attach a tag to an entity."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Tag label")),
	), s.addTag)

	s.mcp.AddTool(mcp.NewTool("remove_tag",
		mcp.WithDescription("Remove a tag from an entity."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithString("tag_id", mcp.Required(), mcp.Description("Tag id as returned by get_entity")),
	), s.removeTag)

	s.mcp.AddTool(mcp.NewTool("suggest_tags",
		mcp.WithDescription("List the team's suggested tags that the entity does not have yet."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.suggestTags)

	s.mcp.AddTool(mcp.NewTool("get_metadata_contract",
		mcp.WithDescription("Returns the metadata field contract. "+
			"Call this before writing metadata to use the recognized keys."),
	), s.getMetadataContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Metadata Format Contract",
			mcp.WithResourceDescription("Recognized metadata keys and storage format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) entity(ctx context.Context, req mcp.CallToolRequest) (*models.Entity, *mcp.CallToolResult) {
	id, err := req.RequireString("id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	e, err := s.reader.GetEntity(ctx, id)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return e, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, errRes := s.entity(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	return jsonResult(e), nil
}

func (s *Server) getMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, errRes := s.entity(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	m := s.repo.Load(e)
	if m == nil {
		m = metadata.FieldMap{}
	}
	return jsonResult(m), nil
}

func (s *Server) setMetadataField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return mcp.NewToolResultError("key is required"), nil
	}
	return s.saveMetadata(ctx, req, func(sess *editsession.Session) {
		sess.AddField(key)
		sess.SetField(key, value)
	})
}

func (s *Server) removeMetadataField(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.saveMetadata(ctx, req, func(sess *editsession.Session) {
		sess.RemoveField(key)
	})
}

// saveMetadata runs one edit cycle: enter, apply edit, submit the current
// entity fields with the edited map, and report the saved map.
func (s *Server) saveMetadata(ctx context.Context, req mcp.CallToolRequest, edit func(*editsession.Session)) (*mcp.CallToolResult, error) {
	e, errRes := s.entity(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	sess := editsession.New(e, editsession.Deps{
		Gateway:    s.gw,
		Repository: s.repo,
		Tags:       s.tags,
		Scope:      s.scope.Child(),
		Logger:     s.logger,
	})
	if !sess.Enter() {
		return mcp.NewToolResultError("entity is not editable"), nil
	}
	edit(sess)

	target := e.AnnotationTarget()
	done, ok := sess.Submit(ctx, editsession.EntityFields{Name: target.Name, Description: target.Description})
	if !ok {
		return mcp.NewToolResultError("a save for this entity is already in progress"), nil
	}
	if err := wait(ctx, done); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v := sess.View()
	if v.LastError != "" {
		return mcp.NewToolResultError(v.LastError), nil
	}
	return jsonResult(v.Metadata), nil
}

func (s *Server) addTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, errRes := s.entity(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	ch, ok := s.tags.Add(ctx, e, label)
	if !ok {
		return mcp.NewToolResultError("label is required"), nil
	}
	return s.tagResult(ctx, ch)
}

func (s *Server) removeTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tagID, err := req.RequireString("tag_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, errRes := s.entity(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	ch, ok := s.tags.Remove(ctx, e, tagID)
	if !ok {
		return mcp.NewToolResultError("tag_id is required"), nil
	}
	return s.tagResult(ctx, ch)
}

func (s *Server) tagResult(ctx context.Context, ch <-chan mutation.Result) (*mcp.CallToolResult, error) {
	var res mutation.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return mcp.NewToolResultError(ctx.Err().Error()), nil
	}
	if !res.OK() {
		return mcp.NewToolResultError(res.Failure.Message), nil
	}
	e, err := res.Entity()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(e.Tags), nil
}

func (s *Server) suggestTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, errRes := s.entity(ctx, req)
	if errRes != nil {
		return errRes, nil
	}
	if e.TeamSlug == "" {
		return jsonResult([]string{}), nil
	}
	team, err := s.reader.GetTeam(ctx, e.TeamSlug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("team %s: %v", e.TeamSlug, err)), nil
	}
	out := s.tags.AvailableSuggestions(e, team)
	if out == nil {
		out = []string{}
	}
	return jsonResult(out), nil
}

func (s *Server) getMetadataContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MetadataContract()), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     MetadataContract(),
		},
	}, nil
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("save still in progress: " + ctx.Err().Error())
	}
}
