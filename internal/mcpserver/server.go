// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Ansuz knowledge graph as tools for LLM integration
// via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/noteservice"
)

// Server wraps the MCP server with the graph tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all graph tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("capture_note",
		mcp.WithDescription("Capture a short note into the knowledge graph. "+
			"The note is embedded and linked to semantically similar notes "+
			"automatically. Read the capture contract first via the "+
			"get_capture_contract tool or the ansuz://capture-contract resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Plain-text note content, one atomic idea")),
		mcp.WithString("type", mcp.Description("Note type: note, idea, question, reference, or meta (default note)")),
	), s.captureNote)

	s.mcp.AddTool(mcp.NewTool("find_similar",
		mcp.WithDescription("Find notes semantically similar to the given text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Query text to embed and match")),
	), s.findSimilar)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("List the notes linked to the specified note, with similarities."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Id of the note to inspect")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_clusters",
		mcp.WithDescription("List the current topic clusters with their member note ids."),
	), s.listClusters)

	s.mcp.AddTool(mcp.NewTool("list_tensions",
		mcp.WithDescription("List detected semantic tensions: note pairs that share a cluster but diverge."),
	), s.listTensions)

	s.mcp.AddTool(mcp.NewTool("get_capture_contract",
		mcp.WithDescription("Returns the note capture contract. Call this before capturing notes."),
	), s.getCaptureContract)

	// Resource: capture contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://capture-contract", "Note Capture Contract",
			mcp.WithResourceDescription("How to capture notes so automatic linking stays useful."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCaptureContractResource,
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

func (s *Server) captureNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	noteType := ""
	if t, err := req.RequireString("type"); err == nil {
		noteType = t
	}

	res, err := s.svc.CaptureNote(ctx, content, noteType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findSimilar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches, err := s.svc.FindSimilar(ctx, text, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("no similar notes found"), nil
	}
	out, _ := json.MarshalIndent(matches, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	links, err := s.svc.Links(ctx, noteID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	var lines []string
	for _, l := range links {
		lines = append(lines, fmt.Sprintf("%s (%.3f)", l.TargetID, l.Similarity))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listClusters(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	clusters, _, err := s.svc.Clusters(ctx, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(clusters) == 0 {
		return mcp.NewToolResultText("no clusters computed"), nil
	}
	out, _ := json.MarshalIndent(clusters, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTensions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := s.svc.Tensions(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(idx.Tensions) == 0 {
		return mcp.NewToolResultText("no tensions detected"), nil
	}
	out, _ := json.MarshalIndent(idx.Tensions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCaptureContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CaptureContract), nil
}

func (s *Server) readCaptureContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://capture-contract",
			MIMEType: "text/markdown",
			Text:     CaptureContract,
		},
	}, nil
}
