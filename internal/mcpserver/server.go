// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes clip tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/clipper/internal/apperr"
	"github.com/starford/clipper/internal/clipservice"
	"github.com/starford/clipper/internal/models"
)

const clipFormatURI = "clipper://clip-format"

// Server wraps the MCP server with clip tools.
type Server struct {
	mcp *server.MCPServer
	svc *clipservice.Service
}

// New creates a new MCP server with all clip tools registered.
func New(svc *clipservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Clipper",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("save_clip",
		mcp.WithDescription("Save a web clip as a Markdown file and reference it from today's daily note. "+
			"Read the clip format first via get_clip_contract or the "+clipFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Clipped content as Markdown")),
		mcp.WithObject("metadata", mcp.Required(),
			mcp.Description("Page metadata: title, url, and optional author, keywords (string list), date, excerpt")),
	), s.saveClip)

	s.mcp.AddTool(mcp.NewTool("recent_clips",
		mcp.WithDescription("List the most recently saved clips, newest first."),
	), s.recentClips)

	s.mcp.AddTool(mcp.NewTool("search_clips",
		mcp.WithDescription("Search saved clips by title, URL, keywords and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchClips)

	s.mcp.AddTool(mcp.NewTool("read_clip",
		mcp.WithDescription("Read the full Markdown of a saved clip."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Clip name without .md, as returned by recent_clips")),
	), s.readClip)

	s.mcp.AddTool(mcp.NewTool("get_base_folder",
		mcp.WithDescription("Return the storage root and its clippings and daily folders."),
	), s.getBaseFolder)

	s.mcp.AddTool(mcp.NewTool("set_base_folder",
		mcp.WithDescription("Move the storage root. Existing clips are not copied."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path or ~/path of the new root")),
	), s.setBaseFolder)

	s.mcp.AddTool(mcp.NewTool("get_clip_contract",
		mcp.WithDescription("Returns the clip file and daily note format."),
	), s.getClipContract)

	s.mcp.AddResource(
		mcp.NewResource(clipFormatURI, "Clip Format Contract",
			mcp.WithResourceDescription("How clips and daily-note references are stored."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readClipFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) saveClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	meta, ok := req.GetArguments()["metadata"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("metadata must be an object"), nil
	}
	clip, err := s.svc.SaveClip(ctx, content, models.RawMetadata(meta))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(clip), nil
}

func (s *Server) recentClips(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Recent(ctx)), nil
}

func (s *Server) searchClips(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readClip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clip, err := s.svc.GetClip(ctx, name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(clip.Content), nil
}

func (s *Server) getBaseFolder(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.BaseFolder(ctx)), nil
}

func (s *Server) setBaseFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	layout, err := s.svc.SetBaseFolder(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(layout), nil
}

func (s *Server) getClipContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ClipFormatContract), nil
}

func (s *Server) readClipFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      clipFormatURI,
			MIMEType: "text/markdown",
			Text:     ClipFormatContract,
		},
	}, nil
}
