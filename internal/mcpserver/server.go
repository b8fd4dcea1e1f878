// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes navgate's navigation model for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/navgate/internal/apperr"
	"github.com/starford/navgate/internal/menu"
	"github.com/starford/navgate/internal/navservice"
)

// Resource URIs.
const (
	MenuURI   = "navgate://menu"
	FormatURI = "navgate://file-format"
)

// Server wraps the MCP server with navgate tools.
type Server struct {
	mcp *server.MCPServer
	svc *navservice.Service
}

// New creates a new MCP server with all navgate tools registered.
func New(svc *navservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"navgate",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_navigation",
		mcp.WithDescription("Return the navigation an actor sees at a location: visible entries, "+
			"the active entry and the breadcrumb trail."),
		mcp.WithString("actor", mcp.Description("Actor whose policy applies (empty for anonymous)")),
		mcp.WithString("path", mcp.Description("Current location, defaults to /")),
	), s.getNavigation)

	s.mcp.AddTool(mcp.NewTool("get_breadcrumbs",
		mcp.WithDescription("Return the breadcrumb trail for a location."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Current location, e.g. /clients/tenants")),
	), s.getBreadcrumbs)

	s.mcp.AddTool(mcp.NewTool("check_menu",
		mcp.WithDescription("Lint the configured menu and list the problems found."),
	), s.checkMenu)

	s.mcp.AddTool(mcp.NewTool("list_permission_holders",
		mcp.WithDescription("List the actors holding a permission, superusers included."),
		mcp.WithString("permission", mcp.Required(), mcp.Description("Permission id, e.g. view_lease")),
	), s.listPermissionHolders)

	s.mcp.AddTool(mcp.NewTool("read_policy",
		mcp.WithDescription("Read the policy file of an actor."),
		mcp.WithString("actor", mcp.Required(), mcp.Description("Actor name")),
	), s.readPolicy)

	s.mcp.AddTool(mcp.NewTool("get_file_format",
		mcp.WithDescription("Returns the menu and policy file format contract. "+
			"Call this before editing either file."),
	), s.getFileFormat)

	s.mcp.AddResource(
		mcp.NewResource(MenuURI, "Menu",
			mcp.WithResourceDescription("The configured navigation tree as YAML."),
			mcp.WithMIMEType("application/yaml"),
		),
		s.readMenuResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "File Format Contract",
			mcp.WithResourceDescription("Menu and policy file formats."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) getNavigation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actor := req.GetString("actor", "")
	path := req.GetString("path", "/")
	v, err := s.svc.Navigation(ctx, actor, path, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v), nil
}

func (s *Server) getBreadcrumbs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	trail := s.svc.Breadcrumbs(ctx, path)
	if len(trail) == 0 {
		return mcp.NewToolResultText("no breadcrumbs for " + path), nil
	}
	names := make([]string, len(trail))
	for i, c := range trail {
		names[i] = fmt.Sprintf("%s (%s)", c.Name, c.Link)
	}
	return mcp.NewToolResultText(strings.Join(names, " / ")), nil
}

func (s *Server) checkMenu(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues := s.svc.Check()
	if len(issues) == 0 {
		return mcp.NewToolResultText("no issues found"), nil
	}
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	text := strings.Join(lines, "\n")
	if menu.HasErrors(issues) {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) listPermissionHolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	perm, err := req.RequireString("permission")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	holders, err := s.svc.Holders(ctx, perm)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(holders) == 0 {
		return mcp.NewToolResultText("no holders found"), nil
	}
	return mcp.NewToolResultText(strings.Join(holders, "\n")), nil
}

func (s *Server) readPolicy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	actor, err := req.RequireString("actor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetPolicy(ctx, actor)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", actor)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) getFileFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readMenuResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := menu.Marshal(s.svc.Menu())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MenuURI,
			MIMEType: "application/yaml",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
