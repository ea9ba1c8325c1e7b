// Package mcp exposes the tracker over the Model Context Protocol: catalog
// lookup, substitute matching, workout logging, and statistics as tools on
// stdio. All tools work against local data; sync happens in the background.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/gymtrack/internal/app"
)

// New creates an MCP server with all tools and resources registered.
func New(a *app.App, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("GymTrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("GymTrack equipment and workout server. Look up gym equipment, find substitutes for busy machines, log workouts, and review training statistics. Writes are stored locally first and synced to the account in the background."),
	)

	h := &handlers{app: a, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolFindSubstitutes, Handler: h.findSubstitutes},
		server.ServerTool{Tool: toolGetEquipment, Handler: h.getEquipment},
		server.ServerTool{Tool: toolLogWorkout, Handler: h.logWorkout},
		server.ServerTool{Tool: toolGetStatistics, Handler: h.getStatistics},
		server.ServerTool{Tool: toolGetSettings, Handler: h.getSettings},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resEquipmentCatalog, Handler: h.equipmentCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	app *app.App
	log *slog.Logger
}

// --- Resource definitions ---

var resEquipmentCatalog = mcp.NewResource(
	"gymtrack://equipment_catalog",
	"Equipment Catalog",
	mcp.WithResourceDescription("Every piece of gym equipment with zone, movement pattern, muscles, and programming guidance"),
	mcp.WithMIMEType("application/json"),
)
