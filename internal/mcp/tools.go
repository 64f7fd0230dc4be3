// ABOUTME: MCP tool implementations for weight tracking.
// ABOUTME: Provides schema status plus category and entry operations.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "schema_status",
		Description: "Report the database schema state and whether each table matches the expected model",
	}, s.handleSchemaStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_categories",
		Description: "List exercise categories, most recently used first",
	}, s.handleListCategories)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_category",
		Description: "Create an exercise category",
	}, s.handleAddCategory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "add_entry",
		Description: "Record a weight in a category, creating the category if needed",
	}, s.handleAddEntry)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_entries",
		Description: "List recorded weights, optionally filtered by category and time window",
	}, s.handleListEntries)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_entry",
		Description: "Delete a recorded weight by ID",
	}, s.handleDeleteEntry)
}

// Tool input/output types

type schemaStatusInput struct{}

type schemaStatusOutput struct {
	State  string          `json:"state"`
	Tables map[string]bool `json:"tables"`
}

type userInput struct {
	Username string `json:"username,omitempty" jsonschema:"Username, defaults to the default user"`
}

type categoryOutput struct {
	ID                   int64   `json:"id"`
	Name                 string  `json:"name"`
	Kind                 string  `json:"kind"`
	IsBodyMass           bool    `json:"is_body_mass"`
	IsBodyWeightExercise bool    `json:"is_body_weight_exercise"`
	LastUsedAt           *string `json:"last_used_at,omitempty"`
}

type listCategoriesOutput struct {
	Categories []categoryOutput `json:"categories"`
}

type addCategoryInput struct {
	Username           string `json:"username,omitempty" jsonschema:"Username, defaults to the default user"`
	Name               string `json:"name" jsonschema:"Category name"`
	BodyMass           bool   `json:"body_mass,omitempty" jsonschema:"Track body mass in this category"`
	BodyWeightExercise bool   `json:"body_weight_exercise,omitempty" jsonschema:"Exercise done with body weight only"`
}

type addEntryInput struct {
	Username  string  `json:"username,omitempty" jsonschema:"Username, defaults to the default user"`
	Category  string  `json:"category" jsonschema:"Category name"`
	Weight    float64 `json:"weight" jsonschema:"Weight lifted or measured"`
	Unit      string  `json:"unit,omitempty" jsonschema:"kg or lb, defaults to kg"`
	Reps      int     `json:"reps,omitempty" jsonschema:"Repetitions, ignored for body mass"`
	Notes     string  `json:"notes,omitempty" jsonschema:"Optional notes"`
	CreatedAt string  `json:"created_at,omitempty" jsonschema:"Timestamp (ISO 8601), defaults to now"`
}

type entryOutput struct {
	ID           int64    `json:"id"`
	Category     string   `json:"category"`
	Weight       float64  `json:"weight"`
	Unit         string   `json:"unit"`
	Reps         *int     `json:"reps,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	CreatedAt    string   `json:"created_at"`
	Estimated1RM *float64 `json:"estimated_1rm,omitempty"`
}

type addEntryOutput struct {
	Entry   entryOutput `json:"entry"`
	Message string      `json:"message"`
}

type listEntriesInput struct {
	Username string `json:"username,omitempty" jsonschema:"Username, defaults to the default user"`
	Category string `json:"category,omitempty" jsonschema:"Filter by category name"`
	Window   string `json:"window,omitempty" jsonschema:"week, month, year, or all (default all)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type listEntriesOutput struct {
	Entries []entryOutput `json:"entries"`
	Message string        `json:"message,omitempty"`
}

type deleteEntryInput struct {
	ID int64 `json:"id" jsonschema:"Entry ID"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleSchemaStatus(ctx context.Context, req *mcp.CallToolRequest, input schemaStatusInput) (*mcp.CallToolResult, schemaStatusOutput, error) {
	state, report, err := s.repo.SchemaStatus(ctx)
	if err != nil {
		return nil, schemaStatusOutput{}, fmt.Errorf("failed to read schema status: %w", err)
	}
	return nil, schemaStatusOutput{State: state.String(), Tables: report}, nil
}

func (s *Server) handleListCategories(ctx context.Context, req *mcp.CallToolRequest, input userInput) (*mcp.CallToolResult, listCategoriesOutput, error) {
	u, err := s.resolveUser(input.Username)
	if err != nil {
		return nil, listCategoriesOutput{}, fmt.Errorf("failed to resolve user: %w", err)
	}

	categories, err := s.repo.ListCategories(u.ID)
	if err != nil {
		return nil, listCategoriesOutput{}, fmt.Errorf("failed to list categories: %w", err)
	}

	out := listCategoriesOutput{Categories: make([]categoryOutput, 0, len(categories))}
	for _, c := range categories {
		out.Categories = append(out.Categories, toCategoryOutput(c))
	}
	return nil, out, nil
}

func (s *Server) handleAddCategory(ctx context.Context, req *mcp.CallToolRequest, input addCategoryInput) (*mcp.CallToolResult, categoryOutput, error) {
	u, err := s.resolveUser(input.Username)
	if err != nil {
		return nil, categoryOutput{}, fmt.Errorf("failed to resolve user: %w", err)
	}

	c := models.NewCategory(u.ID, input.Name)
	c.IsBodyMass = input.BodyMass
	c.IsBodyWeightExercise = input.BodyWeightExercise
	if err := s.repo.CreateCategory(c); err != nil {
		return nil, categoryOutput{}, fmt.Errorf("failed to create category: %w", err)
	}
	return nil, toCategoryOutput(c), nil
}

func (s *Server) handleAddEntry(ctx context.Context, req *mcp.CallToolRequest, input addEntryInput) (*mcp.CallToolResult, addEntryOutput, error) {
	u, err := s.resolveUser(input.Username)
	if err != nil {
		return nil, addEntryOutput{}, fmt.Errorf("failed to resolve user: %w", err)
	}

	c, err := s.repo.GetOrCreateCategory(u.ID, input.Category, false)
	if err != nil {
		return nil, addEntryOutput{}, fmt.Errorf("failed to resolve category: %w", err)
	}

	e := models.NewEntry(u.ID, c.ID, input.Weight, input.Unit)
	if input.Reps > 0 {
		e.WithReps(input.Reps)
	}
	if input.Notes != "" {
		e.WithNotes(input.Notes)
	}
	if input.CreatedAt != "" {
		t, err := parseTimestamp(input.CreatedAt)
		if err != nil {
			return nil, addEntryOutput{}, err
		}
		e.CreatedAt = t
	}

	if err := s.repo.CreateEntry(e); err != nil {
		return nil, addEntryOutput{}, fmt.Errorf("failed to create entry: %w", err)
	}

	out := toEntryOutput(e, c.Name)
	return nil, addEntryOutput{
		Entry:   out,
		Message: fmt.Sprintf("Added %s: %.2f %s (ID: %d)", c.Name, e.Weight, e.Unit, e.ID),
	}, nil
}

func (s *Server) handleListEntries(ctx context.Context, req *mcp.CallToolRequest, input listEntriesInput) (*mcp.CallToolResult, listEntriesOutput, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	u, err := s.resolveUser(input.Username)
	if err != nil {
		return nil, listEntriesOutput{}, fmt.Errorf("failed to resolve user: %w", err)
	}

	window, err := models.ParseWindow(input.Window)
	if err != nil {
		return nil, listEntriesOutput{}, err
	}
	filter := storage.EntryFilter{UserID: u.ID, Window: window, Limit: input.Limit}
	if input.Category != "" {
		c, err := s.repo.GetCategoryByName(u.ID, input.Category)
		if err != nil {
			return nil, listEntriesOutput{}, fmt.Errorf("category not found: %s", input.Category)
		}
		filter.CategoryID = &c.ID
	}

	entries, err := s.repo.ListEntries(filter)
	if err != nil {
		return nil, listEntriesOutput{}, fmt.Errorf("failed to list entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, listEntriesOutput{Entries: []entryOutput{}, Message: "No entries found."}, nil
	}

	names, err := s.categoryNames(u.ID)
	if err != nil {
		return nil, listEntriesOutput{}, err
	}
	out := listEntriesOutput{Entries: make([]entryOutput, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, toEntryOutput(e, names[e.CategoryID]))
	}
	return nil, out, nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, req *mcp.CallToolRequest, input deleteEntryInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.repo.DeleteEntry(input.ID); err != nil {
		return nil, simpleOutput{}, fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Deleted entry: %d", input.ID)}, nil
}

func (s *Server) categoryNames(userID int64) (map[int64]string, error) {
	categories, err := s.repo.ListCategories(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (use ISO 8601)", s)
}

func toCategoryOutput(c *models.Category) categoryOutput {
	out := categoryOutput{
		ID:                   c.ID,
		Name:                 c.Name,
		Kind:                 c.Kind(),
		IsBodyMass:           c.IsBodyMass,
		IsBodyWeightExercise: c.IsBodyWeightExercise,
	}
	if c.LastUsedAt != nil {
		ts := c.LastUsedAt.Format(time.RFC3339)
		out.LastUsedAt = &ts
	}
	return out
}

func toEntryOutput(e *models.Entry, category string) entryOutput {
	return entryOutput{
		ID:           e.ID,
		Category:     category,
		Weight:       e.Weight,
		Unit:         e.Unit,
		Reps:         e.Reps,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
		Estimated1RM: e.Estimated1RM(),
	}
}
