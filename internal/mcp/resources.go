// ABOUTME: MCP resource implementations for weight tracking.
// ABOUTME: Provides liftlog://schema, liftlog://recent, and liftlog://summary resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	// liftlog://schema - schema state and per-table consistency
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "liftlog://schema",
		Name:        "Schema Status",
		Description: "Database schema state and whether each table matches the expected model",
		MIMEType:    "application/json",
	}, s.handleSchemaResource)

	// liftlog://recent - last 10 entries for the default user
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "liftlog://recent",
		Name:        "Recent Entries",
		Description: "Last 10 recorded weights",
		MIMEType:    "application/json",
	}, s.handleRecentResource)

	// liftlog://summary - latest entry and best estimated 1RM per category
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "liftlog://summary",
		Name:        "Category Summary",
		Description: "Latest entry and best estimated one-rep max for each category",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)
}

// Resource handlers

func (s *Server) handleSchemaResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	state, report, err := s.repo.SchemaStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema status: %w", err)
	}
	return jsonResource("liftlog://schema", schemaStatusOutput{State: state.String(), Tables: report})
}

func (s *Server) handleRecentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	u, err := s.repo.DefaultUser()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	entries, err := s.repo.ListEntries(storage.EntryFilter{UserID: u.ID, Window: models.WindowAll, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	names, err := s.categoryNames(u.ID)
	if err != nil {
		return nil, err
	}

	out := make([]entryOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryOutput(e, names[e.CategoryID]))
	}
	return jsonResource("liftlog://recent", map[string]any{"entries": out})
}

type categorySummary struct {
	Category    categoryOutput `json:"category"`
	Entries     int            `json:"entries"`
	Latest      *entryOutput   `json:"latest,omitempty"`
	Best1RMKg   *float64       `json:"best_estimated_1rm_kg,omitempty"`
	TotalVolume float64        `json:"total_volume"`
}

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	u, err := s.repo.DefaultUser()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	categories, err := s.repo.ListCategories(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	summaries := make([]categorySummary, 0, len(categories))
	for _, c := range categories {
		entries, err := s.repo.ListEntries(storage.EntryFilter{UserID: u.ID, CategoryID: &c.ID, Window: models.WindowAll})
		if err != nil {
			return nil, fmt.Errorf("failed to list entries: %w", err)
		}

		sum := categorySummary{Category: toCategoryOutput(c), Entries: len(entries)}
		for i, e := range entries {
			if i == 0 {
				latest := toEntryOutput(e, c.Name)
				sum.Latest = &latest
			}
			sum.TotalVolume += e.Volume()
			if est := e.Estimated1RM(); est != nil {
				kg := models.ConvertToKg(*est, e.Unit)
				if sum.Best1RMKg == nil || kg > *sum.Best1RMKg {
					sum.Best1RMKg = &kg
				}
			}
		}
		summaries = append(summaries, sum)
	}

	return jsonResource("liftlog://summary", map[string]any{"categories": summaries})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
