// ABOUTME: Tests for MCP server, tools, and resources.
// ABOUTME: Covers NewServer, tool handlers, and resource handlers.
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harperreed/liftlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// setupTestDB creates a test database in a temp directory.
func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "liftlog.db")
	db, err := storage.Open(dbPath, storage.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func setupServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(setupTestDB(t))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server
}

func TestNewServer(t *testing.T) {
	server := setupServer(t)

	if server.mcpServer == nil {
		t.Error("Expected non-nil mcpServer")
	}
	if server.repo == nil {
		t.Error("Expected non-nil repo")
	}
}

func TestHandleSchemaStatus(t *testing.T) {
	server := setupServer(t)

	_, out, err := server.handleSchemaStatus(context.Background(), &mcp.CallToolRequest{}, schemaStatusInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.State != "current" {
		t.Errorf("State = %s, want current", out.State)
	}
	for _, table := range []string{"user", "weight_category", "weight_entry"} {
		if !out.Tables[table] {
			t.Errorf("table %s should be consistent", table)
		}
	}
}

func TestHandleListCategories(t *testing.T) {
	server := setupServer(t)

	_, out, err := server.handleListCategories(context.Background(), &mcp.CallToolRequest{}, userInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(out.Categories) != 1 || out.Categories[0].Name != "Body Mass" || out.Categories[0].Kind != "body mass" {
		t.Errorf("unexpected categories: %+v", out.Categories)
	}

	if _, _, err := server.handleListCategories(context.Background(), &mcp.CallToolRequest{}, userInput{Username: "nobody"}); err == nil {
		t.Error("Expected error for unknown user")
	}
}

func TestToolInputsUseUsernameKey(t *testing.T) {
	server := setupServer(t)

	var in userInput
	if err := json.Unmarshal([]byte(`{"username":"nobody"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.Username != "nobody" {
		t.Fatalf("username not decoded: %+v", in)
	}
	if _, _, err := server.handleListCategories(context.Background(), &mcp.CallToolRequest{}, in); err == nil {
		t.Error("Expected error for unknown user")
	}

	var entry addEntryInput
	if err := json.Unmarshal([]byte(`{"username":"alice","category":"Body Mass","weight":80}`), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Username != "alice" {
		t.Errorf("username not decoded: %+v", entry)
	}
}

func TestHandleAddCategory(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		input     addCategoryInput
		wantErr   bool
		errSubstr string
	}{
		{name: "weighted", input: addCategoryInput{Name: "Bench Press"}},
		{name: "body weight", input: addCategoryInput{Name: "Pull-ups", BodyWeightExercise: true}},
		{name: "duplicate", input: addCategoryInput{Name: "Bench Press"}, wantErr: true, errSubstr: "already exists"},
		{
			name:      "both flags",
			input:     addCategoryInput{Name: "Broken", BodyMass: true, BodyWeightExercise: true},
			wantErr:   true,
			errSubstr: "cannot be both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleAddCategory(ctx, &mcp.CallToolRequest{}, tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("Error %q should contain %q", err.Error(), tt.errSubstr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if out.ID == 0 || out.Name != tt.input.Name {
				t.Errorf("unexpected output: %+v", out)
			}
		})
	}
}

func TestHandleAddEntry(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	_, out, err := server.handleAddEntry(ctx, &mcp.CallToolRequest{}, addEntryInput{
		Category: "Squats", Weight: 120, Reps: 5, Notes: "depth ok", CreatedAt: "2025-01-31T08:00:00Z",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Entry.ID == 0 || out.Entry.Category != "Squats" || out.Entry.Unit != "kg" {
		t.Errorf("unexpected entry: %+v", out.Entry)
	}
	if out.Entry.Reps == nil || *out.Entry.Reps != 5 {
		t.Errorf("Reps = %v, want 5", out.Entry.Reps)
	}
	if out.Entry.Estimated1RM == nil {
		t.Error("Expected estimated 1RM for a weighted set")
	}
	if out.Entry.CreatedAt != "2025-01-31T08:00:00Z" {
		t.Errorf("CreatedAt = %s", out.Entry.CreatedAt)
	}

	_, out, err = server.handleAddEntry(ctx, &mcp.CallToolRequest{}, addEntryInput{Category: "Body Mass", Weight: 81, Reps: 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Entry.Reps != nil || out.Entry.Estimated1RM != nil {
		t.Errorf("body mass entry should have no reps or estimate: %+v", out.Entry)
	}
}

func TestHandleAddEntryErrors(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	if _, _, err := server.handleAddEntry(ctx, &mcp.CallToolRequest{}, addEntryInput{Category: "Squats", Weight: -5}); err == nil {
		t.Error("Expected error for negative weight")
	}
	if _, _, err := server.handleAddEntry(ctx, &mcp.CallToolRequest{}, addEntryInput{Category: "Squats", Weight: 5, CreatedAt: "last tuesday"}); err == nil {
		t.Error("Expected error for invalid timestamp")
	}
}

func TestHandleListEntries(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	for _, in := range []addEntryInput{
		{Category: "Squats", Weight: 100, Reps: 5},
		{Category: "Squats", Weight: 110, Reps: 3},
		{Category: "Body Mass", Weight: 82},
	} {
		if _, _, err := server.handleAddEntry(ctx, &mcp.CallToolRequest{}, in); err != nil {
			t.Fatalf("add entry failed: %v", err)
		}
	}

	tests := []struct {
		name  string
		input listEntriesInput
		want  int
	}{
		{"all", listEntriesInput{}, 3},
		{"limit", listEntriesInput{Limit: 1}, 1},
		{"category", listEntriesInput{Category: "squats"}, 2},
		{"week", listEntriesInput{Window: "week"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.handleListEntries(ctx, &mcp.CallToolRequest{}, tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(out.Entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(out.Entries), tt.want)
			}
		})
	}

	if _, _, err := server.handleListEntries(ctx, &mcp.CallToolRequest{}, listEntriesInput{Window: "decade"}); err == nil {
		t.Error("Expected error for invalid window")
	}
	if _, _, err := server.handleListEntries(ctx, &mcp.CallToolRequest{}, listEntriesInput{Category: "Missing"}); err == nil {
		t.Error("Expected error for unknown category")
	}
}

func TestHandleListEntriesEmpty(t *testing.T) {
	server := setupServer(t)

	_, out, err := server.handleListEntries(context.Background(), &mcp.CallToolRequest{}, listEntriesInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Message != "No entries found." {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestHandleDeleteEntry(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	_, added, err := server.handleAddEntry(ctx, &mcp.CallToolRequest{}, addEntryInput{Category: "Rows", Weight: 60})
	if err != nil {
		t.Fatalf("add entry failed: %v", err)
	}

	if _, _, err := server.handleDeleteEntry(ctx, &mcp.CallToolRequest{}, deleteEntryInput{ID: added.Entry.ID}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, _, err := server.handleDeleteEntry(ctx, &mcp.CallToolRequest{}, deleteEntryInput{ID: added.Entry.ID}); err == nil {
		t.Error("Expected error deleting a missing entry")
	}
}

func TestHandleSchemaResource(t *testing.T) {
	server := setupServer(t)

	res, err := server.handleSchemaResource(context.Background(), &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(res.Contents) != 1 || res.Contents[0].URI != "liftlog://schema" {
		t.Fatalf("unexpected contents: %+v", res.Contents)
	}

	var out schemaStatusOutput
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.State != "current" {
		t.Errorf("State = %s, want current", out.State)
	}
}

func TestHandleRecentResource(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	if _, _, err := server.handleAddEntry(ctx, &mcp.CallToolRequest{}, addEntryInput{Category: "Deadlift", Weight: 180, Reps: 2}); err != nil {
		t.Fatalf("add entry failed: %v", err)
	}

	res, err := server.handleRecentResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var out struct {
		Entries []entryOutput `json:"entries"`
	}
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out.Entries) != 1 || out.Entries[0].Category != "Deadlift" {
		t.Errorf("unexpected entries: %+v", out.Entries)
	}
}

func TestHandleSummaryResource(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	for _, in := range []addEntryInput{
		{Category: "Bench", Weight: 100, Reps: 1},
		{Category: "Bench", Weight: 90, Reps: 6},
		{Category: "Bench", Weight: 225, Unit: "lb", Reps: 1},
	} {
		if _, _, err := server.handleAddEntry(ctx, &mcp.CallToolRequest{}, in); err != nil {
			t.Fatalf("add entry failed: %v", err)
		}
	}

	res, err := server.handleSummaryResource(ctx, &mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var out struct {
		Categories []categorySummary `json:"categories"`
	}
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	var bench *categorySummary
	for i := range out.Categories {
		if out.Categories[i].Category.Name == "Bench" {
			bench = &out.Categories[i]
		}
	}
	if bench == nil {
		t.Fatal("Expected Bench in summary")
	}
	if bench.Entries != 3 {
		t.Errorf("Entries = %d, want 3", bench.Entries)
	}
	// 90 x 6 by Epley is 108, above both singles once converted to kg
	if bench.Best1RMKg == nil || *bench.Best1RMKg < 107.99 || *bench.Best1RMKg > 108.01 {
		t.Errorf("Best1RMKg = %v, want 108", bench.Best1RMKg)
	}
}
