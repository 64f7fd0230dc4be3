// ABOUTME: Export and import functionality for weight tracking data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/liftlog/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for one user's data.
type ExportData struct {
	Version    string             `json:"version" yaml:"version"`
	ExportedAt time.Time          `json:"exported_at" yaml:"exported_at"`
	Tool       string             `json:"tool" yaml:"tool"`
	User       string             `json:"user" yaml:"user"`
	Categories []*models.Category `json:"categories" yaml:"categories"`
	Entries    []*models.Entry    `json:"entries" yaml:"entries"`
}

// ImportSummary holds counts of imported records.
type ImportSummary struct {
	Categories int
	Entries    int
}

// GetAllData retrieves all of a user's data for export.
func (d *DB) GetAllData(userID int64) (*ExportData, error) {
	user, err := d.GetUser(userID)
	if err != nil {
		return nil, err
	}

	categories, err := d.ListCategories(userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	entries, err := d.ListEntries(EntryFilter{UserID: userID, Window: models.WindowAll})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "liftlog",
		User:       user.Username,
		Categories: categories,
		Entries:    entries,
	}, nil
}

// ImportData imports an export into userID's data. Categories are matched by
// name; entries are re-pointed at the matched or newly created category.
func (d *DB) ImportData(userID int64, data *ExportData) (*ImportSummary, error) {
	summary := &ImportSummary{}
	categoryIDs := make(map[int64]int64, len(data.Categories))

	for _, c := range data.Categories {
		existing, err := d.GetCategoryByName(userID, c.Name)
		if err == nil {
			categoryIDs[c.ID] = existing.ID
			continue
		}

		imported := *c
		imported.UserID = userID
		if imported.CreatedAt.IsZero() {
			imported.CreatedAt = time.Now().UTC()
		}
		if err := d.CreateCategory(&imported); err != nil {
			return summary, fmt.Errorf("import category %q: %w", c.Name, err)
		}
		categoryIDs[c.ID] = imported.ID
		summary.Categories++
	}

	for _, e := range data.Entries {
		categoryID, ok := categoryIDs[e.CategoryID]
		if !ok {
			return summary, fmt.Errorf("import entry %d: unknown category %d", e.ID, e.CategoryID)
		}
		imported := *e
		imported.UserID = userID
		imported.CategoryID = categoryID
		if err := d.CreateEntry(&imported); err != nil {
			return summary, fmt.Errorf("import entry %d: %w", e.ID, err)
		}
		summary.Entries++
	}

	return summary, nil
}

// ExportJSON exports all of a user's data as JSON.
func (d *DB) ExportJSON(userID int64) ([]byte, error) {
	data, err := d.GetAllData(userID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ImportJSON imports data from JSON bytes.
func (d *DB) ImportJSON(userID int64, raw []byte) (*ImportSummary, error) {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return d.ImportData(userID, &data)
}

// ExportYAML exports all of a user's data as YAML, with entries grouped by category.
func (d *DB) ExportYAML(userID int64) ([]byte, error) {
	data, err := d.GetAllData(userID)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string                  `yaml:"version"`
		ExportedAt string                  `yaml:"exported_at"`
		Tool       string                  `yaml:"tool"`
		User       string                  `yaml:"user"`
		Categories map[string]yamlCategory `yaml:"categories"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		User:       data.User,
		Categories: make(map[string]yamlCategory, len(data.Categories)),
	}

	names := make(map[int64]string, len(data.Categories))
	for _, c := range data.Categories {
		names[c.ID] = c.Name
		yamlData.Categories[c.Name] = yamlCategory{Kind: c.Kind()}
	}

	for _, e := range data.Entries {
		name := names[e.CategoryID]
		yc := yamlData.Categories[name]
		ye := yamlEntry{
			Weight:    e.Weight,
			Unit:      e.Unit,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.Reps != nil {
			ye.Reps = *e.Reps
		}
		if e.Notes != nil {
			ye.Notes = *e.Notes
		}
		yc.Entries = append(yc.Entries, ye)
		yamlData.Categories[name] = yc
	}

	return yaml.Marshal(yamlData)
}

type yamlCategory struct {
	Kind    string      `yaml:"kind"`
	Entries []yamlEntry `yaml:"entries,omitempty"`
}

type yamlEntry struct {
	Weight    float64 `yaml:"weight"`
	Unit      string  `yaml:"unit"`
	Reps      int     `yaml:"reps,omitempty"`
	CreatedAt string  `yaml:"created_at"`
	Notes     string  `yaml:"notes,omitempty"`
}

// ExportMarkdown exports a user's data as Markdown, one table per category.
func (d *DB) ExportMarkdown(userID int64, window models.Window) (string, error) {
	categories, err := d.ListCategories(userID)
	if err != nil {
		return "", err
	}
	entries, err := d.ListEntries(EntryFilter{UserID: userID, Window: window})
	if err != nil {
		return "", err
	}

	grouped := make(map[int64][]*models.Entry)
	for _, e := range entries {
		grouped[e.CategoryID] = append(grouped[e.CategoryID], e)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})

	var sb strings.Builder
	now := time.Now()

	sb.WriteString(fmt.Sprintf("# Liftlog Export - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	for _, c := range categories {
		rows := grouped[c.ID]
		if len(rows) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", c.Name))
		sb.WriteString("| Date | Weight | Reps | Notes |\n")
		sb.WriteString("|------|--------|------|-------|\n")
		for _, e := range rows {
			reps := ""
			if e.Reps != nil {
				reps = fmt.Sprintf("%d", *e.Reps)
			}
			notes := ""
			if e.Notes != nil {
				notes = *e.Notes
			}
			sb.WriteString(fmt.Sprintf("| %s | %.2f %s | %s | %s |\n",
				e.CreatedAt.Format("2006-01-02 15:04"), e.Weight, e.Unit, reps, notes))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
