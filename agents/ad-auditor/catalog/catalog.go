// Package catalog reads the CSV catalogs that drive batch runs.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"adindex/internal/models"
)

// Load parses a catalog CSV. The header row is matched case-insensitively;
// a url column is required, title/brand/campaign are optional.
func Load(path string) ([]models.CatalogRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["url"]; !ok {
		return nil, fmt.Errorf("catalog %s has no url column", path)
	}

	var rows []models.CatalogRow
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		// A malformed row must fail the whole load: dropping it silently
		// would shrink the batch without a summary entry for the lost rows.
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
		row := models.CatalogRow{
			URL:      field(fields, columns, "url"),
			Title:    field(fields, columns, "title"),
			Brand:    field(fields, columns, "brand"),
			Campaign: field(fields, columns, "campaign"),
		}
		if row.URL == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(fields []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}

// DeriveBrandCampaign splits a "Brand // Campaign" catalog title into its
// parts. Titles without the separator yield the first word as brand and
// the full title as campaign.
func DeriveBrandCampaign(title string) (brand, campaign string) {
	if strings.Contains(title, "//") {
		parts := strings.SplitN(title, "//", 2)
		brand = strings.TrimSpace(parts[0])
		campaign = strings.TrimSpace(parts[1])
		return brand, campaign
	}

	words := strings.Fields(title)
	if len(words) == 0 {
		return "Unknown", ""
	}
	return words[0], title
}

// Slice applies the batch start offset and optional count limit.
func Slice(rows []models.CatalogRow, start, count int) []models.CatalogRow {
	if start < 0 {
		start = 0
	}
	if start >= len(rows) {
		return nil
	}
	rows = rows[start:]
	if count > 0 && count < len(rows) {
		rows = rows[:count]
	}
	return rows
}
