// Package retrieval ranks candidate flowcharts for a patient's opening
// concern using text embeddings stored in Postgres (pgvector).
package retrieval

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// CatalogEntry is one line of the flowchart description catalog. The on-disk
// format is a de-facto contract with the flowchart data set:
//
//	AgeRange - Sex - Flowchart Name - Description
//
// The raw line is kept because the selection prompt quotes it verbatim.
type CatalogEntry struct {
	Name        string
	Description string
	Raw         string
}

// ParseCatalogLine extracts the flowchart name and description from a catalog
// line. The name is the first segment ending in "Flowchart"; everything after
// it is the description. Returns ok=false for lines that do not carry a name.
func ParseCatalogLine(line string) (entry CatalogEntry, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return CatalogEntry{}, false
	}
	parts := strings.Split(line, " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	nameIdx := -1
	for i, p := range parts {
		if strings.HasSuffix(p, "Flowchart") {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return CatalogEntry{}, false
	}
	return CatalogEntry{
		Name:        parts[nameIdx],
		Description: strings.Join(parts[nameIdx+1:], " - "),
		Raw:         line,
	}, true
}

// LoadCatalog reads and parses the description catalog file, skipping
// malformed lines.
func LoadCatalog(path string) ([]CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var entries []CatalogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if entry, ok := ParseCatalogLine(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return entries, nil
}
