package seeds

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gapcatalog/builder/internal/models"
)

// LoadPlatforms reads the platform membership TSV: one "id<TAB>platform"
// pair per line, blank lines and #-comments skipped. A study listed under
// several platforms gets all of them, in file order and deduplicated.
func LoadPlatforms(path string) (map[string][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open platforms file: %w", err)
	}
	defer file.Close()

	memberships := make(map[string][]string)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := strings.Split(text, "\t")
		if len(parts) < 2 {
			return nil, fmt.Errorf("platforms file %s line %d: expected id<TAB>platform", path, line)
		}

		id := strings.TrimSpace(parts[0])
		platform := strings.TrimSpace(parts[1])
		if id == "" || platform == "" {
			continue
		}

		key := id + "\t" + platform
		if seen[key] {
			continue
		}
		seen[key] = true
		memberships[id] = append(memberships[id], platform)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read platforms file %s: %w", path, err)
	}

	return memberships, nil
}

// AppendPlatforms adds assignments to the membership TSV, creating the
// file when absent. Callers are expected to pass only rows not already in
// the file; the sync job computes that diff.
func AppendPlatforms(path string, rows []models.PlatformAssignment) error {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]models.PlatformAssignment, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DbGapID != sorted[j].DbGapID {
			return sorted[i].DbGapID < sorted[j].DbGapID
		}
		return sorted[i].Platform < sorted[j].Platform
	})

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open platforms file for append: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, row := range sorted {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", row.DbGapID, row.Platform); err != nil {
			return fmt.Errorf("append platform row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush platforms file: %w", err)
	}
	return nil
}
