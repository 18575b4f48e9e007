package seeds

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadRegistryLinks reads the funding/registry link CSV (study_id,url).
// Studies without an entry simply have no external registry page.
func LoadRegistryLinks(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w", err)
	}
	defer file.Close()

	bufReader := bufio.NewReader(file)
	if bom, err := bufReader.Peek(3); err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	links := make(map[string]string)
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read registry file %s: %w", path, err)
		}
		if len(row) < 2 {
			continue
		}

		id := strings.TrimSpace(strings.TrimPrefix(row[0], "\uFEFF"))
		url := strings.TrimSpace(row[1])

		// tolerate an optional header row
		if first {
			first = false
			if strings.EqualFold(id, "study_id") {
				continue
			}
		}
		if id == "" || url == "" {
			continue
		}
		links[id] = url
	}

	return links, nil
}
