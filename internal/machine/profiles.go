package machine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"machinelaw/internal/lawspec"
)

// profilesDoc is the on-disk shape of a seed file: records grouped per table.
type profilesDoc struct {
	Tables map[string][]map[string]any `yaml:"tables"`
}

// LoadFile seeds the store from a YAML document and returns the number of
// records added. Integer values are normalised the same way specification
// literals are, so seeded amounts compare cleanly against rule thresholds.
func (p *ProfileStore) LoadFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read profiles: %w", err)
	}

	var doc profilesDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("parse profiles: %w", err)
	}

	count := 0
	for table, records := range doc.Tables {
		for _, record := range records {
			normalised := make(map[string]any, len(record))
			for k, v := range record {
				normalised[k] = lawspec.NormalizeValue(v)
			}
			p.AddRecord(table, normalised)
			count++
		}
	}
	return count, nil
}
