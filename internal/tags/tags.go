// Package tags loads friendly names for sensor addresses from a YAML file:
//
//	"CB:B8:33:4C:88:4F": sauna
//	"F1:02:A3:11:09:7E": balcony
package tags

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ruuvi-gateway/internal/utils"
)

// Aliases maps normalized BLE addresses to names.
type Aliases map[string]string

// Load reads an alias file. An empty path yields an empty set.
func Load(path string) (Aliases, error) {
	if path == "" {
		return Aliases{}, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tags file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML alias data.
func Parse(b []byte) (Aliases, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	out := make(Aliases, len(raw))
	for addr, name := range raw {
		out[utils.NormalizeAddress(addr)] = name
	}
	return out, nil
}

// Lookup returns the alias of addr, or "" when none is configured.
func (a Aliases) Lookup(addr string) string {
	return a[utils.NormalizeAddress(addr)]
}
