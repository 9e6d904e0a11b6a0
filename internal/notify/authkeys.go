package notify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// LoadAuthKeys reads a flat YAML map of credential name to value.
func LoadAuthKeys(path string) (AuthKeys, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read auth keys: %w", err)
	}
	keys := AuthKeys{}
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("parse auth keys %s: %w", path, err)
	}
	if keys == nil {
		keys = AuthKeys{}
	}
	return keys, nil
}
