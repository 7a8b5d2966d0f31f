package plan

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a source configuration document from disk. The document is
// a JSON object with a "sources" array; paths inside it are validated during
// decoding, so a loaded Config is always structurally sound.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read source configuration: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a source configuration document.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse source configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid source configuration: %w", err)
	}
	return cfg, nil
}
