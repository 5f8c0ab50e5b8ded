package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveToFile writes tr as indented JSON, creating the parent directory.
func SaveToFile(path string, tr GenerationTrace) error {
	b, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("trace: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("trace: mkdir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("trace: write %q: %w", path, err)
	}
	return nil
}

func LoadFromFile(path string) (GenerationTrace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return GenerationTrace{}, fmt.Errorf("trace: read %q: %w", path, err)
	}
	var tr GenerationTrace
	if err := json.Unmarshal(b, &tr); err != nil {
		return GenerationTrace{}, fmt.Errorf("trace: unmarshal %q: %w", path, err)
	}
	return tr, nil
}
