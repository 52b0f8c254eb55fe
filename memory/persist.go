package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LoadHistory reads a JSON transcript. A missing file is not an error and
// yields a nil slice.
func LoadHistory(path string) ([]Turn, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return turns, nil
}

// SaveHistory writes turns as indented JSON, creating parent directories.
func SaveHistory(path string, turns []Turn) error {
	if turns == nil {
		turns = []Turn{}
	}
	b, err := json.MarshalIndent(turns, "", " ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}
