package extraction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/povarna/generative-ai-agents/api-discovery/internal/models"
)

// WriteCatalog writes the merged API catalog as one JSON array
func WriteCatalog(path string, specs []models.ApiSpec) error {
	if specs == nil {
		specs = []models.ApiSpec{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create catalog dir: %w", err)
	}

	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cannot write catalog %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("cannot replace catalog %s: %w", path, err)
	}

	return nil
}

// LoadCatalog reads a catalog written by WriteCatalog
func LoadCatalog(path string) ([]models.ApiSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog %s: %w", path, err)
	}

	var specs []models.ApiSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON %s: %w", path, err)
	}

	return specs, nil
}
