package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/trimwell/insight-service/internal/core/domain"
)

// LoadReferenceCatalog reads a reference range catalog from a JSON file and
// validates it before handing it to the evaluator. A broken catalog file must
// fail startup rather than silently misclassify readings.
func LoadReferenceCatalog(path string) (*domain.ReferenceCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ConfigError{Source: path, Err: fmt.Errorf("failed to read reference catalog: %w", err)}
	}

	var catalog domain.ReferenceCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, &domain.ConfigError{Source: path, Err: fmt.Errorf("failed to parse reference catalog: %w", err)}
	}

	if err := catalog.Validate(); err != nil {
		return nil, &domain.ConfigError{Source: path, Err: fmt.Errorf("invalid reference catalog: %w", err)}
	}

	return &catalog, nil
}
