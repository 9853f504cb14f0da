package repository_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trimwell/insight-service/internal/adapters/repository"
	"github.com/trimwell/insight-service/internal/core/domain"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference_ranges.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validCatalogJSON = `{
  "version": "2025-06",
  "last_updated": "2025-06-01T00:00:00Z",
  "metrics": {
    "hrv": {
      "name": "Heart Rate Variability",
      "unit": "ms",
      "higher_is_better": true,
      "ranges": [
        {"level": "poor", "min": 0, "max": 35, "label": "Low", "color": "#F57C00", "comment": "Below the healthy range"},
        {"level": "fair", "min": 35, "max": 50, "label": "Moderate", "color": "#FBC02D", "comment": "Lower healthy range"},
        {"level": "good", "min": 50, "max": 150, "label": "Good", "color": "#7CB342", "comment": "Healthy variability"}
      ]
    }
  }
}`

func TestLoadReferenceCatalog_Valid(t *testing.T) {
	path := writeCatalogFile(t, validCatalogJSON)

	catalog, err := repository.LoadReferenceCatalog(path)

	require.NoError(t, err)
	require.NotNil(t, catalog)
	assert.Equal(t, "2025-06", catalog.Version)

	ref, ok := catalog.Lookup(domain.MetricHRV)
	require.True(t, ok)
	assert.Len(t, ref.Ranges, 3)

	evaluation := catalog.Evaluate(domain.MetricHRV, 42)
	assert.Equal(t, domain.StatusFair, evaluation.Status)
	assert.Equal(t, "Moderate", evaluation.Label)
}

func TestLoadReferenceCatalog_MissingFile(t *testing.T) {
	catalog, err := repository.LoadReferenceCatalog(filepath.Join(t.TempDir(), "missing.json"))

	assert.Nil(t, catalog)
	require.Error(t, err)

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "failed to read reference catalog")
}

func TestLoadReferenceCatalog_MalformedJSON(t *testing.T) {
	path := writeCatalogFile(t, `{"version": "broken"`)

	catalog, err := repository.LoadReferenceCatalog(path)

	assert.Nil(t, catalog)
	require.Error(t, err)

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "failed to parse reference catalog")
}

func TestLoadReferenceCatalog_InvalidRanges(t *testing.T) {
	// Overlapping ranges must fail validation at load time
	path := writeCatalogFile(t, `{
  "version": "bad",
  "last_updated": "2025-06-01T00:00:00Z",
  "metrics": {
    "hrv": {
      "name": "Heart Rate Variability",
      "unit": "ms",
      "higher_is_better": true,
      "ranges": [
        {"level": "poor", "min": 0, "max": 40, "label": "Low", "color": "#F57C00", "comment": ""},
        {"level": "good", "min": 35, "max": 80, "label": "Good", "color": "#7CB342", "comment": ""}
      ]
    }
  }
}`)

	catalog, err := repository.LoadReferenceCatalog(path)

	assert.Nil(t, catalog)
	require.Error(t, err)

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "invalid reference catalog")
	assert.Contains(t, cfgErr.Error(), "overlap")
}
