package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFallback = `
version = "2025.01-2"
updated_at = "2025-01-10"

[indices.IBOV]
symbol = "^BVSP"
base_value = 121500.0
drift_pct = 0.1
amplitude_pct = 0.3
emergency_value = 119000.0

[indices.SMLL]
symbol = "SMAL11"
scale = 19.8
base_value = 1980.0
emergency_value = 1900.0
`

func TestLoadFallbackConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFallback), 0o644))

	cfg, err := LoadFallbackConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "2025.01-2", cfg.Version)
	assert.Equal(t, []string{IndexIBOV, IndexSMLL}, cfg.Names())

	ibov := cfg.Indices[IndexIBOV]
	assert.Equal(t, "^BVSP", ibov.Symbol)
	assert.Equal(t, 1.0, ibov.Scale) // defaulted
	assert.Equal(t, 121500.0, ibov.BaseValue)
	assert.Equal(t, 119000.0, ibov.EmergencyValue)

	assert.Equal(t, 19.8, cfg.Indices[IndexSMLL].Scale)
}

func TestLoadFallbackConfig_MissingFile(t *testing.T) {
	_, err := LoadFallbackConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestParseFallbackConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"no version":  "[indices.IBOV]\nsymbol = \"^BVSP\"\n",
		"no indices":  "version = \"1\"\n",
		"no symbol":   "version = \"1\"\n[indices.IBOV]\nbase_value = 1.0\n",
		"negative":    "version = \"1\"\n[indices.IBOV]\nsymbol = \"^BVSP\"\nbase_value = -1.0\n",
		"broken toml": "version = ",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFallbackConfig([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestDefaultFallbackConfig(t *testing.T) {
	cfg := DefaultFallbackConfig()
	require.NoError(t, cfg.normalise())
	assert.Equal(t, "^BVSP", cfg.Indices[IndexIBOV].Symbol)
	assert.Equal(t, "SMAL11", cfg.Indices[IndexSMLL].Symbol)
	assert.Greater(t, cfg.Indices[IndexSMLL].Scale, 1.0)
}
