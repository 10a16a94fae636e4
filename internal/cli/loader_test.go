package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
store: /var/lib/mongosql/queries.db
format: json
uri: mongodb://localhost:27017
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/mongosql/queries.db", cfg.Store)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "mongodb://localhost:27017", cfg.URI)
}

func TestLoadConfig_PartialIsValid(t *testing.T) {
	path := writeConfig(t, "format: text\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Format)
	assert.Empty(t, cfg.Store)
	assert.Empty(t, cfg.URI)
}

func TestLoadConfig_SRVSchemeAccepted(t *testing.T) {
	path := writeConfig(t, "uri: mongodb+srv://cluster0.example.net\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb+srv://cluster0.example.net", cfg.URI)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"bad format value", "format: xml\n"},
		{"empty store", `store: ""` + "\n"},
		{"non-mongodb uri", "uri: http://localhost:27017\n"},
		{"unknown key", "stroe: /tmp/q.db\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLoadConfig_MissingExplicitPathErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoadConfig_MissingDefaultIsZeroConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "store: [unclosed\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}
