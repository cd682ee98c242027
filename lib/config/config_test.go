package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nptay1999/google-map-javascript-api/lib/loader"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "maps.yaml", `
apiKey: test-key
libraries:
  - places
  - drawing
language: en
region: US
agent:
  command: ./maps-agent
  args: ["--verbose"]
  timeout: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, []string{"places", "drawing"}, cfg.Libraries)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, "US", cfg.Region)
	require.NotNil(t, cfg.Agent)
	assert.Equal(t, "./maps-agent", cfg.Agent.Command)
	assert.Equal(t, []string{"--verbose"}, cfg.Agent.Args)
	assert.Equal(t, 5*time.Second, cfg.Agent.Timeout.Std())
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "maps.json", `{
  "apiKey": "test-key",
  "libraries": ["places"],
  "agent": {"command": "./maps-agent", "timeout": "250ms"}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, []string{"places"}, cfg.Libraries)
	assert.Empty(t, cfg.Language)
	require.NotNil(t, cfg.Agent)
	assert.Equal(t, 250*time.Millisecond, cfg.Agent.Timeout.Std())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeFile(t, "maps.yaml", `
apiKey: test-key
agent:
  command: ./maps-agent
  timeout: fast
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestNewFromURL(t *testing.T) {
	path := writeFile(t, "maps.yaml", `
apiKey: url-key
region: VN
`)

	cfg, err := NewFromURL(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "url-key", cfg.APIKey)
	assert.Equal(t, "VN", cfg.Region)
}

func TestNewFromURL_Missing(t *testing.T) {
	_, err := NewFromURL(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := &Config{
		APIKey:    "test-key",
		Libraries: []string{"places", "geometry"},
		Language:  "vi",
		Region:    "VN",
	}

	assert.Equal(t, loader.Options{
		Libraries: []string{"places", "geometry"},
		Language:  "vi",
		Region:    "VN",
	}, cfg.Options())
}

func TestValidate(t *testing.T) {
	require.Error(t, (&Config{}).Validate())
	require.NoError(t, (&Config{APIKey: "k"}).Validate())
}
