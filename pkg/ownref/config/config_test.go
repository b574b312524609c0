package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_NilMap verifies a nil map yields an empty, usable config.
func TestNew_NilMap(t *testing.T) {
	cfg := New(nil)
	assert.NotNil(t, cfg.Raw())
	assert.False(t, cfg.Has("anything"))
}

// TestConfig_String covers present, missing, and mistyped keys.
func TestConfig_String(t *testing.T) {
	cfg := New(map[string]any{
		"policy": "strict",
		"count":  3,
	})

	assert.Equal(t, "strict", cfg.String("policy", "cached"))
	assert.Equal(t, "cached", cfg.String("missing", "cached"))
	assert.Equal(t, "cached", cfg.String("count", "cached"))
}

// TestConfig_Bool covers present, missing, and mistyped keys.
func TestConfig_Bool(t *testing.T) {
	cfg := New(map[string]any{
		"metrics": true,
		"tracing": "yes",
	})

	assert.True(t, cfg.Bool("metrics", false))
	assert.False(t, cfg.Bool("missing", false))
	assert.True(t, cfg.Bool("missing", true))
	assert.False(t, cfg.Bool("tracing", false))
}

// TestConfig_Int covers the accepted numeric conversions.
func TestConfig_Int(t *testing.T) {
	cfg := New(map[string]any{
		"int":      3,
		"int64":    int64(4),
		"whole":    float64(5),
		"fraction": 5.5,
	})

	assert.Equal(t, 3, cfg.Int("int", 0))
	assert.Equal(t, 4, cfg.Int("int64", 0))
	assert.Equal(t, 5, cfg.Int("whole", 0))
	assert.Equal(t, 9, cfg.Int("fraction", 9))
	assert.Equal(t, 9, cfg.Int("missing", 9))
}

// TestConfig_Duration covers the accepted duration spellings.
func TestConfig_Duration(t *testing.T) {
	cfg := New(map[string]any{
		"string":  "30s",
		"seconds": 2,
		"float":   0.5,
		"native":  time.Minute,
		"bad":     "not-a-duration",
	})

	assert.Equal(t, 30*time.Second, cfg.Duration("string", 0))
	assert.Equal(t, 2*time.Second, cfg.Duration("seconds", 0))
	assert.Equal(t, 500*time.Millisecond, cfg.Duration("float", 0))
	assert.Equal(t, time.Minute, cfg.Duration("native", 0))
	assert.Equal(t, time.Second, cfg.Duration("bad", time.Second))
	assert.Equal(t, time.Second, cfg.Duration("missing", time.Second))
}

// TestFromYAML verifies YAML parsing.
func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte("policy: strict\nmetrics: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.String("policy", ""))
	assert.True(t, cfg.Bool("metrics", false))
}

// TestFromYAML_Invalid verifies malformed YAML errors out.
func TestFromYAML_Invalid(t *testing.T) {
	_, err := FromYAML([]byte("policy: [unclosed"))
	assert.Error(t, err)
}

// TestFromJSON verifies JSON parsing.
func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"policy": "cached", "tracing": true}`))
	require.NoError(t, err)
	assert.Equal(t, "cached", cfg.String("policy", ""))
	assert.True(t, cfg.Bool("tracing", false))
}

// TestFromFile verifies extension-based loading.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "ownref.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("policy: strict\n"), 0o644))

	cfg, err := FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.String("policy", ""))

	t.Run("unsupported extension", func(t *testing.T) {
		tomlPath := filepath.Join(dir, "ownref.toml")
		require.NoError(t, os.WriteFile(tomlPath, []byte("policy = 'strict'\n"), 0o644))
		_, err := FromFile(tomlPath)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FromFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
