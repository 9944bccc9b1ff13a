package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"twitterapi", "badger", "apify", "xweb"}, c.Providers.Order)
	assert.Equal(t, 0.25, c.Network.BatchFraction)
	assert.Equal(t, 400, c.Network.MaxFollowings)
	assert.Equal(t, 50, c.Network.MinPostText)
	assert.Equal(t, "data/network_state.json", c.Paths.StateFile)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
network:
  handle: someone
  batch_fraction: 0.5
  verified_only: true
providers:
  order: [badger, xweb]
  scrapebadger_keys: [k1, k2]
paths:
  skills_dir: out/skills
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "someone", c.Network.Handle)
	assert.Equal(t, 0.5, c.Network.BatchFraction)
	assert.True(t, c.Network.VerifiedOnly)
	assert.Equal(t, []string{"badger", "xweb"}, c.Providers.Order)
	assert.Equal(t, []string{"k1", "k2"}, c.Providers.ScrapeBadgerKeys)
	assert.Equal(t, "out/skills", c.Paths.SkillsDir)
	// Defaults still fill untouched fields.
	assert.Equal(t, 30, c.Network.MaxPosts)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, c.Providers.Order)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  twitterapi_keys: [filekey]\n"), 0o644))

	t.Setenv("TWITTERAPI_IO_KEYS", "a, b ,c")
	t.Setenv("GEMINI_API_KEY", "gem")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, c.Providers.TwitterAPIKeys)
	assert.Equal(t, "gem", c.Classifier.GeminiAPIKey)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  order: [nitter]\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestValidateRejectsBadFraction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  batch_fraction: 1.5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_fraction")
}
