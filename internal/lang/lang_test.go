package lang_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/chatible/internal/lang"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	m, err := lang.Load("")
	require.NoError(t, err)
	assert.Equal(t, lang.Default(), m)
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vi.yaml")
	content := `
keywords:
  start: "Bat Dau"
  gender_prefix: "Tim"
waiting: "Dang tim..."
fake_marker: " [BOT] "
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := lang.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "batdau", m.Keywords.Start)
	assert.Equal(t, "tim", m.Keywords.GenderPrefix)
	assert.Equal(t, "Dang tim...", m.Waiting)
	assert.Equal(t, "[bot]", m.FakeMarker)
	// untouched fields keep defaults
	assert.Equal(t, lang.Default().Keywords.Help, m.Keywords.Help)
	assert.Equal(t, lang.Default().Help, m.Help)
}

func TestLoadErrors(t *testing.T) {
	_, err := lang.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords: [1, 2"), 0o644))
	_, err = lang.Load(path)
	assert.Error(t, err)
}

func TestNormalizeCommand(t *testing.T) {
	assert.Equal(t, "findmale", lang.NormalizeCommand("Find Male"))
	assert.Equal(t, "", lang.NormalizeCommand("   "))
}
