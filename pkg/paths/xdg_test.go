package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortableHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("QLINK_HOME", home)

	assert.Equal(t, filepath.Join(home, "config", "qlink"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state", "qlink"), StateDir())
	assert.Equal(t, filepath.Join(home, "state", "qlink", "bindings.db"), BindingDatabasePath())
}

func TestXDGOverrides(t *testing.T) {
	t.Setenv("QLINK_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")

	assert.Equal(t, filepath.Join("/xdg/config", "qlink"), ConfigDir())
	assert.Equal(t, filepath.Join("/xdg/state", "qlink"), StateDir())
}

func TestEnsureDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("QLINK_HOME", home)

	assert.NoError(t, EnsureDirs())
	assert.DirExists(t, ConfigDir())
	assert.DirExists(t, StateDir())
}
