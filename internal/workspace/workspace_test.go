package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(t.TempDir())
	require.NoError(t, err)
	return r
}

func TestResolveCreatesConfinedDir(t *testing.T) {
	r := newTestResolver(t)

	dir, err := r.Resolve("alice")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Root(), "alice"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveRejectsUnsafeUsers(t *testing.T) {
	r := newTestResolver(t)

	for _, user := range []string{"", "..", "../etc", "a/b", ".hidden", "x y", "/abs"} {
		_, err := r.Resolve(user)
		assert.Error(t, err, "user %q must be rejected", user)
	}
}

func TestEntryExists(t *testing.T) {
	r := newTestResolver(t)
	dir, err := r.Resolve("bob")
	require.NoError(t, err)

	ok, err := r.EntryExists(dir, "main.py")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('hi')\n"), 0o644))

	ok, err = r.EntryExists(dir, "main.py")
	require.NoError(t, err)
	assert.True(t, ok)

	// Subdirectories count as missing entries, not errors.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pkg"), 0o755))
	ok, err = r.EntryExists(dir, "pkg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntryExistsRejectsEscapes(t *testing.T) {
	r := newTestResolver(t)
	dir, err := r.Resolve("carol")
	require.NoError(t, err)

	_, err = r.EntryExists(dir, "../alice/secret.py")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = r.EntryExists(dir, "/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidEntry)

	_, err = r.EntryExists(dir, "")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}
