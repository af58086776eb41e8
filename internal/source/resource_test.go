package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimResource_UniqueDirs(t *testing.T) {
	root := t.TempDir()

	r1, err := ClaimResource(root)
	require.NoError(t, err)
	r2, err := ClaimResource(root)
	require.NoError(t, err)

	assert.NotEqual(t, r1.Dir(), r2.Dir())
	assert.DirExists(t, r1.Dir())
	assert.DirExists(t, r2.Dir())
}

func TestResource_CloseIsIdempotent(t *testing.T) {
	root := t.TempDir()
	r, err := ClaimResource(root)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.True(t, r.Closed())
	assert.NoDirExists(t, r.Dir())

	require.NoError(t, r.Close())
}

func TestWipeRoot_ClearsExistingDirs(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "stale")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	require.NoError(t, WipeRoot(root))

	assert.NoDirExists(t, stale)
	assert.DirExists(t, root)
}
