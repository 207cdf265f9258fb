package pathsafe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRoot builds a root directory with a nested layout:
//
//	root/
//	  docs/
//	    reports/
//	  secrets/
func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "reports"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "secrets"), 0o750))
	return root
}

func TestResolve_EmptyReturnsRoot(t *testing.T) {
	root := newTestRoot(t)
	r := NewResolver(root)

	assert.Equal(t, root, r.Resolve(""))
}

func TestResolve_ValidSubdirectory(t *testing.T) {
	root := newTestRoot(t)
	r := NewResolver(root)

	got := r.Resolve("docs/reports")

	canonRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(canonRoot, "docs", "reports"), got)
}

func TestResolve_TraversalFallsBackToRoot(t *testing.T) {
	root := newTestRoot(t)
	r := NewResolver(root)

	traversals := []string{
		"..",
		"../",
		"a/../../etc",
		"docs/../../../etc/passwd",
		"docs//reports",
		"..secret",
	}
	for _, rel := range traversals {
		assert.Equal(t, root, r.Resolve(rel), "relative path %q must fail closed", rel)
	}
}

func TestResolve_NonexistentFallsBackToRoot(t *testing.T) {
	root := newTestRoot(t)
	r := NewResolver(root)

	assert.Equal(t, root, r.Resolve("no/such/dir"))
}

func TestResolve_SymlinkEscapingRootFallsBackToRoot(t *testing.T) {
	root := newTestRoot(t)
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	r := NewResolver(root)

	assert.Equal(t, root, r.Resolve("escape"))
}

func TestIsWithinRoot_Directory(t *testing.T) {
	root := newTestRoot(t)
	r := NewResolver(root)

	assert.True(t, r.IsWithinRoot(filepath.Join(root, "docs")))
	assert.True(t, r.IsWithinRoot(filepath.Join(root, "docs", "reports")))
}

func TestIsWithinRoot_RejectsOutside(t *testing.T) {
	root := newTestRoot(t)
	r := NewResolver(root)

	assert.False(t, r.IsWithinRoot(t.TempDir()))
	assert.False(t, r.IsWithinRoot(filepath.Join(root, "missing")))
}

func TestIsWithinRoot_RejectsSymlinkEvenInsideRoot(t *testing.T) {
	root := newTestRoot(t)
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(filepath.Join(root, "docs"), link))
	r := NewResolver(root)

	assert.False(t, r.IsWithinRoot(link))
}

func TestIsWithinRoot_RejectsPlainFile(t *testing.T) {
	root := newTestRoot(t)
	file := filepath.Join(root, "docs", "note.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	r := NewResolver(root)

	// File permission checks go through the parent directory, never the file.
	assert.False(t, r.IsWithinRoot(file))
	assert.True(t, r.IsWithinRoot(filepath.Dir(file)))
}

func TestIsWithinRoot_PrefixCollisionSibling(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "secure")
	sibling := filepath.Join(parent, "secure2")
	require.NoError(t, os.MkdirAll(root, 0o750))
	require.NoError(t, os.MkdirAll(sibling, 0o750))
	r := NewResolver(root)

	// A raw string-prefix check would pass this; segment comparison must not.
	assert.False(t, r.IsWithinRoot(sibling))
}

func TestRelativeDir(t *testing.T) {
	root := newTestRoot(t)
	r := NewResolver(root)
	canonRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	rel, ok := r.RelativeDir(canonRoot)
	require.True(t, ok)
	assert.Equal(t, "", rel)

	rel, ok = r.RelativeDir(filepath.Join(canonRoot, "docs", "reports"))
	require.True(t, ok)
	assert.Equal(t, "docs/reports", rel)

	_, ok = r.RelativeDir(filepath.Dir(canonRoot))
	assert.False(t, ok)
}
