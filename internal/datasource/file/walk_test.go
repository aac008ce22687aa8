package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindFiles_RecursiveAndFiltered(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "A", "B", "TRAAA.json"), "{}")
	writeFile(t, filepath.Join(root, "A", "TRAAB.json"), "{}")
	writeFile(t, filepath.Join(root, "A", "notes.txt"), "skip")
	writeFile(t, filepath.Join(root, "A", "upper.JSON"), "skip")
	writeFile(t, filepath.Join(root, "2018-11-01-events.json"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty.json"), 0o755))

	got, err := Collect(FindFiles(root, ".json"))
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "2018-11-01-events.json"),
		filepath.Join(root, "A", "B", "TRAAA.json"),
		filepath.Join(root, "A", "TRAAB.json"),
	}
	require.Equal(t, want, got)
}

func TestFindFiles_Restartable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"), "{}")
	writeFile(t, filepath.Join(root, "sub", "b.json"), "{}")

	seq := FindFiles(root, ".json")
	first, err := Collect(seq)
	require.NoError(t, err)

	// Files added between walks show up on the next range over seq.
	writeFile(t, filepath.Join(root, "sub", "c.json"), "{}")
	second, err := Collect(seq)
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 3)
	require.Equal(t, first, second[:2])
}

func TestFindFiles_EarlyBreak(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, n := range []string{"a.json", "b.json", "c.json"} {
		writeFile(t, filepath.Join(root, n), "{}")
	}

	var seen int
	for _, err := range FindFiles(root, ".json") {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(t, 2, seen)
}

func TestFindFiles_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Collect(FindFiles(filepath.Join(t.TempDir(), "missing"), ".json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindFiles_EmptyTree(t *testing.T) {
	t.Parallel()

	got, err := Collect(FindFiles(t.TempDir(), ".json"))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindFiles_FollowsFileSymlinks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "target.json"), "{}")
	writeFile(t, filepath.Join(root, "a.json"), "{}")
	if err := os.Symlink(filepath.Join(outside, "target.json"), filepath.Join(root, "b.json")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing.json"), filepath.Join(root, "c.json")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "dir.json")))

	got, err := Collect(FindFiles(root, ".json"))
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "b.json"),
	}, got)
}
