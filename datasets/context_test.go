package datasets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeContext writes <root>/context/<name> with the given contents.
func writeContext(t *testing.T, root, name, contents string) {
	t.Helper()
	dir := filepath.Join(root, ContextDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
}

func TestBuildLookupTable_RegistersPromptByStem(t *testing.T) {
	root := t.TempDir()
	writeContext(t, root, "seqA.txt", "the red chair scene\n")

	lt, err := BuildLookupTable(root)
	require.NoError(t, err)

	stem, err := lt.Stem("the red chair scene")
	require.NoError(t, err)
	assert.Equal(t, "seqA", stem)
	assert.Equal(t, 1, lt.Len())
}

func TestBuildLookupTable_TrimsAndUsesFirstLine(t *testing.T) {
	root := t.TempDir()
	writeContext(t, root, "MPH112_00151_01.txt", "  sit on the sofa \nsecond line ignored\n")
	writeContext(t, root, "multi.dot.name.txt", "walk to the bed")

	lt, err := BuildLookupTable(root)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"sit on the sofa": "MPH112_00151_01",
		"walk to the bed": "multi",
	}, lt.Entries())
}

func TestBuildLookupTable_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeContext(t, root, "a.txt", "prompt a")
	writeContext(t, root, "b.txt", "prompt b")
	writeContext(t, root, "c.txt", "prompt c")

	first, err := BuildLookupTable(root)
	require.NoError(t, err)
	second, err := BuildLookupTable(root)
	require.NoError(t, err)
	assert.Equal(t, first.Entries(), second.Entries())
}

func TestBuildLookupTable_DuplicatePromptLastWins(t *testing.T) {
	root := t.TempDir()
	writeContext(t, root, "first.txt", "same prompt")
	writeContext(t, root, "second.txt", "same prompt")

	lt, err := BuildLookupTable(root)
	require.NoError(t, err)
	stem, err := lt.Stem("same prompt")
	require.NoError(t, err)
	assert.Equal(t, "second", stem)
	assert.Equal(t, []string{"same prompt"}, lt.Duplicates())
}

func TestBuildLookupTable_Errors(t *testing.T) {
	t.Run("missing context dir", func(t *testing.T) {
		_, err := BuildLookupTable(t.TempDir())
		assert.Error(t, err)
	})
	t.Run("empty file", func(t *testing.T) {
		root := t.TempDir()
		writeContext(t, root, "empty.txt", "")
		_, err := BuildLookupTable(root)
		assert.Error(t, err)
	})
	t.Run("blank first line", func(t *testing.T) {
		root := t.TempDir()
		writeContext(t, root, "blank.txt", "   \nprompt on line two")
		_, err := BuildLookupTable(root)
		assert.Error(t, err)
	})
}

func TestLookupTable_UnknownPrompt(t *testing.T) {
	root := t.TempDir()
	writeContext(t, root, "seqA.txt", "known")

	lt, err := BuildLookupTable(root)
	require.NoError(t, err)
	_, err = lt.Stem("unknown")
	assert.Error(t, err)
}
