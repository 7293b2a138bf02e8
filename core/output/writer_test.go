package output

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	w, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, w.OutputDir)
	assert.DirExists(t, dir)
}

func TestCreateExclusive(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	path := filepath.Join(w.OutputDir, "f.png")
	require.NoError(t, w.CreateExclusive(path, []byte("one")))

	err = w.CreateExclusive(path, []byte("two"))
	assert.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestWriteDocumentNeverOverwrites(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	first, err := w.WriteDocument("注目AIニュース", "20260201", ".md", []byte("a"))
	require.NoError(t, err)
	second, err := w.WriteDocument("注目AIニュース", "20260201", ".md", []byte("b"))
	require.NoError(t, err)

	assert.Equal(t, "注目AIニュース_20260201.md", filepath.Base(first))
	assert.Equal(t, "注目AIニュース_20260201_2.md", filepath.Base(second))
	assert.Equal(t, filepath.Join(w.OutputDir, "20260201"), w.DateDir("20260201"))
}

func TestWriteAttachmentSuffixes(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	dir := w.DateDir("20260201")

	name, err := w.WriteAttachment(dir, 1, ".pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "添付1.pdf", name)

	name, err = w.WriteAttachment(dir, 1, ".pdf", []byte("y"))
	require.NoError(t, err)
	assert.Equal(t, "添付1_1.pdf", name)

	assert.FileExists(t, filepath.Join(dir, "添付1.pdf"))
	assert.FileExists(t, filepath.Join(dir, "添付1_1.pdf"))
}
