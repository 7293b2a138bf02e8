// Package output handles file naming and writing for newsfold.
// Documents live directly in the output directory, named
// <prefix>_<date token><ext>; images and attachments live in the date
// folder below it.
package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Writer writes documents, images and attachments to disk. It implements
// core.FileStore.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// MkdirAll creates dir and any missing parents.
func (w *Writer) MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// CreateExclusive writes data to a file that must not exist yet. A failed
// write removes the partial file.
func (w *Writer) CreateExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing file %s: %w", path, err)
	}
	return nil
}

// DateDir returns the folder images for a date token are stored in.
func (w *Writer) DateDir(token string) string {
	return filepath.Join(w.OutputDir, token)
}

// DocumentPath returns the first free document path for prefix and token.
// Example: 注目AIニュース_20260201.md, then 注目AIニュース_20260201_2.md.
func (w *Writer) DocumentPath(prefix, token, ext string) string {
	base := fmt.Sprintf("%s_%s", prefix, token)
	path := filepath.Join(w.OutputDir, base+ext)
	for n := 2; exists(path); n++ {
		path = filepath.Join(w.OutputDir, fmt.Sprintf("%s_%d%s", base, n, ext))
	}
	return path
}

// WriteDocument writes a rendered document under the first free name.
func (w *Writer) WriteDocument(prefix, token, ext string, data []byte) (string, error) {
	for {
		path := w.DocumentPath(prefix, token, ext)
		err := w.CreateExclusive(path, data)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
}

// WriteAttachment stores the index-th attachment of a message in dir as
// 添付<index><ext>, adding _1, _2 ... on collision. It returns the file name.
func (w *Writer) WriteAttachment(dir string, index int, ext string, data []byte) (string, error) {
	if err := w.MkdirAll(dir); err != nil {
		return "", err
	}
	for suffix := 0; ; suffix++ {
		name := fmt.Sprintf("添付%d%s", index, ext)
		if suffix > 0 {
			name = fmt.Sprintf("添付%d_%d%s", index, suffix, ext)
		}
		err := w.CreateExclusive(filepath.Join(dir, name), data)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
