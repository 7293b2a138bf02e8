package mail

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/newsfold/core"
)

// ReadFile loads a saved newsletter. .eml files are parsed as messages;
// .html and .htm files become a message whose subject is the file name
// and whose date is the file's modification time.
func ReadFile(path string) (*core.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".eml":
		msg, err := ParseMessage(f)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return msg, nil
	case ".html", ".htm":
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return &core.Message{
			Subject:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Date:     info.ModTime(),
			HTMLBody: string(data),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .eml or .html)", ext)
	}
}
