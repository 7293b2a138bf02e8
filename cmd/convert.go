package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/newsfold/core/extract"
	"github.com/gaurav-prasanna/newsfold/mail"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.eml|file.html>",
	Short: "Archive a saved newsletter file",
	Long: `Convert archives a newsletter saved to disk, exactly as save would archive it
from the mailbox. The processed-message ledger is not consulted or updated.
For HTML files the <title> (or the file name) becomes the subject and the
file's modification time the send date.

Examples:
  newsfold convert issue.eml
  newsfold convert issue.html --format pdf --output ./out`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(false); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	path := args[0]
	msg, err := mail.ReadFile(path)
	if err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		if title := extract.New().Title(msg.HTMLBody); title != "" {
			msg.Subject = title
		}
	}

	saver, err := newSaver(cfg, nil, nil)
	if err != nil {
		return err
	}
	out, err := saver.Archive(cmd.Context(), msg)
	if err != nil {
		return err
	}
	if out.Images == 0 {
		fmt.Fprintf(os.Stderr, "note: no section figures found in %s\n", filepath.Base(path))
	}
	return nil
}
