package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/newsfold/core"
	"github.com/gaurav-prasanna/newsfold/core/archive"
	"github.com/gaurav-prasanna/newsfold/mail"
)

const listLookbackDays = 30

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent messages from the newsletter sender",
	Long: `List shows up to 20 messages from the configured sender received in the
last 30 days, regardless of subject. Use it to check that the account and
sender filter are right.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(true); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	source, err := openMailbox(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	since, _ := mail.LookbackWindow(time.Now(), listLookbackDays)
	messages, err := source.List(cmd.Context(), core.MessageQuery{
		From:  cfg.Filter.From,
		Since: since,
		Limit: archive.DefaultListLimit,
	})
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		fmt.Fprintf(os.Stdout, "No messages from %s in the last %d days.\n", cfg.Filter.From, listLookbackDays)
		return nil
	}

	fmt.Fprintf(os.Stdout, "Messages from %s in the last %d days (max %d):\n\n",
		cfg.Filter.From, listLookbackDays, archive.DefaultListLimit)
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		fmt.Fprintf(os.Stdout, "  Date: %s\n", m.Date.Format(time.RFC1123Z))
		fmt.Fprintf(os.Stdout, "  Subject: %s\n", m.Subject)
		fmt.Fprintf(os.Stdout, "  Id: %s\n\n", mail.ProcessedID(m.ID, m.UID))
	}
	return nil
}
