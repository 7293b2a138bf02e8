package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/newsfold/core/archive"
	"github.com/gaurav-prasanna/newsfold/ledger"
	"github.com/gaurav-prasanna/newsfold/mail"
)

var (
	flagDate           string
	flagForce          bool
	flagDryRun         bool
	flagAllowForwarded bool
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Archive new newsletters from the mailbox",
	Long: `Save searches the mailbox for the newsletter, skips issues that were already
archived, and writes each new issue as <prefix>_<YYYYMMDD> next to a date folder
holding its attachments and per-section figures. YYYYMMDD is the Sunday of the
week the issue was sent.

Examples:
  newsfold save
  newsfold save --output ~/Drive/ai-news
  newsfold save --date 2026-02-06 --force
  newsfold save --dry-run --allow-forwarded`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringVar(&flagDate, "date", "", "Only messages sent on this day (YYYY-MM-DD)")
	saveCmd.Flags().BoolVar(&flagForce, "force", false, "Re-save messages that were already processed")
	saveCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Show what would be saved without writing")
	saveCmd.Flags().BoolVar(&flagAllowForwarded, "allow-forwarded", false, "Match by subject only, from any sender")
}

func runSave(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate(true); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	opts := archive.RunOptions{
		From:           cfg.Filter.From,
		Subject:        cfg.Filter.Subject,
		AllowForwarded: flagAllowForwarded,
		LookbackDays:   cfg.Filter.LookbackDays,
		Force:          flagForce,
		DryRun:         flagDryRun,
	}
	if flagDate != "" {
		day, err := mail.ParseDay(flagDate, time.Local)
		if err != nil {
			return err
		}
		opts.Day = day
	}

	source, err := openMailbox(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	processed, err := ledger.Open(cfg.Ledger.Backend, cfg.Ledger.Path, cfg.SavePath)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer processed.Close()

	saver, err := newSaver(cfg, source, processed)
	if err != nil {
		return err
	}

	if flagDryRun {
		fmt.Fprintf(os.Stdout, "[dry-run] save folder: %s\n", cfg.SavePath)
	}

	sum, err := saver.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	switch {
	case sum.Found == 0 && flagDate != "":
		fmt.Fprintf(os.Stdout, "No matching messages (date: %s)\n", flagDate)
	case sum.Found == 0:
		fmt.Fprintf(os.Stdout, "No matching messages in the last %d days\n", cfg.Filter.LookbackDays)
	case flagDryRun:
		fmt.Fprintf(os.Stdout, "[dry-run] %d to save, %d skipped\n", sum.Planned, sum.Skipped)
	default:
		fmt.Fprintf(os.Stdout, "Saved %d, skipped %d, failed %d\n", sum.Saved, sum.Skipped, sum.Failed)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d messages failed\n", sum.Failed, sum.Found)
	}
	return nil
}
