// Package cmd implements the CLI commands for newsfold using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gaurav-prasanna/newsfold/config"
)

// Persistent flag variables.
var (
	flagConfig  string
	flagVerbose bool
	flagLogJSON bool
	flagOutput  string
	flagFormat  string
)

// Set by the root PersistentPreRunE before any subcommand runs.
var (
	cfg    *config.Config
	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "newsfold",
	Short: "Archive the weekly AI news mail as sectioned Markdown",
	Long: `newsfold fetches the weekly "注目AIニュース" newsletter from an IMAP mailbox,
stores every section's figures in numbered folders, and writes one document
per issue that references them in reading order.

Usage:
  newsfold save [flags]
  newsfold list
  newsfold convert <file.eml|file.html>
  newsfold login`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: ~/.config/newsfold/config.yaml)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Log as JSON")
	pf.StringVarP(&flagOutput, "output", "o", "", "Save folder (overrides save_path)")
	pf.StringVar(&flagFormat, "format", "", "Document format: markdown, json or pdf")
}

// setup configures logging and loads the configuration.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	if flagVerbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	if flagLogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	pf := cmd.Root().PersistentFlags()
	loaded, err := config.Load(config.Options{
		Path:   flagConfig,
		DotEnv: []string{".env"},
		Flags: map[string]*pflag.Flag{
			"save_path":     pf.Lookup("output"),
			"render.format": pf.Lookup("format"),
		},
	})
	if err != nil {
		return err
	}
	cfg = loaded
	logger.WithField("save_path", cfg.SavePath).Debug("configuration loaded")
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
