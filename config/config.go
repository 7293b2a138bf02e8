// Package config loads newsfold settings from a YAML file, the environment
// and command-line flags using Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NEWSFOLD_SAVE_PATH.
const EnvPrefix = "NEWSFOLD"

// FetchConfig tunes remote image downloads.
type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxBytes    int64         `mapstructure:"max_bytes"`
}

// IMAPConfig locates the mailbox.
type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	// Password may be left empty; the keyring is consulted instead.
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
	Mailbox  string `mapstructure:"mailbox"`
}

// FilterConfig selects the newsletter among other mail.
type FilterConfig struct {
	From         string `mapstructure:"from"`
	Subject      string `mapstructure:"subject"`
	LookbackDays int    `mapstructure:"lookback_days"`
}

// LedgerConfig selects the processed-message store.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// RenderConfig selects the document format.
type RenderConfig struct {
	Format  string `mapstructure:"format"`
	PDFFont string `mapstructure:"pdf_font"`
}

// Config is the top-level application configuration.
type Config struct {
	SavePath       string       `mapstructure:"save_path"`
	DocumentPrefix string       `mapstructure:"document_prefix"`
	MaxOrdinal     int          `mapstructure:"max_ordinal"`
	LeadInMarkers  []string     `mapstructure:"leadin_markers"`
	Fetch          FetchConfig  `mapstructure:"fetch"`
	IMAP           IMAPConfig   `mapstructure:"imap"`
	Filter         FilterConfig `mapstructure:"filter"`
	Ledger         LedgerConfig `mapstructure:"ledger"`
	Render         RenderConfig `mapstructure:"render"`
}

// Options controls where Load looks.
type Options struct {
	// Path is the config file; empty selects DefaultPath().
	Path string
	// DotEnv lists .env files to load into the environment first.
	// Missing files are ignored.
	DotEnv []string
	// Flags maps config keys to command-line flags. A flag only
	// overrides the file and environment when it was set explicitly.
	Flags map[string]*pflag.Flag
}

// DefaultPath returns ~/.config/newsfold/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "newsfold", "config.yaml")
}

// DefaultSavePath returns ~/newsfold.
func DefaultSavePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newsfold"
	}
	return filepath.Join(home, "newsfold")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("save_path", DefaultSavePath())
	v.SetDefault("document_prefix", "注目AIニュース")
	v.SetDefault("max_ordinal", 17)
	v.SetDefault("leadin_markers", []string{"Workstyle Evolutionの池田です", "** 1."})
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; newsfold/1.0)")
	v.SetDefault("fetch.max_bytes", 20<<20)
	v.SetDefault("imap.host", "")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("filter.from", "ikeda@workstyle-evolution.co.jp")
	v.SetDefault("filter.subject", "注目AIニュース")
	v.SetDefault("filter.lookback_days", 7)
	v.SetDefault("ledger.backend", "json")
	v.SetDefault("ledger.path", "")
	v.SetDefault("render.format", "markdown")
	v.SetDefault("render.pdf_font", "")
}

// legacyEnv are environment names honoured alongside the NEWSFOLD_ ones.
var legacyEnv = map[string][]string{
	"save_path":     {"AI_NEWS_SAVE_PATH"},
	"imap.host":     {"IMAP_SERVER_HOST"},
	"imap.port":     {"IMAP_SERVER_PORT"},
	"imap.username": {"IMAP_USERNAME"},
	"imap.password": {"IMAP_PASSWORD"},
}

// Load resolves the configuration. Precedence, highest first: explicit
// flags, environment, config file, defaults. A missing file at the default
// location is not an error; an explicit Path must be readable.
func Load(opts Options) (*Config, error) {
	for _, f := range opts.DotEnv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		// Only the default location may be absent.
		if opts.Path != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.SavePath = expandHome(cfg.SavePath)
	cfg.Ledger.Path = expandHome(cfg.Ledger.Path)
	cfg.Render.PDFFont = expandHome(cfg.Render.PDFFont)
	return cfg, nil
}

// Validate reports every problem at once. IMAP settings are only checked
// when needIMAP is set.
func (c *Config) Validate(needIMAP bool) error {
	var errs []error
	if c.SavePath == "" {
		errs = append(errs, errors.New("save_path is required"))
	}
	if c.DocumentPrefix == "" {
		errs = append(errs, errors.New("document_prefix is required"))
	}
	if c.MaxOrdinal < 1 || c.MaxOrdinal > 99 {
		errs = append(errs, fmt.Errorf("max_ordinal must be between 1 and 99, got %d", c.MaxOrdinal))
	}
	if c.Fetch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("fetch.concurrency must be positive, got %d", c.Fetch.Concurrency))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout))
	}
	switch c.Ledger.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("ledger.backend must be json or sqlite, got %q", c.Ledger.Backend))
	}
	switch c.Render.Format {
	case "markdown", "json", "pdf":
	default:
		errs = append(errs, fmt.Errorf("render.format must be markdown, json or pdf, got %q", c.Render.Format))
	}
	if needIMAP {
		if c.IMAP.Host == "" {
			errs = append(errs, errors.New("imap.host is required"))
		}
		if c.IMAP.Username == "" {
			errs = append(errs, errors.New("imap.username is required"))
		}
		if c.Filter.Subject == "" && c.Filter.From == "" {
			errs = append(errs, errors.New("filter.from or filter.subject is required"))
		}
	}
	return errors.Join(errs...)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
