package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// withoutConfigFile points the default config location at an empty home.
func withoutConfigFile(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := withoutConfigFile(t)
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, "注目AIニュース", cfg.DocumentPrefix)
	assert.Equal(t, 17, cfg.MaxOrdinal)
	assert.Equal(t, 15*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.Equal(t, int64(20<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, []string{"Workstyle Evolutionの池田です", "** 1."}, cfg.LeadInMarkers)
	assert.Equal(t, 993, cfg.IMAP.Port)
	assert.True(t, cfg.IMAP.TLS)
	assert.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	assert.Equal(t, 7, cfg.Filter.LookbackDays)
	assert.Equal(t, "json", cfg.Ledger.Backend)
	assert.Equal(t, "markdown", cfg.Render.Format)
	assert.Equal(t, filepath.Join(home, "newsfold"), cfg.SavePath)
	assert.NoError(t, cfg.Validate(false))
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
save_path: /srv/news
max_ordinal: 20
fetch:
  timeout: 30s
  concurrency: 2
imap:
  host: imap.example.com
  username: file-user
ledger:
  backend: sqlite
render:
  format: pdf
`)
	t.Setenv("NEWSFOLD_FETCH_CONCURRENCY", "8")
	t.Setenv("IMAP_USERNAME", "legacy-user")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	flags.String("format", "", "")
	require.NoError(t, flags.Parse([]string{"--output", "/tmp/out"}))

	cfg, err := Load(Options{
		Path: path,
		Flags: map[string]*pflag.Flag{
			"save_path":     flags.Lookup("output"),
			"render.format": flags.Lookup("format"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.SavePath)
	assert.Equal(t, "pdf", cfg.Render.Format, "unset flag must not override the file")
	assert.Equal(t, 20, cfg.MaxOrdinal)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 8, cfg.Fetch.Concurrency)
	assert.Equal(t, "imap.example.com", cfg.IMAP.Host)
	assert.Equal(t, "legacy-user", cfg.IMAP.Username)
	assert.Equal(t, "sqlite", cfg.Ledger.Backend)
	assert.NoError(t, cfg.Validate(true))
}

func TestLoad_LegacySavePathAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "AI_NEWS_SAVE_PATH=/data/ai-news\nIMAP_PASSWORD=secret\n")
	t.Cleanup(func() {
		os.Unsetenv("AI_NEWS_SAVE_PATH")
		os.Unsetenv("IMAP_PASSWORD")
	})

	withoutConfigFile(t)
	cfg, err := Load(Options{
		DotEnv: []string{env, filepath.Join(dir, "missing.env")},
	})
	require.NoError(t, err)
	assert.Equal(t, "/data/ai-news", cfg.SavePath)
	assert.Equal(t, "secret", cfg.IMAP.Password)
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := withoutConfigFile(t)
	t.Setenv("NEWSFOLD_SAVE_PATH", "~/news")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "news"), cfg.SavePath)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "save_path: [unclosed\n")
	_, err := Load(Options{Path: path})
	assert.Error(t, err)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	withoutConfigFile(t)
	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "typo.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typo.yaml")
}

func TestLoad_UnreadableDefaultFileFails(t *testing.T) {
	home := withoutConfigFile(t)
	// A directory where the file should be cannot be read as YAML.
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".config", "newsfold", "config.yaml"), 0755))
	_, err := Load(Options{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	withoutConfigFile(t)
	cfg, err := Load(Options{})
	require.NoError(t, err)

	cfg.MaxOrdinal = 0
	cfg.Render.Format = "docx"
	cfg.Ledger.Backend = "redis"
	err = cfg.Validate(true)
	require.Error(t, err)
	for _, want := range []string{"max_ordinal", "render.format", "ledger.backend", "imap.host", "imap.username"} {
		assert.Contains(t, err.Error(), want)
	}
}
