package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gaurav-prasanna/newsfold/credential"
)

var flagForget bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the IMAP password in the system keyring",
	Long: `Login reads the IMAP password from standard input and stores it in the
system keyring for imap.username at imap.host. save and list use it whenever
imap.password is not configured.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&flagForget, "forget", false, "Remove the stored password instead")
}

func runLogin(_ *cobra.Command, _ []string) error {
	if cfg.IMAP.Host == "" || cfg.IMAP.Username == "" {
		return errors.New("imap.host and imap.username must be configured first")
	}

	store, err := credential.Open()
	if err != nil {
		return err
	}

	if flagForget {
		if err := store.DeletePassword(cfg.IMAP.Host, cfg.IMAP.Username); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Removed password for %s\n", cfg.IMAP.Username)
		return nil
	}

	fmt.Fprintf(os.Stderr, "IMAP password for %s@%s: ", cfg.IMAP.Username, cfg.IMAP.Host)
	password, err := readPassword(os.Stdin)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if password == "" {
		return errors.New("empty password")
	}

	if err := store.SetPassword(cfg.IMAP.Host, cfg.IMAP.Username, password); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Stored password for %s\n", cfg.IMAP.Username)
	return nil
}

// readPassword reads one line from in without echo when in is a terminal,
// and as plain text otherwise (e.g. piped from a secret manager).
func readPassword(in *os.File) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
