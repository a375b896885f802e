package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/me/docvault/internal/route"
	"github.com/me/docvault/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(a *app) *cobra.Command {
	var (
		email        string
		passwordFile string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the document service",
		Long: "Exchange email and password for a bearer credential and store it in the\n" +
			"configured token store. The password is read from --password-file or\n" +
			"prompted for without echo.",
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				line, err := prompt(cmd, in, "Email: ")
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = line
			}
			password, err := readPassword(cmd, in, passwordFile)
			if err != nil {
				return err
			}

			epoch := a.sessions.Current().Epoch
			token, err := a.client.Authenticate(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := a.sessions.LoginAt(epoch, token); err != nil {
				if errors.Is(err, session.ErrStale) {
					return fmt.Errorf("login: session changed while authenticating, try again")
				}
				return fmt.Errorf("login: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", a.sessions.Current().Subject())
			return nil
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from this file (\"-\" for stdin)")
	return forRoute(cmd, route.Login)
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			was := a.sessions.Current()
			if err := a.sessions.Logout(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			if !was.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", was.Subject())
			return nil
		}),
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s := a.sessions.Current()
			out := cmd.OutOrStdout()
			if !s.Authenticated() {
				fmt.Fprintln(out, "Not logged in.")
				return nil
			}
			fmt.Fprintln(out, s.Subject())
			if exp := s.Identity.ExpiresAt; !exp.IsZero() {
				fmt.Fprintf(out, "Expires: %s (in %s)\n", exp.Local().Format(time.RFC3339),
					time.Until(exp).Round(time.Second))
			}
			return nil
		}),
	}
}

// prompt writes label to stderr and reads one trimmed line from in.
func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads the password from path ("-" means stdin), from the
// terminal without echo, or as a plain line when stdin is not a terminal.
func readPassword(cmd *cobra.Command, in *bufio.Reader, path string) (string, error) {
	switch path {
	case "":
	case "-":
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := prompt(cmd, in, "Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}
