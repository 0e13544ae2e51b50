package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sown0205/Anubis/internal/client"
)

// sessionFile is where the CLI keeps the session token between runs.
func sessionFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".anubis", "session"), nil
}

func saveSession(token string) error {
	path, err := sessionFile()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func clearSession() {
	if path, err := sessionFile(); err == nil {
		os.Remove(path)
	}
}

// sessionClient builds a Client seeded with the saved session, if any.
func sessionClient(cmd *cobra.Command) (*client.Client, error) {
	c, err := apiClient(cmd)
	if err != nil {
		return nil, err
	}
	if path, err := sessionFile(); err == nil {
		if data, err := os.ReadFile(path); err == nil {
			c.SetSessionToken(strings.TrimSpace(string(data)))
		}
	}
	return c, nil
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log in and store the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := cmd.Flags().GetString("password")
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password required (use --password)")
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		user, err := c.Login(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		if err := saveSession(c.SessionToken()); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		if err := c.Logout(cmd.Context()); err != nil {
			return err
		}
		clearSession()
		fmt.Println("Logged out")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email> <name>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := cmd.Flags().GetString("password")
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password required (use --password)")
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		user, err := c.Register(cmd.Context(), args[0], args[1], password)
		if err != nil {
			return err
		}
		fmt.Printf("Account created for %s\n", user.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("password", "", "Account password")
	registerCmd.Flags().String("password", "", "Account password")
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd)
}
