// Package cli implements the anubis command tree.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sown0205/Anubis/internal/client"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "anubis",
	Short: "ANUBIS network security monitoring client",
	Long: `anubis - client for the ANUBIS network security dashboard

Controls live scan sessions, submits packet captures for analysis, and
browses the scan history of a running ANUBIS server.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8000", "ANUBIS server base URL")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Request timeout")
}

// apiClient builds a Client from the persistent flags.
func apiClient(cmd *cobra.Command) (*client.Client, error) {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return nil, err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	return client.New(server, timeout)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("anubis %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
