package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change server settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		values, err := c.Settings(cmd.Context())
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-24s %v\n", k, values[k])
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key=value> [key=value...]",
	Short: "Change one or more settings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes := make(map[string]any, len(args))
		for _, arg := range args {
			key, raw, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", arg)
			}
			changes[key] = parseSettingValue(raw)
		}

		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		values, err := c.UpdateSettings(cmd.Context(), changes)
		if err != nil {
			return err
		}
		for key := range changes {
			fmt.Printf("%s = %v\n", key, values[key])
		}
		return nil
	},
}

// parseSettingValue maps the command-line string onto the JSON type the
// server expects: bools and integers stay typed, anything else is sent
// as-is so the server can report the mismatch.
func parseSettingValue(raw string) any {
	// Integers first: ParseBool would otherwise swallow "0" and "1".
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

var systemStatusCmd = &cobra.Command{
	Use:   "system",
	Short: "Show the server component status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		status, err := c.SystemStatus(cmd.Context())
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(status))
		for k := range status {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-20s %v\n", k, status[k])
		}
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, systemStatusCmd)
	rootCmd.AddCommand(settingsCmd)
}
