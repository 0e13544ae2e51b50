package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded scans",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		items, err := c.History(cmd.Context())
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No recorded scans")
			return nil
		}
		fmt.Printf("%-36s  %-10s  %-8s  %-8s  %6s  %7s  %s\n",
			"ID", "DATE", "TIME", "DURATION", "FLOWS", "THREATS", "STATUS")
		for _, item := range items {
			fmt.Printf("%-36s  %-10s  %-8s  %-8s  %6d  %7d  %s\n",
				item.ID, item.Date, item.Time, item.Duration,
				item.TotalFlows, item.Threats, item.Status)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show one recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		det, err := c.HistoryDetail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Scan %s (%s)\n", det.ScanID, det.Session.Status)
		fmt.Printf("Started: %s\n", det.Session.StartTime.Format("2006-01-02 15:04:05"))
		if det.Session.EndTime != nil {
			fmt.Printf("Ended:   %s\n", det.Session.EndTime.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Flows:   %d total, %d benign, %d attacks\n",
			det.Session.TotalFlows, det.Session.BenignCount, det.Session.AttackCount)
		fmt.Printf("Results: %d retained\n", det.TotalResults)
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [scan-id]",
	Short: "Export one scan (or the whole history) as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		data, filename, err := c.Export(cmd.Context(), id)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = filename
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported to %s (%d bytes)\n", out, len(data))
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id>",
	Short: "Delete a recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteHistory(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Scan deleted")
		return nil
	},
}

func init() {
	historyExportCmd.Flags().StringP("output", "o", "", "Output file (defaults to the server-suggested name)")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyExportCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
