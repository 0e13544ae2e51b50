package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sown0205/Anubis/internal/client"
)

var pcapCmd = &cobra.Command{
	Use:   "pcap",
	Short: "Submit and inspect capture analyses",
}

var pcapAnalyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Upload a capture and wait for the report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}

		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		tracker := client.NewUploadTracker(c, 0)
		if err := tracker.Upload(cmd.Context(), info.Name(), info.Size(), f); err != nil {
			return err
		}
		fmt.Printf("Uploaded %s, analyzing...\n", info.Name())

		lastMessage := ""
		for {
			snap := tracker.Snapshot()
			if snap.Message != "" && snap.Message != lastMessage {
				fmt.Printf("  [%3d%%] %s\n", snap.Progress, snap.Message)
				lastMessage = snap.Message
			}
			if snap.State == client.TrackerCompleted || snap.State == client.TrackerFailed {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
		tracker.Wait()

		if msg, ok := tracker.Failure(); ok {
			return fmt.Errorf("analysis failed: %s", msg)
		}

		res := tracker.Snapshot().Result
		fmt.Printf("\nAnalysis %s\n", res.AnalysisID)
		fmt.Printf("Flows: %d total, %d benign, %d malicious (%.1f%%)\n",
			res.Summary.TotalFlows, res.Summary.BenignFlows,
			res.Summary.MaliciousFlows, res.Summary.MaliciousPercentage)
		fmt.Printf("Status: %s\n", res.Summary.OverallStatus)
		if len(res.Threats.MaliciousIPs) > 0 {
			fmt.Printf("Malicious IPs: %v\n", res.Threats.MaliciousIPs)
		}
		for _, th := range res.Threats.TopThreats {
			fmt.Printf("  %s -> %s  %s (risk %.2f)\n", th.SrcIP, th.DstIP, th.ThreatType, th.RiskScore)
		}
		return nil
	},
}

var pcapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submitted analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		list, err := c.Analyses(cmd.Context(), limit, offset)
		if err != nil {
			return err
		}
		fmt.Printf("%d analyses (showing %d from offset %d)\n", list.Total, len(list.Analyses), list.Offset)
		for _, a := range list.Analyses {
			line := fmt.Sprintf("  %s  %-10s  %s", a.AnalysisID, a.Status, a.Filename)
			if a.Summary != nil {
				line += fmt.Sprintf("  (%d flows, %d malicious)",
					a.Summary.TotalFlows, a.Summary.MaliciousFlows)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var pcapDeleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteAnalysis(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Analysis deleted")
		return nil
	},
}

func init() {
	pcapListCmd.Flags().Int("limit", 20, "Page size")
	pcapListCmd.Flags().Int("offset", 0, "Page offset")
	pcapCmd.AddCommand(pcapAnalyzeCmd, pcapListCmd, pcapDeleteCmd)
	rootCmd.AddCommand(pcapCmd)
}
