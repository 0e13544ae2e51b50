package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sown0205/Anubis/internal/client"
	"github.com/Sown0205/Anubis/internal/core/model"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Control and observe live scan sessions",
}

var scanStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new scan session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		session, err := c.StartScan(cmd.Context(), nil)
		if err != nil {
			return err
		}
		fmt.Printf("Scan started: session %s\n", session.ID)
		return nil
	},
}

var scanStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running scan session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		session, err := c.StopScan(cmd.Context())
		if err != nil {
			return err
		}
		if session == nil {
			fmt.Println("No scan was running")
			return nil
		}
		fmt.Printf("Scan stopped: %d flows, %d attacks\n", session.TotalFlows, session.AttackCount)
		return nil
	},
}

var scanStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current scan status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		status, err := c.ScanStatus(cmd.Context())
		if err != nil {
			return err
		}
		printStatus(status)

		analysis, err := c.ScanAnalysis(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Overall: %s (%d flows, %.1f%% attacks, running %s)\n",
			analysis.OverallStatus, analysis.TotalFlows, analysis.AttackPercentage, analysis.ScanningTime)
		return nil
	},
}

var scanWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the scan status until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient(cmd)
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		view := client.NewScanView(c, interval)
		view.Start(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				snap := view.Snapshot()
				state := "idle"
				if snap.IsScanning {
					state = "scanning"
				}
				stale := ""
				if snap.LastError != nil {
					stale = " (stale)"
				}
				fmt.Printf("[%s] %s: %d results%s\n",
					time.Now().Format("15:04:05"), state, snap.TotalResults, stale)
			case <-ctx.Done():
				view.Wait()
				return nil
			}
		}
	},
}

func printStatus(status *model.ScanStatus) {
	if !status.IsScanning {
		fmt.Println("Scanning: no")
	} else {
		fmt.Println("Scanning: yes")
	}
	if status.Session != nil {
		fmt.Printf("Session:  %s (started %s)\n",
			status.Session.ID, status.Session.StartTime.Format(time.RFC3339))
	}
	fmt.Printf("Results:  %d total, %d recent\n", status.TotalResults, len(status.RecentResults))
	for _, r := range status.RecentResults {
		marker := " "
		if r.Status == model.ClassAttack {
			marker = "!"
		}
		fmt.Printf("  %s %s -> %s\n", marker, r.FlowID, r.Status)
	}
}

func init() {
	scanWatchCmd.Flags().Duration("interval", 2*time.Second, "Poll interval")
	scanCmd.AddCommand(scanStartCmd, scanStopCmd, scanStatusCmd, scanWatchCmd)
	rootCmd.AddCommand(scanCmd)
}
