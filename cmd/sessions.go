package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/msalah0e/meshview/internal/session"
	"github.com/msalah0e/meshview/internal/ui"
	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	var count int
	var summary bool

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"history"},
		Short:   "Show recent watch and snapshot runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if summary {
				return showSessionSummary()
			}

			sessions, err := session.List(count)
			if err != nil {
				return fmt.Errorf("reading sessions: %w", err)
			}

			ui.Banner("recent sessions")
			if len(sessions) == 0 {
				fmt.Println("  No sessions recorded yet.")
				fmt.Println("  Sessions are tracked by `meshview watch` and `meshview snapshot`")
				return nil
			}

			var rows [][]string
			for _, s := range sessions {
				rows = append(rows, []string{
					s.StartedAt.Format("Jan 02 15:04"),
					s.Command,
					formatDuration(time.Duration(s.Duration * float64(time.Second))),
					fmt.Sprint(s.Frames),
					fmt.Sprintf("%.1f", s.FPS()),
					fmt.Sprint(s.PeakNodes),
					ui.StatusIcon(s.Error == ""),
				})
			}
			ui.Table([]string{"Time", "Command", "Duration", "Frames", "FPS", "Peak", "OK"}, rows)
			fmt.Printf("\n  Showing %d most recent sessions\n", len(sessions))
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of sessions to show")
	cmd.Flags().BoolVar(&summary, "summary", false, "Show totals per command")
	return cmd
}

func showSessionSummary() error {
	summary, err := session.Summarize()
	if err != nil {
		return fmt.Errorf("reading sessions: %w", err)
	}

	ui.Banner("session summary")
	if summary.TotalSessions == 0 {
		fmt.Println("  No sessions recorded yet.")
		return nil
	}

	commands := make([]string, 0, len(summary.ByCommand))
	for c := range summary.ByCommand {
		commands = append(commands, c)
	}
	sort.Strings(commands)

	var rows [][]string
	for _, c := range commands {
		cs := summary.ByCommand[c]
		rows = append(rows, []string{
			c,
			fmt.Sprint(cs.Sessions),
			formatDuration(cs.Duration),
			fmt.Sprint(cs.Frames),
			fmt.Sprint(cs.PeakNodes),
		})
	}
	ui.Table([]string{"Command", "Sessions", "Total Time", "Frames", "Peak Nodes"}, rows)
	fmt.Printf("\n  Total: %d sessions, %s, %d frames\n",
		summary.TotalSessions, formatDuration(summary.TotalDuration), summary.TotalFrames)
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
