package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/msalah0e/meshview/internal/activity"
	"github.com/msalah0e/meshview/internal/ui"
	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"log", "logs"},
		Short:   "Show recorded ring and render-loop events",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := activity.Read(limit)
			if err != nil {
				return err
			}
			ui.Banner("events")
			if len(entries) == 0 {
				fmt.Println("  No events recorded yet.")
				fmt.Println("  Events are logged while `meshview watch` or `meshview snapshot` runs")
				return nil
			}
			printEntries(entries)
			fmt.Printf("\n  Showing %d most recent entries\n", len(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")

	cmd.AddCommand(
		eventsSearchCmd(),
		eventsClearCmd(),
		eventsExportCmd(),
		eventsStatsCmd(),
	)

	return cmd
}

func eventsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search events by action, node or details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := activity.Search(args[0], 50)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Printf("  No events matching %q\n", args[0])
				return nil
			}
			ui.Banner("search results")
			printEntries(results)
			fmt.Printf("\n  %d results\n", len(results))
			return nil
		},
	}
}

func eventsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := activity.Clear(); err != nil {
				return fmt.Errorf("clearing event log: %w", err)
			}
			ui.Good.Printf("  %s Event log cleared\n", ui.StatusIcon(true))
			return nil
		},
	}
}

func eventsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the event log as a JSON array",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := activity.Read(0)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []activity.Entry{}
			}
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func eventsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count events by action",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := activity.Read(0)
			if err != nil {
				return err
			}
			ui.Banner("event stats")
			if len(entries) == 0 {
				fmt.Println("  No events recorded")
				return nil
			}

			counts := make(map[string]int)
			for _, e := range entries {
				counts[e.Action]++
			}
			actions := make([]string, 0, len(counts))
			for a := range counts {
				actions = append(actions, a)
			}
			sort.Strings(actions)

			var rows [][]string
			for _, a := range actions {
				rows = append(rows, []string{a, fmt.Sprint(counts[a])})
			}
			ui.Table([]string{"Action", "Count"}, rows)
			fmt.Printf("\n  Total: %d, oldest %s\n", len(entries), entries[len(entries)-1].Timestamp.Format("Jan 02 15:04:05"))
			return nil
		},
	}
}

func printEntries(entries []activity.Entry) {
	var rows [][]string
	for _, e := range entries {
		node := e.Node
		if node == "" {
			node = "-"
		}
		rows = append(rows, []string{
			e.Timestamp.Format("Jan 02 15:04:05"),
			actionLabel(e.Action),
			node,
			truncate(e.Details, 60),
		})
	}
	ui.Table([]string{"Time", "Action", "Node", "Details"}, rows)
}

// actionLabel pads before coloring so the table stays aligned.
func actionLabel(action string) string {
	padded := fmt.Sprintf("%-8s", action)
	switch action {
	case activity.ActionJoin:
		return ui.Good.Sprint(padded)
	case activity.ActionKick, activity.ActionRemove:
		return ui.Warn.Sprint(padded)
	case activity.ActionDefect:
		return ui.Bad.Sprint(padded)
	default:
		return ui.Info.Sprint(padded)
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
