package cmd

import (
	"github.com/msalah0e/meshview/internal/config"
	"github.com/msalah0e/meshview/internal/ui"
	"github.com/spf13/cobra"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "meshview",
	Short: "meshview — watch a ring network settle",
	Long: ui.Brand.Sprint(ui.Ring+" meshview") + " — force-directed view of a peer-to-peer ring\n" +
		ui.Subtle.Sprint("Successor arrows, confirmed links in bold, dead members fading out"),
	Version:       version + " " + ui.Ring,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("meshview {{ .Version }}\n")

	rootCmd.AddCommand(
		watchCmd(),
		snapshotCmd(),
		configCmd(),
		eventsCmd(),
		sessionsCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		ui.Bad.Printf("meshview: %v\n", err)
	}
	return err
}

// loadConfig reads the config file and validates it.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
