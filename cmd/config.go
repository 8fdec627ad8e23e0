package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/meshview/internal/config"
	"github.com/msalah0e/meshview/internal/ui"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the meshview config file",
	}

	cmd.AddCommand(
		configShowCmd(),
		configInitCmd(),
		configPathCmd(),
	)
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if _, err := os.Stat(config.Path()); os.IsNotExist(err) {
				fmt.Println(ui.Subtle.Sprint("# no config file, showing defaults"))
			}
			if err := cfg.Validate(); err != nil {
				fmt.Printf("%s %v\n", ui.WarnIcon(), err)
			}
			return toml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				if err := config.Save(config.Default()); err != nil {
					return fmt.Errorf("writing config: %w", err)
				}
			} else if err := config.EnsureExists(); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			ui.Good.Printf("  %s %s\n", ui.StatusIcon(true), config.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.Path())
		},
	}
}
