package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amanjournal/internal/config"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigInitCmd(g))
	cmd.AddCommand(newConfigShowCmd(g))
	return cmd
}

func newConfigInitCmd(g *globalOptions) *cobra.Command {
	var journalDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Long: `Write a config file with every setting at its default value.

Without --journal the user config file is written. With --journal the
file goes to <journal>/` + config.JournalConfigFile + `. An existing file is
kept as <file>.bak.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := g.userConfigPath()
			if journalDir != "" {
				path = filepath.Join(journalDir, config.JournalConfigFile)
			}
			if err := config.NewConfig().WriteYAML(path); err != nil {
				return err
			}
			out := g.writer(cmd)
			if out.JSONMode() {
				return out.JSON(map[string]string{"path": path})
			}
			out.Successf("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&journalDir, "journal", "", "Write the journal config instead of the user config")
	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [journal]",
		Short: "Print the effective configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			cfg, err := config.LoadFrom(g.userConfigPath(), dir)
			if err != nil {
				return err
			}

			out := g.writer(cmd)
			if out.JSONMode() {
				return out.JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			out.Text(string(data))
			return nil
		},
	}
}
