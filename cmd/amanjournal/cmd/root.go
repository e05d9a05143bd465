// Package cmd provides the CLI commands for amanjournal.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/config"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/output"
	"github.com/Aman-CERP/amanjournal/internal/profiling"
	"github.com/Aman-CERP/amanjournal/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configDir string
	debug     bool
	json      bool

	profile  profiling.Options
	profiler *profiling.Session
}

// NewRootCmd creates the root command for the amanjournal CLI.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "amanjournal",
		Short: "Hybrid search over a local-first journal",
		Long: `amanjournal indexes a directory of markdown journal entries and answers
keyword and semantic queries over it.

Entries are markdown files with YAML front-matter. Replies are entries
linked to a parent; a parent and its replies form a thread. Semantic
search is enabled by configuring an embedding provider (ollama, openai
or gemini) in ` + config.JournalConfigFile + ` or the user config.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("amanjournal version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&g.configDir, "config-dir", "", "Directory holding config.yaml (default: $XDG_CONFIG_HOME/amanjournal)")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging, mirrored to stderr")
	cmd.PersistentFlags().BoolVar(&g.json, "json", false, "Print machine-readable JSON")

	cmd.PersistentFlags().StringVar(&g.profile.CPU, "profile-cpu", "", "Write a CPU profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Heap, "profile-mem", "", "Write a heap profile to file on exit")
	cmd.PersistentFlags().StringVar(&g.profile.Trace, "profile-trace", "", "Write an execution trace to file")

	cmd.PersistentPreRunE = g.startProfiling
	cmd.PersistentPostRunE = g.stopProfiling

	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newVectorSearchCmd(g))
	cmd.AddCommand(newThreadCmd(g))
	cmd.AddCommand(newAddCmd(g))
	cmd.AddCommand(newReplyCmd(g))
	cmd.AddCommand(newWriteCmd(g))
	cmd.AddCommand(newRemoveCmd(g))
	cmd.AddCommand(newRegenerateCmd(g))
	cmd.AddCommand(newRepairCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newVersionCmd(g))

	return cmd
}

// Execute runs the root command, printing errors in CLI form.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, jerrors.FormatForCLI(err))
	}
	return err
}

func (o *globalOptions) startProfiling(_ *cobra.Command, _ []string) error {
	if !o.profile.Enabled() {
		return nil
	}
	s, err := profiling.Start(o.profile)
	if err != nil {
		return err
	}
	o.profiler = s
	return nil
}

func (o *globalOptions) stopProfiling(_ *cobra.Command, _ []string) error {
	err := o.profiler.Stop()
	o.profiler = nil
	return err
}

// userConfigPath returns the user config file honoring --config-dir.
func (o *globalOptions) userConfigPath() string {
	if o.configDir != "" {
		return filepath.Join(o.configDir, "config.yaml")
	}
	return config.GetUserConfigPath()
}

// writer returns the output writer for cmd's stdout.
func (o *globalOptions) writer(cmd *cobra.Command) *output.Writer {
	if o.json {
		return output.NewJSON(cmd.OutOrStdout())
	}
	return output.New(cmd.OutOrStdout())
}
