package cmd

import (
	"github.com/spf13/cobra"
)

func newThreadCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "thread <journal> <entry>",
		Short: "Print an entry with its replies",
		Long: `Print a whole thread as text: the parent entry followed by each reply
in order. Given a reply, the thread of its parent is printed.

Example:
  amanjournal thread ~/journal 2026/03/walk.md`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			text, err := a.journal.GetThreadAsText(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if a.out.JSONMode() {
				return a.out.JSON(map[string]string{"entry": args[1], "text": text})
			}
			a.out.Text(text)
			return nil
		},
	}
}
