package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/journal"
)

func newRegenerateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <journal>",
		Short: "Recompute every thread embedding",
		Long: `Recompute the embedding of every thread with the configured provider and
replace the embeddings snapshot. Run this after changing the embedding
model. Searches keep using the old vectors until the run completes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.journal.Regenerate(cmd.Context())
			if err != nil {
				return err
			}
			if a.out.JSONMode() {
				return a.out.JSON(report)
			}
			a.out.Successf("Embedded %d of %d threads in %s", report.Embedded, report.Total, report.Duration.Round(time.Millisecond))
			if report.Failed > 0 {
				a.out.Warningf("%d threads failed; see the log for details", report.Failed)
			}
			return nil
		},
	}
}

func newRepairCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <journal> [reply]",
		Short: "Fix reply links between entries",
		Long: `Make every reply belong to exactly one parent.

With a reply id, only that reply is checked. Without one, every reply
and every dangling link is checked. Only changed links are reported.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			var reports []journal.RepairReport
			if len(args) == 2 {
				r, err := a.journal.RepairReplyLinkage(cmd.Context(), args[1])
				if err != nil {
					return err
				}
				reports = append(reports, r)
			} else {
				reports, err = a.journal.RepairAll(cmd.Context())
				if err != nil {
					return err
				}
			}

			if a.out.JSONMode() {
				if reports == nil {
					reports = []journal.RepairReport{}
				}
				return a.out.JSON(reports)
			}

			changed := 0
			for _, r := range reports {
				if !r.Changed {
					continue
				}
				changed++
				if r.Parent == "" {
					a.out.Successf("Dropped dangling reply link %s", r.ReplyID)
				} else {
					a.out.Successf("Linked %s to %s", r.ReplyID, r.Parent)
				}
			}
			if changed == 0 {
				a.out.Successf("Reply links are consistent")
			}
			return nil
		},
	}
}
