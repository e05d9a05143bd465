package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/metadata"
)

// mutationResult is the --json output of commands that change the journal.
type mutationResult struct {
	Action  string `json:"action"`
	Entry   string `json:"entry"`
	Parent  string `json:"parent,omitempty"`
	Entries int    `json:"entries"`
}

func (a *app) reportMutation(res mutationResult, m *metadata.Map) error {
	res.Entries = m.Len()
	if a.out.JSONMode() {
		return a.out.JSON(res)
	}
	switch {
	case res.Parent != "":
		a.out.Successf("%s %s (reply to %s)", res.Action, res.Entry, res.Parent)
	default:
		a.out.Successf("%s %s", res.Action, res.Entry)
	}
	a.out.Infof("%d entries indexed", res.Entries)
	return nil
}

func newAddCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <journal> <entry>",
		Short: "Index an entry file that already exists in the journal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.journal.Add(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return a.reportMutation(mutationResult{Action: "Added", Entry: args[1]}, m)
		},
	}
}

func newReplyCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reply <journal> <parent> <reply>",
		Short: "Link an existing entry file as a reply to a parent entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.journal.AddReply(cmd.Context(), args[1], args[2])
			if err != nil {
				return err
			}
			return a.reportMutation(mutationResult{Action: "Linked", Entry: args[2], Parent: args[1]}, m)
		},
	}
}

func newRemoveCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <journal> <entry>",
		Aliases: []string{"rm"},
		Short:   "Drop an entry from the indexes",
		Long: `Drop an entry from the metadata map and both search indexes.

The entry file itself is left on disk. Removing an unknown entry is not
an error.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.journal.Remove(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return a.reportMutation(mutationResult{Action: "Removed", Entry: args[1]}, m)
		},
	}
}

// writeOptions holds flags for the write command.
type writeOptions struct {
	replyTo string
	title   string
	tags    []string
}

func newWriteCmd(g *globalOptions) *cobra.Command {
	var opts writeOptions

	cmd := &cobra.Command{
		Use:   "write <journal> [text...]",
		Short: "Create a new entry and index it",
		Long: `Create a new entry file named YYYY/MM/<uuid>.md and index it.

The body is taken from the arguments, or from stdin when none are given.
With --reply-to the entry is written as a reply and linked to its parent.

Examples:
  amanjournal write ~/journal "Walked to the river before work."
  amanjournal write ~/journal --title "Plans" < draft.md
  amanjournal write ~/journal --reply-to 2026/03/walk.md "Still thinking about it."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.Join(args[1:], " ")
			if len(args) == 1 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read entry from stdin: %w", err)
				}
				body = string(data)
			}
			if strings.TrimSpace(body) == "" {
				return jerrors.ValidationError("entry text is empty", nil).
					WithSuggestion("pass the text as arguments or on stdin")
			}

			a, err := openJournal(cmd, g, args[0], openOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			return a.write(cmd, opts, strings.TrimSpace(body)+"\n")
		},
	}

	cmd.Flags().StringVar(&opts.replyTo, "reply-to", "", "Parent entry id; writes the entry as a reply")
	cmd.Flags().StringVar(&opts.title, "title", "", "Entry title")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func (a *app) write(cmd *cobra.Command, opts writeOptions, body string) error {
	ctx := cmd.Context()

	if opts.replyTo != "" {
		m, err := a.journal.Get(ctx)
		if err != nil {
			return err
		}
		parent, ok := m.Get(opts.replyTo)
		if !ok {
			return jerrors.New(jerrors.ErrCodeEntryNotFound, "parent entry not found", nil).
				WithDetail("entry", opts.replyTo)
		}
		if parent.IsReply {
			return jerrors.ValidationError("cannot reply to a reply", nil).
				WithDetail("entry", opts.replyTo).
				WithSuggestion("reply to " + parent.Parent + " instead")
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	doc := &document.Document{
		ID: document.NewEntryID(now),
		Meta: document.FrontMatter{
			Title:     opts.title,
			CreatedAt: now,
			UpdatedAt: now,
			Tags:      opts.tags,
			IsReply:   opts.replyTo != "",
			Parent:    opts.replyTo,
		},
		Body: body,
	}
	if err := a.docs.Write(ctx, a.dir, doc); err != nil {
		return jerrors.New(jerrors.ErrCodeJournalDir, "cannot write entry", err).
			WithDetail("entry", doc.ID)
	}

	var (
		m   *metadata.Map
		err error
	)
	if opts.replyTo != "" {
		m, err = a.journal.AddReply(ctx, opts.replyTo, doc.ID)
	} else {
		m, err = a.journal.Add(ctx, doc.ID)
	}
	if err != nil {
		_ = os.Remove(filepath.Join(a.dir, filepath.FromSlash(doc.ID)))
		return err
	}

	return a.reportMutation(mutationResult{Action: "Wrote", Entry: doc.ID, Parent: opts.replyTo}, m)
}
