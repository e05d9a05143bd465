package metadata

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/amanjournal/internal/document"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
)

// Thread is a parent entry together with its reply documents in thread order.
type Thread struct {
	ID      string
	Record  Record
	Parent  *document.Document
	Replies []*document.Document
}

// LoadThread reads the parent document of entry id and each of its replies.
// A parent that cannot be read is an error; an unreadable reply is logged and
// left out.
func LoadThread(ctx context.Context, docs document.Store, journalID, id string, rec Record, logger *slog.Logger) (*Thread, error) {
	parent, err := docs.Read(ctx, journalID, id)
	if err != nil {
		return nil, err
	}

	t := &Thread{ID: id, Record: rec, Parent: parent}
	for _, replyID := range rec.Replies {
		reply, err := docs.Read(ctx, journalID, replyID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("reply_unreadable",
				append([]any{slog.String("entry", id), slog.String("reply", replyID)}, jerrors.LogAttrs(err)...)...)
			continue
		}
		t.Replies = append(t.Replies, reply)
	}
	return t, nil
}

// ReplyText concatenates the reply bodies in order, separated by blank lines.
func (t *Thread) ReplyText() string {
	bodies := make([]string, 0, len(t.Replies))
	for _, r := range t.Replies {
		if r.Body != "" {
			bodies = append(bodies, r.Body)
		}
	}
	return strings.Join(bodies, "\n\n")
}

// FullText is the parent body followed by all reply bodies.
func (t *Thread) FullText() string {
	replies := t.ReplyText()
	if replies == "" {
		return t.Parent.Body
	}
	if t.Parent.Body == "" {
		return replies
	}
	return t.Parent.Body + "\n\n" + replies
}
