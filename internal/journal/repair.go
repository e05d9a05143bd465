package journal

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Aman-CERP/amanjournal/internal/metadata"
)

// RepairReport describes the outcome of repairing one reply.
type RepairReport struct {
	ReplyID string `json:"reply_id"`
	Parent  string `json:"parent,omitempty"`
	Changed bool   `json:"changed"`
}

// RepairReplyLinkage makes replyID appear in exactly one parent's replies
// list and points the reply at that parent. The map is persisted only when
// something changed.
func (c *Coordinator) RepairReplyLinkage(ctx context.Context, replyID string) (RepairReport, error) {
	reports, err := c.repair(ctx, []string{replyID})
	if err != nil {
		return RepairReport{ReplyID: replyID}, err
	}
	return reports[0], nil
}

// RepairAll repairs every reply and every id referenced from a replies list,
// returning only the reports that changed something.
func (c *Coordinator) RepairAll(ctx context.Context) ([]RepairReport, error) {
	reports, err := c.repair(ctx, nil)
	if err != nil {
		return nil, err
	}
	changed := reports[:0]
	for _, r := range reports {
		if r.Changed {
			changed = append(changed, r)
		}
	}
	return changed, nil
}

// repair runs repairReply for ids, or for every candidate when ids is nil.
func (c *Coordinator) repair(ctx context.Context, ids []string) ([]RepairReport, error) {
	journalID, err := c.beginMutation(ctx)
	if err != nil {
		return nil, err
	}
	defer c.release()

	var (
		reports  []RepairReport
		affected = make(map[string]bool)
	)
	m, err := c.meta.Mutate(ctx, func(m *metadata.Map) bool {
		targets := ids
		if targets == nil {
			targets = repairCandidates(m)
		}
		for _, id := range targets {
			for _, p := range c.affectedParents(m, id) {
				affected[p] = true
			}
			r := repairReply(m, id)
			if r.Changed {
				for _, p := range c.affectedParents(m, id) {
					affected[p] = true
				}
			}
			reports = append(reports, r)
		}
		for _, r := range reports {
			if r.Changed {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	changed := false
	for _, r := range reports {
		if r.Changed {
			changed = true
			c.logger.Info("reply_linkage_repaired",
				slog.String("reply", r.ReplyID), slog.String("parent", r.Parent))
		}
	}
	if !changed {
		return reports, nil
	}

	parents := make([]string, 0, len(affected))
	for id := range affected {
		if rec, ok := m.Get(id); ok && !rec.IsReply {
			parents = append(parents, id)
		}
	}
	sort.Strings(parents)
	if err := c.fanOut(ctx, journalID, m, parents); err != nil {
		return nil, err
	}
	return reports, nil
}

// repairCandidates returns every reply and every id listed as a reply.
func repairCandidates(m *metadata.Map) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, e := range m.Entries() {
		if e.IsReply {
			add(e.ID)
		}
		for _, r := range e.Replies {
			add(r)
		}
	}
	sort.Strings(out)
	return out
}

// repairReply fixes the links of replyID in m:
//  1. an id missing from the map is removed from every replies list;
//  2. otherwise the referencing parents are collected;
//  3. the true parent is the declared parent if it references the reply,
//     else the oldest referencing parent, else the declared parent if it
//     exists (and the reply is appended to it);
//  4. every other parent drops the reply, and the reply points at its parent.
func repairReply(m *metadata.Map, replyID string) RepairReport {
	report := RepairReport{ReplyID: replyID}

	rec, ok := m.Get(replyID)
	if !ok {
		for _, p := range m.Parents() {
			if p.HasReply(replyID) {
				p.Replies = without(p.Replies, replyID)
				m.Set(p.ID, p.Record)
				report.Changed = true
			}
		}
		return report
	}

	var refs []metadata.Entry
	for _, p := range m.Parents() {
		if p.ID != replyID && p.HasReply(replyID) {
			refs = append(refs, p)
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].CreatedAt.Before(refs[j].CreatedAt)
		}
		return refs[i].ID < refs[j].ID
	})

	parent := ""
	for _, p := range refs {
		if p.ID == rec.Parent {
			parent = p.ID
		}
	}
	if parent == "" && len(refs) > 0 {
		parent = refs[0].ID
	}
	if parent == "" && rec.Parent != "" && rec.Parent != replyID {
		if p, ok := m.Get(rec.Parent); ok && !p.IsReply {
			parent = rec.Parent
			p.Replies = append(p.Replies, replyID)
			m.Set(parent, p)
			report.Changed = true
		}
	}
	if parent == "" {
		// a standalone entry or an orphan: nothing to attach it to
		return report
	}
	report.Parent = parent

	for _, p := range refs {
		if p.ID != parent {
			p.Replies = without(p.Replies, replyID)
			m.Set(p.ID, p.Record)
			report.Changed = true
		}
	}

	if !rec.IsReply || rec.Parent != parent || len(rec.Replies) > 0 {
		rec.IsReply = true
		rec.Parent = parent
		m.Set(replyID, rec)
		report.Changed = true
	}
	return report
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
