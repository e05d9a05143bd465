package metadata

import "sort"

// LinkDeclaredReplies appends every reply to the replies list of the parent
// it declares, when that parent exists and does not list it yet. Replies are
// appended oldest first. It returns the number of links added.
func LinkDeclaredReplies(m *Map) int {
	var pending []Entry
	for _, e := range m.Entries() {
		if !e.IsReply || e.Parent == "" {
			continue
		}
		p, ok := m.Get(e.Parent)
		if !ok || p.IsReply || p.HasReply(e.ID) || m.referenced(e.ID) {
			continue
		}
		pending = append(pending, e)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	for _, e := range pending {
		p, _ := m.Get(e.Parent)
		p.Replies = append(p.Replies, e.ID)
		m.Set(e.Parent, p)
	}
	return len(pending)
}

// referenced reports whether any parent lists id as a reply.
func (m *Map) referenced(id string) bool {
	for pid, r := range m.records {
		if pid != id && !r.IsReply && r.HasReply(id) {
			return true
		}
	}
	return false
}
