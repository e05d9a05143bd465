package journal

import "github.com/Aman-CERP/amanjournal/internal/telemetry"

// Stats describes the loaded journal.
type Stats struct {
	State          string `json:"state"`
	JournalID      string `json:"journal_id,omitempty"`
	Entries        int    `json:"entries"`
	Parents        int    `json:"parents"`
	LexicalDocs    int    `json:"lexical_docs"`
	Vectors        int    `json:"vectors"`
	VectorsEnabled bool   `json:"vectors_enabled"`
	EmbeddingModel string `json:"embedding_model,omitempty"`

	Queries telemetry.Snapshot `json:"queries"`
}

// Stats returns counts for the loaded journal without waiting for a Load.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	state, journalID := c.state, c.journalID
	c.mu.Unlock()

	s := Stats{
		State:          state.String(),
		JournalID:      journalID,
		VectorsEnabled: c.vec.Enabled(),
		EmbeddingModel: c.vec.ModelName(),
		Queries:        c.metrics.Snapshot(),
	}
	if state != StateReady {
		return s
	}

	m := c.meta.Get()
	s.Entries = m.Len()
	s.Parents = len(m.Parents())
	s.LexicalDocs = c.lex.Count()
	s.Vectors = c.vec.Count()
	return s
}
