package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Entry pairs an entry id with its record.
type Entry struct {
	ID string
	Record
}

// Map is the full id -> Record mapping of a journal. It always iterates,
// serializes and lists in createdAt descending order (ties by id), since
// consumers render it as a reverse-chronological timeline.
//
// Map is not safe for concurrent mutation; Store hands out copies.
type Map struct {
	records map[string]Record
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{records: make(map[string]Record)}
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.records)
}

// Get returns a copy of the record for id.
func (m *Map) Get(id string) (Record, bool) {
	r, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

// Has reports whether id is present.
func (m *Map) Has(id string) bool {
	_, ok := m.records[id]
	return ok
}

// Set inserts or replaces the record for id.
func (m *Map) Set(id string, r Record) {
	m.records[id] = r.Normalize()
}

// Delete removes id, reporting whether it was present.
func (m *Map) Delete(id string) bool {
	_, ok := m.records[id]
	delete(m.records, id)
	return ok
}

// Entries returns all entries in timeline order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.records))
	for id, r := range m.records {
		out = append(out, Entry{ID: id, Record: r.clone()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Parents returns the non-reply entries in timeline order.
func (m *Map) Parents() []Entry {
	all := m.Entries()
	out := all[:0]
	for _, e := range all {
		if !e.IsReply {
			out = append(out, e)
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	c := &Map{records: make(map[string]Record, len(m.records))}
	for id, r := range m.records {
		c.records[id] = r.clone()
	}
	return c
}

// MarshalJSON writes a JSON object whose keys are in timeline order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Record)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", e.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of id -> record.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]Record
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.records = make(map[string]Record, len(raw))
	for id, r := range raw {
		m.records[id] = r.Normalize()
	}
	return nil
}
