package engine

import (
	"github.com/0-th/antenna-client/pkg/types"
)

// EventLog is the append-only, id-deduplicated room log. The server replays
// overlapping batches after reconnects; the id index makes Append idempotent.
// Order is first-seen arrival order, never resorted; server order is
// authoritative.
type EventLog struct {
	entries []types.LogEntry
	seen    map[int]struct{}
}

func NewEventLog() *EventLog {
	return &EventLog{
		entries: []types.LogEntry{},
		seen:    map[int]struct{}{},
	}
}

// Append inserts the batch entries whose ids have not been seen, preserving
// batch order. Returns the number of entries actually added.
func (l *EventLog) Append(batch []types.LogEntry) int {
	added := 0
	for _, entry := range batch {
		if _, ok := l.seen[entry.ID]; ok {
			continue
		}
		l.seen[entry.ID] = struct{}{}
		l.entries = append(l.entries, entry)
		added++
	}
	return added
}

// AppendNotice appends a client-synthesized entry under types.NoticeID. It
// goes through the same id-presence check as server entries, so a second
// notice within one log lifetime collides and is skipped. That matches the
// shipped client behavior and is kept deliberately.
func (l *EventLog) AppendNotice(content string, timestamp int64) bool {
	return l.Append([]types.LogEntry{{
		ID:        types.NoticeID,
		Timestamp: timestamp,
		Content:   content,
	}}) == 1
}

func (l *EventLog) Len() int { return len(l.entries) }

// Entries returns a copy in first-seen order.
func (l *EventLog) Entries() []types.LogEntry {
	out := make([]types.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
