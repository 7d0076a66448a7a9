// engine/history.go
package engine

import (
	"sync"
	"time"

	"github.com/agentgate/agentgate/model"
)

// HistoryLog is the append-only per-agent change history. Every config
// mutation and every terminal decision appends one record; records are never
// deleted, only capped by the caller-supplied limit on read.
type HistoryLog struct {
	mu      sync.RWMutex
	entries map[string][]model.ChangeRecord
}

func NewHistoryLog() *HistoryLog {
	return &HistoryLog{entries: make(map[string][]model.ChangeRecord)}
}

// Append records a change for the agent. A zero timestamp is filled in.
func (h *HistoryLog) Append(record model.ChangeRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	h.mu.Lock()
	h.entries[record.AgentID] = append(h.entries[record.AgentID], record)
	h.mu.Unlock()
}

// Tail returns the most recent records for the agent, newest last. A limit of
// zero or less returns the full history.
func (h *HistoryLog) Tail(agentID string, limit int) []model.ChangeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := h.entries[agentID]
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]model.ChangeRecord, len(records))
	copy(out, records)
	return out
}
