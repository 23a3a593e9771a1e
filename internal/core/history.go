package core

import "time"

// HistoryCapacity is the number of calculations kept in the history log.
const HistoryCapacity = 10

// History is a bounded, newest-first log of calculations.
type History struct {
	entries []HistoryEntry
}

// NewHistory builds a history from entries already ordered newest first,
// dropping anything beyond capacity.
func NewHistory(entries []HistoryEntry) *History {
	h := &History{}
	for i := len(entries) - 1; i >= 0; i-- {
		h.Push(entries[i])
	}
	return h
}

// Push records a copy of e as the newest entry and evicts the oldest beyond
// capacity.
func (h *History) Push(e HistoryEntry) {
	h.entries = append([]HistoryEntry{e.Clone()}, h.entries...)
	if len(h.entries) > HistoryCapacity {
		h.entries = h.entries[:HistoryCapacity]
	}
}

// Entries returns a deep copy of the log, newest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Clone()
	}
	return out
}

// Find returns a copy of the entry with the given ID.
func (h *History) Find(id string) (HistoryEntry, bool) {
	for _, e := range h.entries {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return HistoryEntry{}, false
}

// Clone returns e with its own Members and Results backing arrays.
func (e HistoryEntry) Clone() HistoryEntry {
	e.Members = append([]Member(nil), e.Members...)
	e.Results = append([]BillResult(nil), e.Results...)
	return e
}

// NewHistoryEntry snapshots a calculation. Slices are copied so later roster
// edits never reach a recorded entry.
func NewHistoryEntry(id string, at time.Time, members []Member, exp ExpenseInputs, calc Calculation) HistoryEntry {
	return HistoryEntry{
		ID:        id,
		CreatedAt: at.UTC(),
		Members:   members,
		Expenses:  exp,
		Results:   calc.Results,
		Overview:  calc.Overview,
	}.Clone()
}
