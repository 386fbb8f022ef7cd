package agent

import "sync"

// ArgAccumulator reassembles fragmented tool call arguments, keyed by call
// id. An entry lives from the first merge for its id until Release, so
// memory stays bounded to in-flight calls. One accumulator belongs to one
// stream turn; it is created at stream start and discarded at stream end.
type ArgAccumulator struct {
	mu   sync.Mutex
	args map[string]map[string]any
}

// NewArgAccumulator creates an empty accumulator.
func NewArgAccumulator() *ArgAccumulator {
	return &ArgAccumulator{args: make(map[string]map[string]any)}
}

// Merge shallow-merges args into the entry for callID, creating it if
// absent, and returns a copy of the full merged mapping. Later values win
// per key; keys are never removed. An empty args is a no-op that still
// returns the current state.
func (a *ArgAccumulator) Merge(callID string, args map[string]any) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry := a.args[callID]
	if entry == nil {
		entry = make(map[string]any)
		a.args[callID] = entry
	}
	for k, v := range args {
		entry[k] = v
	}
	merged := make(map[string]any, len(entry))
	for k, v := range entry {
		merged[k] = v
	}
	return merged
}

// Release deletes the entry for callID. Idempotent.
func (a *ArgAccumulator) Release(callID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.args, callID)
}

// Len reports the number of in-flight entries.
func (a *ArgAccumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.args)
}
