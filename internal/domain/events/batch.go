package events

import "sync"

// Batch collects the events of one pass in arrival order and drops duplicates by key.
type Batch struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Event
}

func NewBatch() *Batch {
	return &Batch{seen: make(map[string]struct{})}
}

// Add appends events not seen before and returns how many were kept.
func (b *Batch) Add(evs ...Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := 0
	for _, e := range evs {
		if e == nil {
			continue
		}
		key := e.Key()
		if _, dup := b.seen[key]; dup {
			continue
		}
		b.seen[key] = struct{}{}
		b.events = append(b.events, e)
		kept++
	}
	return kept
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Events returns a copy of the collected events.
func (b *Batch) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// CountByKind tallies events per kind.
func CountByKind(evs []Event) map[Kind]int {
	counts := make(map[Kind]int)
	for _, e := range evs {
		counts[e.Kind()]++
	}
	return counts
}
