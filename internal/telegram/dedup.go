package telegram

import (
	"slices"
	"sync"
)

// DefaultDedupCapacity is how many update ids are remembered.
const DefaultDedupCapacity = 1000

// Dedup remembers recently seen update ids so Telegram's redeliveries are
// processed once. When it grows past capacity the numerically smallest half
// is forgotten.
type Dedup struct {
	mu       sync.Mutex
	capacity int
	seen     map[int64]struct{}
}

func NewDedup(capacity int) *Dedup {
	if capacity < 2 {
		capacity = DefaultDedupCapacity
	}
	return &Dedup{capacity: capacity, seen: make(map[int64]struct{}, capacity+1)}
}

// Seen reports whether id was already recorded, recording it if not.
func (d *Dedup) Seen(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	if len(d.seen) > d.capacity {
		d.evict()
	}
	return false
}

// Len returns the number of remembered ids.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *Dedup) evict() {
	ids := make([]int64, 0, len(d.seen))
	for id := range d.seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids[:d.capacity/2] {
		delete(d.seen, id)
	}
}
