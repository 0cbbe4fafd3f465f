package diag

import (
	"sort"
)

// Bag accumulates diagnostics up to a fixed limit.
// Diagnostics past the limit are counted but not stored.
type Bag struct {
	items   []Diagnostic
	max     int
	dropped int
}

// NewBag creates a bag holding at most max diagnostics. max <= 0 means unlimited.
func NewBag(max int) *Bag {
	return &Bag{max: max}
}

// Add appends d. Returns false if the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// AddAll appends every diagnostic in ds, respecting the limit.
func (b *Bag) AddAll(ds []Diagnostic) {
	for _, d := range ds {
		b.Add(d)
	}
}

// Len returns the number of stored diagnostics.
func (b *Bag) Len() int {
	return len(b.items)
}

// Dropped returns how many diagnostics were discarded because the bag was full.
func (b *Bag) Dropped() int {
	return b.dropped
}

// Items returns the stored diagnostics. Callers must not modify the slice.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// HasErrors reports whether any stored diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Count returns the number of stored diagnostics with the given code.
func (b *Bag) Count(code Code) int {
	n := 0
	for i := range b.items {
		if b.items[i].Code == code {
			n++
		}
	}
	return n
}

// Sort orders diagnostics by unit, start offset, end offset, severity (desc), code.
func (b *Bag) Sort() {
	Sort(b.items)
}

// Dedup removes diagnostics repeating the same code, range and message.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		unit string
		off  int
		end  int
		msg  string
	}
	seen := make(map[key]bool, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		k := key{d.Code, d.Range.Unit, d.Range.StartOffset, d.Range.EndOffset, d.Message}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	b.items = out
}

// Sort orders ds in place for stable, reproducible output.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		di, dj := ds[i], ds[j]
		if di.Range.Unit != dj.Range.Unit {
			return di.Range.Unit < dj.Range.Unit
		}
		if di.Range.StartOffset != dj.Range.StartOffset {
			return di.Range.StartOffset < dj.Range.StartOffset
		}
		if di.Range.EndOffset != dj.Range.EndOffset {
			return di.Range.EndOffset < dj.Range.EndOffset
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})
}
