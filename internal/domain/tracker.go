package domain

// Buckets groups a player's live lines by how many cells each still needs:
// Buckets[k] holds the lines missing k cells, Buckets[0] the completed ones.
type Buckets [][]Line

// Len returns the number of lines across all buckets.
func (b Buckets) Len() int {
	n := 0
	for _, lines := range b {
		n += len(lines)
	}
	return n
}

// Closest returns the smallest k >= from whose bucket is non-empty, or -1.
func (b Buckets) Closest(from int) int {
	for k := from; k < len(b); k++ {
		if len(b[k]) > 0 {
			return k
		}
	}
	return -1
}

// Tracker is one player's candidate index. Lines the opponent has touched
// are dropped; the rest move one bucket down for every own claim.
type Tracker struct {
	buckets Buckets
	total   int
	purged  int
}

// NewTracker seeds a tracker with every line in the top bucket.
func NewTracker(size int, lines []Line) *Tracker {
	b := make(Buckets, size+1)
	b[size] = append([]Line(nil), lines...)
	return &Tracker{buckets: b, total: len(lines)}
}

// ClaimOwn records that the owner took cell and reports whether some line
// is now complete.
func (t *Tracker) ClaimOwn(cell int) bool {
	// Walk upwards so a line dropped into bucket k-1 is not seen again.
	for k := 1; k < len(t.buckets); k++ {
		keep := t.buckets[k][:0]
		for _, l := range t.buckets[k] {
			if l.Contains(cell) {
				t.buckets[k-1] = append(t.buckets[k-1], l)
				continue
			}
			keep = append(keep, l)
		}
		clear(t.buckets[k][len(keep):])
		t.buckets[k] = keep
	}
	return t.Won()
}

// ClaimOpponent drops every line containing cell. Calling it again for the
// same cell is a no-op.
func (t *Tracker) ClaimOpponent(cell int) {
	for k := range t.buckets {
		keep := t.buckets[k][:0]
		for _, l := range t.buckets[k] {
			if l.Contains(cell) {
				t.purged++
				continue
			}
			keep = append(keep, l)
		}
		clear(t.buckets[k][len(keep):])
		t.buckets[k] = keep
	}
}

// Won reports whether a line has been completed.
func (t *Tracker) Won() bool {
	return len(t.buckets[0]) > 0
}

// Live returns the number of lines still tracked, completed ones included.
func (t *Tracker) Live() int { return t.buckets.Len() }

// Purged returns the number of lines dropped because of opponent claims.
func (t *Tracker) Purged() int { return t.purged }

// Total returns the number of lines the tracker was seeded with.
func (t *Tracker) Total() int { return t.total }

// Snapshot returns a copy of the buckets safe to hand to move sources.
func (t *Tracker) Snapshot() Buckets {
	out := make(Buckets, len(t.buckets))
	for k, lines := range t.buckets {
		out[k] = append([]Line(nil), lines...)
	}
	return out
}
