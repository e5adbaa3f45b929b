package sketch

// Manager owns one shard's Sketch and keeps its size consistent with the
// shard's capacity bound.
//
// Manager has no lock of its own: the owning shard calls every method while
// holding its lock, which also serializes rebuilds of the same sketch.
type Manager struct {
	s *Sketch
}

// NewManager returns a Manager with a sketch sized for the given bound.
func NewManager(max uint64, bounded bool) *Manager {
	return &Manager{s: New(TableSize(max, bounded))}
}

// ResizeFor rebuilds the sketch if the bound maps to a different table size.
// Rebuilding discards accumulated popularity. It reports whether a rebuild
// happened.
func (m *Manager) ResizeFor(max uint64, bounded bool) bool {
	n := TableSize(max, bounded)
	if n == m.s.Len() {
		return false
	}
	m.s = New(n)
	return true
}

// Increment records an access.
func (m *Manager) Increment(h uint64) { m.s.Increment(h) }

// Frequency returns the estimated popularity of h.
func (m *Manager) Frequency(h uint64) int { return m.s.Frequency(h) }

// Admit reports whether a candidate should replace the victim: it must be
// strictly more popular.
func (m *Manager) Admit(candidate, victim uint64) bool {
	return m.s.Frequency(candidate) > m.s.Frequency(victim)
}

// TableSize returns the size of the installed sketch.
func (m *Manager) TableSize() int { return m.s.Len() }
