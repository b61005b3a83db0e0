package dedup

// Set holds the external ids already handled in one scrape run.
// It only grows and is dropped with the run; the orchestrator's loop is
// its only writer.
type Set struct {
	seen map[string]struct{}
}

func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add marks id as processed. It reports whether id was new.
func (s *Set) Add(id string) bool {
	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

func (s *Set) Has(id string) bool {
	_, exists := s.seen[id]
	return exists
}

func (s *Set) Len() int {
	return len(s.seen)
}
