package ledger

// idSet is an insertion-ordered set of message IDs.
type idSet struct {
	items []string
	seen  map[string]bool
}

func newIDSet(ids ...string) *idSet {
	s := &idSet{seen: make(map[string]bool, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// add inserts id and reports whether it was new.
func (s *idSet) add(id string) bool {
	if id == "" || s.seen[id] {
		return false
	}
	s.seen[id] = true
	s.items = append(s.items, id)
	return true
}

func (s *idSet) contains(id string) bool {
	return s.seen[id]
}

// all returns the IDs in insertion order.
func (s *idSet) all() []string {
	return s.items
}
