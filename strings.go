package regl

// stringStore interns attribute and uniform names, giving every distinct
// name a small integer id. Ids index scope-state tables and program
// metadata without string hashing on the hot path. Interned ids are
// never evicted; the set of names in a program is small and stable.
type stringStore struct {
	ids   map[string]int
	names []string
}

func newStringStore() *stringStore {
	return &stringStore{ids: make(map[string]int)}
}

// id interns a name.
func (s *stringStore) id(name string) int {
	if id, ok := s.ids[name]; ok {
		return id
	}
	id := len(s.names)
	s.ids[name] = id
	s.names = append(s.names, name)
	return id
}

// str returns the name for an interned id.
func (s *stringStore) str(id int) string {
	if id < 0 || id >= len(s.names) {
		return ""
	}
	return s.names[id]
}
