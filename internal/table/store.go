package table

// Store maps table names to tables and remembers insertion order so that
// reports and loads are deterministic. Stages replace tables wholesale via
// Put; a table is never partially updated in place by the Store itself.
type Store struct {
	tables map[string]*Table
	order  []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// Put stores t under name, replacing any previous table of that name.
func (s *Store) Put(name string, t *Table) {
	if _, ok := s.tables[name]; !ok {
		s.order = append(s.order, name)
	}
	t.Name = name
	s.tables[name] = t
}

// Get returns the named table.
func (s *Store) Get(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Has reports whether the named table exists.
func (s *Store) Has(name string) bool {
	_, ok := s.tables[name]
	return ok
}

// Missing returns the names not present in the store, in argument order.
func (s *Store) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		if !s.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Names returns table names in insertion order.
func (s *Store) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of tables.
func (s *Store) Len() int { return len(s.order) }
