package schema

// RefSet is the currency of related-index answers.
type RefSet map[Ref]struct{}

func NewRefSet(refs ...Ref) RefSet {
	set := make(RefSet, len(refs))
	for _, r := range refs {
		set[r] = struct{}{}
	}
	return set
}

func (s RefSet) Add(r Ref) {
	s[r] = struct{}{}
}

func (s RefSet) Has(r Ref) bool {
	_, ok := s[r]
	return ok
}

func (s RefSet) Union(other RefSet) {
	for r := range other {
		s[r] = struct{}{}
	}
}

// Refs dumps the members in no particular order.
func (s RefSet) Refs() []Ref {
	refs := make([]Ref, 0, len(s))
	for r := range s {
		refs = append(refs, r)
	}
	return refs
}
