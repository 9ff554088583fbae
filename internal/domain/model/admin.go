package model

import "sort"

// AdminSet is an immutable allowlist of administrator identities.
type AdminSet struct {
	ids map[int64]struct{}
}

// NewAdminSet builds allowlist from identifiers, ignoring duplicates.
func NewAdminSet(ids ...int64) AdminSet {
	set := AdminSet{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is an administrator.
func (a AdminSet) Contains(id int64) bool {
	_, ok := a.ids[id]
	return ok
}

// IDs returns administrators in ascending order.
func (a AdminSet) IDs() []int64 {
	out := make([]int64, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns number of administrators.
func (a AdminSet) Len() int {
	return len(a.ids)
}
