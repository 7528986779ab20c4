package services

import "sort"

func intPtr(v int) *int {
	return &v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// intSet collects ids and returns them sorted and unique.
type intSet map[int]struct{}

func (s intSet) add(ids ...int) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s intSet) sorted() []int {
	out := make([]int, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
