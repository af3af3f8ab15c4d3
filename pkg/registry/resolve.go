package registry

// Resolve orders specs so that each spec's position is its index.
//
// Items with an explicit index claim that slot in declaration order; an
// index past the end is clamped to the last slot. Items without an index
// then fill the lowest free slots in declaration order. Finally, items that
// lost a contested slot take the first free slot at or after the one they
// asked for, wrapping around to the lowest free slot.
//
// Given [a:0, b, c:0] the result is a, b, c.
func Resolve(specs []Spec) []Spec {
	n := len(specs)
	out := make([]Spec, n)
	taken := make([]bool, n)

	claim := func(slot int, s Spec) {
		taken[slot] = true
		idx := slot
		s.Index = &idx
		out[slot] = s
	}

	var losers []int
	for i, s := range specs {
		if s.Index == nil {
			continue
		}
		want := clampIndex(*s.Index, n)
		if taken[want] {
			losers = append(losers, i)
			continue
		}
		claim(want, s)
	}

	next := 0
	for _, s := range specs {
		if s.Index != nil {
			continue
		}
		for taken[next] {
			next++
		}
		claim(next, s)
	}

	for _, i := range losers {
		want := clampIndex(*specs[i].Index, n)
		claim(firstFree(taken, want), specs[i])
	}

	return out
}

// firstFree returns the first free slot at or after from, wrapping around.
// There is always one, since every spec gets exactly one slot.
func firstFree(taken []bool, from int) int {
	for i := 0; i < len(taken); i++ {
		slot := (from + i) % len(taken)
		if !taken[slot] {
			return slot
		}
	}
	panic("registry: no free slot")
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
