package ea

import "sync"

// HallOfFame keeps the best distinct individuals seen across generations,
// best first. Distinctness is decided by same, typically structural
// equality of the values. It is safe for concurrent use.
type HallOfFame[I comparable, F any] struct {
	mu      sync.Mutex
	size    int
	better  Better[F]
	same    func(a, b I) bool
	members []Individual[I, F]
}

// NewHallOfFame returns an empty hall holding at most size members. A nil
// same compares values with ==.
func NewHallOfFame[I comparable, F any](size int, better Better[F], same func(a, b I) bool) *HallOfFame[I, F] {
	if same == nil {
		same = func(a, b I) bool { return a == b }
	}
	return &HallOfFame[I, F]{size: size, better: better, same: same}
}

// Update offers every evaluated individual of pop to the hall.
func (h *HallOfFame[I, F]) Update(pop []Individual[I, F]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ind := range pop {
		if ind.Valid() {
			h.insert(ind)
		}
	}
}

func (h *HallOfFame[I, F]) insert(ind Individual[I, F]) {
	if h.size <= 0 {
		return
	}
	full := len(h.members) >= h.size
	if full && !h.better(*ind.Fitness, *h.members[len(h.members)-1].Fitness) {
		return
	}
	for _, m := range h.members {
		if h.same(m.Value, ind.Value) {
			return
		}
	}
	pos := len(h.members)
	for i, m := range h.members {
		if h.better(*ind.Fitness, *m.Fitness) {
			pos = i
			break
		}
	}
	h.members = append(h.members, Individual[I, F]{})
	copy(h.members[pos+1:], h.members[pos:])
	h.members[pos] = ind
	if len(h.members) > h.size {
		h.members = h.members[:h.size]
	}
}

// Members returns a copy of the hall, best first.
func (h *HallOfFame[I, F]) Members() []Individual[I, F] {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Individual[I, F], len(h.members))
	copy(out, h.members)
	return out
}

// Best returns the best member, if any.
func (h *HallOfFame[I, F]) Best() (Individual[I, F], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.members) == 0 {
		return Individual[I, F]{}, false
	}
	return h.members[0], true
}

// Len returns the number of members.
func (h *HallOfFame[I, F]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members)
}
