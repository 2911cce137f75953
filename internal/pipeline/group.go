package pipeline

// grouper accumulates values per key and remembers first-seen key order.
type grouper[K comparable, V any] struct {
	index map[K]int
	keys  []K
	vals  []V
}

func newGrouper[K comparable, V any](capacity int) *grouper[K, V] {
	return &grouper[K, V]{index: make(map[K]int, capacity)}
}

// at returns the accumulator for key, creating a zero value on first use.
func (g *grouper[K, V]) at(key K) *V {
	i, ok := g.index[key]
	if !ok {
		i = len(g.keys)
		g.index[key] = i
		g.keys = append(g.keys, key)
		var zero V
		g.vals = append(g.vals, zero)
	}
	return &g.vals[i]
}

// each calls fn for every group in first-seen order.
func (g *grouper[K, V]) each(fn func(K, V)) {
	for i, key := range g.keys {
		fn(key, g.vals[i])
	}
}

type totals struct {
	quantity float64
	amount   float64
}

func (t *totals) add(quantity, amount float64) {
	t.quantity += quantity
	t.amount += amount
}
