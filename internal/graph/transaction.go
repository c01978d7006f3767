package graph

// Transaction is a copy-on-write overlay over a base map. Mutations never
// touch the base until Commit is called; dropping a Transaction (simply not
// calling Commit) leaves the base exactly as it was. This mirrors
// cbmix_graph's Transaction<'a, K, V>: SceneGraph opens three of these
// (nodes, state, dependencies) per mutating call and commits all three only
// once the whole operation has succeeded.
type Transaction[K comparable, V any] struct {
	base    map[K]V
	overlay map[K]V
	clone   func(V) V
}

// NewTransaction opens a transaction over base. clone is used to copy a
// base value into the overlay the first time it is mutated; pass whatever
// deep-copy is appropriate for V so that later mutation of the overlay
// entry can never be observed through base before Commit.
func NewTransaction[K comparable, V any](base map[K]V, clone func(V) V) *Transaction[K, V] {
	return &Transaction[K, V]{
		base:    base,
		overlay: make(map[K]V),
		clone:   clone,
	}
}

// Get reads the overlay first, falling back to the base.
func (t *Transaction[K, V]) Get(key K) (V, bool) {
	if v, ok := t.overlay[key]; ok {
		return v, true
	}
	v, ok := t.base[key]
	return v, ok
}

// Mutate is the transactional get_mut: it lazily clones key's base value
// into the overlay (if the overlay doesn't already have one), applies fn to
// it, and writes the result back into the overlay. The base is never
// touched. Reports whether an entry existed (in either overlay or base) to
// mutate.
func (t *Transaction[K, V]) Mutate(key K, fn func(*V)) bool {
	v, ok := t.overlay[key]
	if !ok {
		base, baseOK := t.base[key]
		if !baseOK {
			return false
		}
		v = t.clone(base)
	}
	fn(&v)
	t.overlay[key] = v
	return true
}

// Insert writes to the overlay only.
func (t *Transaction[K, V]) Insert(key K, val V) {
	t.overlay[key] = val
}

// Commit moves every overlay entry into the base, overwriting.
func (t *Transaction[K, V]) Commit() {
	for k, v := range t.overlay {
		t.base[k] = v
	}
}
