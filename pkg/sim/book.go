package sim

// book keeps open orders in insertion order with an id index for O(1)
// duplicate checks and lookups. Removal keeps the relative order of the
// remaining orders.
type book struct {
	seq  []*Order
	byID map[OrderID]*Order
}

func newBook() *book {
	return &book{byID: make(map[OrderID]*Order)}
}

func (b *book) len() int { return len(b.seq) }

func (b *book) get(id OrderID) (*Order, bool) {
	o, ok := b.byID[id]
	return o, ok
}

func (b *book) add(o *Order) bool {
	if _, exists := b.byID[o.ID]; exists {
		return false
	}
	b.seq = append(b.seq, o)
	b.byID[o.ID] = o
	return true
}

func (b *book) remove(id OrderID) bool {
	o, ok := b.byID[id]
	if !ok {
		return false
	}
	delete(b.byID, id)
	for i, cur := range b.seq {
		if cur == o {
			b.seq = append(b.seq[:i], b.seq[i+1:]...)
			break
		}
	}
	return true
}

// retain walks the book in order and drops every order for which keep
// returns false. keep may read other book state but must not add or remove.
func (b *book) retain(keep func(*Order) bool) {
	kept := b.seq[:0]
	for _, o := range b.seq {
		if keep(o) {
			kept = append(kept, o)
			continue
		}
		delete(b.byID, o.ID)
	}
	for i := len(kept); i < len(b.seq); i++ {
		b.seq[i] = nil
	}
	b.seq = kept
}

func (b *book) snapshot() []Order {
	out := make([]Order, len(b.seq))
	for i, o := range b.seq {
		out[i] = *o
	}
	return out
}
