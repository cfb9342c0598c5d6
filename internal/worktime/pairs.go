package worktime

// Pair couples a clock-in stamp with its clock-out and the raw interval
// between them.
type Pair struct {
	In       Stamp
	Out      Stamp
	Interval Interval
}

// PairIter walks chronologically ordered stamps and yields pairs
// lazily. A stamp that cannot pair with its successor (different day)
// is skipped in place; a trailing unpaired stamp yields nothing.
type PairIter struct {
	stamps []Stamp
	pos    int
}

// Pairs returns an iterator over the given stamps. The slice must
// already be ordered by day, then time.
func Pairs(stamps []Stamp) *PairIter {
	return &PairIter{stamps: stamps}
}

// Next yields the next pair, or false when the stamps are exhausted.
func (it *PairIter) Next() (Pair, bool) {
	for it.pos+1 < len(it.stamps) {
		in := it.stamps[it.pos]
		out := it.stamps[it.pos+1]
		iv, ok := NewInterval(in, out)
		if !ok {
			it.pos++
			continue
		}
		it.pos += 2
		return Pair{In: in, Out: out, Interval: iv}, true
	}
	return Pair{}, false
}
