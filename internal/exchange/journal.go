package exchange

// journal records undo closures for the effects of a single call. On any
// later failure the closures run in reverse order, restoring every touched
// balance, list, and total to its pre-call value.
type journal struct {
	undo []func()
}

func newJournal() *journal {
	return &journal{}
}

// record registers an undo closure for a mutation that has just been applied.
func (j *journal) record(undo func()) {
	j.undo = append(j.undo, undo)
}

// revert unwinds every recorded mutation, newest first.
func (j *journal) revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}
