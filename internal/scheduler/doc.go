// Package scheduler orders the blocks of a reference graph bottom-up, so that
// every block comes after everything it uses.
//
// # Why Scheduler Exists
//
// Extracting a block writes a unit that links every block it uses. Those
// blocks must already live in their own units at that point, otherwise the
// new unit would carry a local copy of them. The scheduler therefore yields
// a depth-first post-order over the uses direction: for every edge "A is used
// by B", A is yielded before B.
//
// # Cycle Groups
//
// A post-order is undefined on a cycle. Cycle groups produced by
// cycles.Unify are contracted into one scheduling unit: the group's external
// dependencies are yielded first, then all members of the group in stable
// order. A loop that is not covered by a supplied group is a rejected
// precondition. The iteration stops and Err reports a *CyclicInputError.
//
// # Usage
//
// The scheduler follows the scanner pattern:
//
//	s := scheduler.New(graph, groups)
//	for b := range s.Order() {
//	    // extract b
//	}
//	if err := s.Err(); err != nil {
//	    // the order is incomplete
//	}
package scheduler
