package filterchain

import "sync"

// Evaluator offloads expensive transform computation to worker goroutines
// for preview purposes, while the owning goroutine stays responsive.
//
// Two guarantees hold per stage:
//
//   - At most one computation runs at a time, whether the stage was
//     evaluated directly or reached as the uncached upstream of another
//     worker. A request made while a computation is already populating the
//     stage's cache observes the in-progress state and does not launch a
//     duplicate; a worker arriving at a stage mid-computation waits for
//     that result instead of recomputing it.
//   - A result computed against a stage that was invalidated mid-flight is
//     discarded, never written into the cache. Staleness is detected with
//     the stage's generation counter, snapshotted when the evaluation
//     begins and re-checked under the stage lock when it completes.
//
// The published cache value becomes visible to the owning goroutine only
// after the completed image is fully constructed (the write happens under
// the stage lock), so a reader never observes a partial image.
type Evaluator struct {
	wg sync.WaitGroup
}

// NewEvaluator creates an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate schedules asynchronous cache population for s. It returns false
// without scheduling anything when the stage is disabled, already holds a
// cached value, or another evaluation is in flight.
//
// The worker computes against a snapshot of the stage's transform and
// source taken here, under the stage lock: the owning goroutine is free to
// edit the stage mid-flight, and the stale result is then discarded.
//
// done, if non-nil, is called from the worker goroutine when the
// evaluation completes; a nil error does not imply the result was
// published (it may have been discarded as stale).
func (e *Evaluator) Evaluate(s *Stage, done func(error)) bool {
	snap, ok := s.tryBeginEvaluation()
	if !ok {
		return false
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		out, err := s.computeOutput(snap)
		s.finishEvaluation(out, snap.gen, err)
		if done != nil {
			done(err)
		}
	}()
	return true
}

// Wait blocks until every evaluation scheduled so far has completed.
func (e *Evaluator) Wait() {
	e.wg.Wait()
}
