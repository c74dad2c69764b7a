// Package backoff provides the retry policy used by the polling engine:
// exponential delays derived from a consecutive-failure count, plus a
// bounded-retry predicate.
//
// The policy is a pure value with no I/O or internal state, which keeps
// retry decisions trivially testable:
//
//	p := backoff.Default()
//	if p.ShouldContinue(failures) {
//	    time.Sleep(p.NextDelay(failures))
//	}
package backoff
