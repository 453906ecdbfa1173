package disruptor

// MetricsRecorder receives lifecycle and per-publish counters. Calls never
// happen inside the producer's callback window itself, nor on the
// wait_for hot path, so an implementation backed by a real metrics client
// (see package disruptormetrics) only needs to be cheap enough for one
// increment per publish, not per spin of a wait loop.
type MetricsRecorder interface {
	PublishSucceeded(seq Sequence)
	PublishTimedOut()
	SubscriberRegistered()
	SubscriberRemoved()
	Closed()
}

type noopMetrics struct{}

func (noopMetrics) PublishSucceeded(Sequence) {}
func (noopMetrics) PublishTimedOut()          {}
func (noopMetrics) SubscriberRegistered()     {}
func (noopMetrics) SubscriberRemoved()        {}
func (noopMetrics) Closed()                   {}
