package cache

// NoopMetrics is a Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                   {}
func (NoopMetrics) Miss()                  {}
func (NoopMetrics) Evict(EvictReason)      {}
func (NoopMetrics) Size(int, int, uint64)  {}
func (NoopMetrics) Capacity(Bound)         {}
func (NoopMetrics) Resized(from, to Bound) {}

var _ Metrics = NoopMetrics{}
