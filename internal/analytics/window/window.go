package window

import "math"

// Stats is the aggregate view of one rolling window after a push. Variance
// and StdDev use the sample (N-1) denominator and are nil while the window
// holds fewer than two values.
type Stats struct {
	Count    int
	Sum      float64
	Mean     float64
	Variance *float64
	StdDev   *float64
	Min      float64
	Max      float64
}

type indexed struct {
	seq int
	val float64
}

// Engine is a rolling-window aggregator over a stream of values. Each push
// updates the running sum and sum-of-squares in O(1); once the buffer exceeds
// the window size the oldest value is evicted and the aggregates decremented.
// Min/max are maintained with monotonic deques, O(1) amortized per push.
//
// Until the window fills, stats cover however many values are available (the
// "frame so far"), matching window frames bounded by N-1 preceding rows.
//
// Sum-of-squares accumulation is numerically adequate here: windows are
// bounded and the values are prices or percentage returns.
type Engine struct {
	size  int
	buf   []float64
	head  int
	count int
	seq   int

	sum   float64
	sumSq float64

	minq []indexed
	maxq []indexed
}

// New creates an engine with the given window size, a count of trailing
// observations including the current one. Sizes below 1 are clamped to 1.
func New(size int) *Engine {
	if size < 1 {
		size = 1
	}
	return &Engine{size: size, buf: make([]float64, size)}
}

// Size returns the configured window size.
func (e *Engine) Size() int { return e.size }

// Count returns the number of values currently in the window.
func (e *Engine) Count() int { return e.count }

// Full reports whether the window holds Size values.
func (e *Engine) Full() bool { return e.count == e.size }

// Push adds a value, evicting the oldest if the window is full, and returns
// the resulting window stats.
func (e *Engine) Push(v float64) Stats {
	if e.count == e.size {
		old := e.buf[e.head]
		e.sum -= old
		e.sumSq -= old * old
		e.count--
	}
	e.buf[e.head] = v
	e.head = (e.head + 1) % e.size
	e.count++
	e.sum += v
	e.sumSq += v * v

	// Monotonic deques: evict entries that fell out of the window, then
	// entries dominated by the new value.
	cutoff := e.seq - e.size + 1
	for len(e.minq) > 0 && e.minq[0].seq < cutoff {
		e.minq = e.minq[1:]
	}
	for len(e.maxq) > 0 && e.maxq[0].seq < cutoff {
		e.maxq = e.maxq[1:]
	}
	for len(e.minq) > 0 && e.minq[len(e.minq)-1].val >= v {
		e.minq = e.minq[:len(e.minq)-1]
	}
	for len(e.maxq) > 0 && e.maxq[len(e.maxq)-1].val <= v {
		e.maxq = e.maxq[:len(e.maxq)-1]
	}
	e.minq = append(e.minq, indexed{seq: e.seq, val: v})
	e.maxq = append(e.maxq, indexed{seq: e.seq, val: v})
	e.seq++

	return e.Stats()
}

// Stats returns the current window aggregates without pushing.
func (e *Engine) Stats() Stats {
	s := Stats{Count: e.count, Sum: e.sum}
	if e.count == 0 {
		return s
	}
	n := float64(e.count)
	s.Mean = e.sum / n
	s.Min = e.minq[0].val
	s.Max = e.maxq[0].val
	if e.count > 1 {
		variance := (e.sumSq - n*s.Mean*s.Mean) / (n - 1)
		if variance < 0 {
			variance = 0 // guard tiny negative from cancellation
		}
		sd := math.Sqrt(variance)
		s.Variance = &variance
		s.StdDev = &sd
	}
	return s
}

// Reset empties the window for reuse.
func (e *Engine) Reset() {
	e.head = 0
	e.count = 0
	e.seq = 0
	e.sum = 0
	e.sumSq = 0
	e.minq = e.minq[:0]
	e.maxq = e.maxq[:0]
}
