package window

import (
	"math"
	"math/rand"
	"testing"
)

func naiveStats(values []float64) Stats {
	s := Stats{Count: len(values)}
	if len(values) == 0 {
		return s
	}
	s.Min = values[0]
	s.Max = values[0]
	for _, v := range values {
		s.Sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	n := float64(len(values))
	s.Mean = s.Sum / n
	if len(values) > 1 {
		var ss float64
		for _, v := range values {
			d := v - s.Mean
			ss += d * d
		}
		variance := ss / (n - 1)
		sd := math.Sqrt(variance)
		s.Variance = &variance
		s.StdDev = &sd
	}
	return s
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestFrameSoFar(t *testing.T) {
	e := New(3)

	s := e.Push(10)
	if s.Count != 1 || s.Mean != 10 {
		t.Fatalf("after first push: count=%d mean=%v", s.Count, s.Mean)
	}
	if s.Variance != nil {
		t.Fatalf("variance must be nil with one value")
	}

	s = e.Push(20)
	if s.Count != 2 || s.Mean != 15 {
		t.Fatalf("after second push: count=%d mean=%v", s.Count, s.Mean)
	}
	if s.Variance == nil || !almostEqual(*s.Variance, 50) {
		t.Fatalf("expected sample variance 50, got %v", s.Variance)
	}
}

func TestEviction(t *testing.T) {
	e := New(2)
	e.Push(100)
	e.Push(105)
	s := e.Push(110.25)
	if s.Count != 2 {
		t.Fatalf("expected window of 2, got %d", s.Count)
	}
	if !almostEqual(s.Mean, (105+110.25)/2) {
		t.Fatalf("expected mean 107.625, got %v", s.Mean)
	}
	if s.Min != 105 || s.Max != 110.25 {
		t.Fatalf("min/max wrong after eviction: %v/%v", s.Min, s.Max)
	}
}

func TestMinMaxMonotonicSequences(t *testing.T) {
	e := New(4)
	for i, v := range []float64{5, 4, 3, 2, 1} {
		s := e.Push(v)
		if s.Min != v {
			t.Fatalf("descending push %d: min=%v want %v", i, s.Min, v)
		}
	}
	e.Reset()
	for i, v := range []float64{1, 2, 3, 4, 5} {
		s := e.Push(v)
		if s.Max != v {
			t.Fatalf("ascending push %d: max=%v want %v", i, s.Max, v)
		}
	}
}

func TestMatchesNaiveRecomputation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, size := range []int{1, 2, 5, 14, 20, 60} {
		e := New(size)
		var values []float64
		for i := 0; i < 500; i++ {
			v := rng.NormFloat64() * 0.03 // percentage-return scale
			values = append(values, v)
			got := e.Push(v)

			lo := len(values) - size
			if lo < 0 {
				lo = 0
			}
			want := naiveStats(values[lo:])

			if got.Count != want.Count {
				t.Fatalf("size=%d i=%d count=%d want %d", size, i, got.Count, want.Count)
			}
			if !almostEqual(got.Mean, want.Mean) {
				t.Fatalf("size=%d i=%d mean=%v want %v", size, i, got.Mean, want.Mean)
			}
			if got.Min != want.Min || got.Max != want.Max {
				t.Fatalf("size=%d i=%d min/max=%v/%v want %v/%v", size, i, got.Min, got.Max, want.Min, want.Max)
			}
			if (got.Variance == nil) != (want.Variance == nil) {
				t.Fatalf("size=%d i=%d variance nilness mismatch", size, i)
			}
			if got.Variance != nil && !almostEqual(*got.Variance, *want.Variance) {
				t.Fatalf("size=%d i=%d variance=%v want %v", size, i, *got.Variance, *want.Variance)
			}
		}
	}
}

func TestReset(t *testing.T) {
	e := New(3)
	e.Push(1)
	e.Push(2)
	e.Reset()
	if e.Count() != 0 {
		t.Fatalf("count must be zero after reset")
	}
	s := e.Push(7)
	if s.Count != 1 || s.Min != 7 || s.Max != 7 {
		t.Fatalf("unexpected stats after reset: %+v", s)
	}
}
