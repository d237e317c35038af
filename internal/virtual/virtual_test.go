package virtual

import (
	"math"
	"math/rand"
	"testing"

	"pkt.systems/gridstate/schema"
)

const epsilon = 1e-6

func TestComputeScrolledScenario(t *testing.T) {
	v := New(1000, Fixed(50), 10)
	w := v.Compute(2000, 500)

	if w.Empty {
		t.Fatalf("expected non-empty window")
	}
	first, last := w.Rows[0].Index, w.Rows[len(w.Rows)-1].Index
	if first > 30 || last < 50 {
		t.Fatalf("expected rows 30..50 covered, got %d..%d", first, last)
	}
	if first != 30 || last != 59 {
		t.Fatalf("unexpected window %d..%d", first, last)
	}
	if math.Abs(w.PaddingTop-1500) > epsilon {
		t.Fatalf("unexpected padding top %v", w.PaddingTop)
	}
	if math.Abs(w.PaddingBottom-47000) > epsilon {
		t.Fatalf("unexpected padding bottom %v", w.PaddingBottom)
	}
	if w.TotalSize != 50000 {
		t.Fatalf("unexpected total %v", w.TotalSize)
	}
	assertInvariant(t, w.PaddingTop, w.PaddingBottom, w.TotalSize, sizes(w.Rows))
}

func TestComputeEmpty(t *testing.T) {
	w := New(0, Fixed(50), 10).Compute(300, 500)
	if !w.Empty {
		t.Fatalf("expected empty window")
	}
	if len(w.Rows) != 0 || w.PaddingTop != 0 || w.PaddingBottom != 0 || w.TotalSize != 0 {
		t.Fatalf("expected no rows and no spacers, got %+v", w)
	}
}

func TestComputeClampsScroll(t *testing.T) {
	v := New(100, Fixed(10), 0)
	cases := []struct {
		name       string
		offset     float64
		wantScroll float64
		wantFirst  int
		wantLast   int
	}{
		{"negative", -50, 0, 0, 9},
		{"beyond", 5000, 900, 90, 99},
		{"inside", 455, 455, 45, 55},
	}
	for _, tc := range cases {
		w := v.Compute(tc.offset, 100)
		if w.ScrollOffset != tc.wantScroll {
			t.Fatalf("%s: scroll %v, want %v", tc.name, w.ScrollOffset, tc.wantScroll)
		}
		if w.Rows[0].Index != tc.wantFirst || w.Rows[len(w.Rows)-1].Index != tc.wantLast {
			t.Fatalf("%s: window %d..%d, want %d..%d", tc.name, w.Rows[0].Index, w.Rows[len(w.Rows)-1].Index, tc.wantFirst, tc.wantLast)
		}
	}
}

func TestComputeShortList(t *testing.T) {
	w := New(3, Fixed(40), 10).Compute(0, 500)
	if len(w.Rows) != 3 || w.PaddingTop != 0 || w.PaddingBottom != 0 || w.TotalSize != 120 {
		t.Fatalf("unexpected window %+v", w)
	}
}

func TestMeasureRefinesTotal(t *testing.T) {
	v := New(10, Fixed(50), 2)
	if v.TotalSize() != 500 {
		t.Fatalf("unexpected estimated total %v", v.TotalSize())
	}
	v.Measure(0, 80)
	v.Measure(3, 10)
	v.Measure(99, 1000)
	v.Measure(4, -1)
	if v.TotalSize() != 490 {
		t.Fatalf("unexpected measured total %v", v.TotalSize())
	}
	w := v.Compute(100, 60)
	if w.Rows[0].Index != 0 {
		t.Fatalf("expected overscan to reach row 0, got %d", w.Rows[0].Index)
	}
	if w.Rows[1].Start != 80 {
		t.Fatalf("expected row 1 to start after the measured row 0, got %v", w.Rows[1].Start)
	}
	assertInvariant(t, w.PaddingTop, w.PaddingBottom, w.TotalSize, sizes(w.Rows))
}

func TestSetCountDropsStaleMeasurements(t *testing.T) {
	v := New(10, Fixed(10), 0)
	v.Measure(9, 100)
	v.SetCount(5)
	v.SetCount(10)
	if v.TotalSize() != 100 {
		t.Fatalf("expected stale measurement dropped, total %v", v.TotalSize())
	}
}

func TestInvariantHoldsForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for iter := 0; iter < 300; iter++ {
		n := rng.Intn(500)
		v := New(n, func(i int) float64 { return 20 + float64(i%7)*3.3 }, rng.Intn(15))
		for m := 0; m < n/4; m++ {
			v.Measure(rng.Intn(n), rng.Float64()*120)
		}
		offset := rng.Float64()*float64(n)*60 - 100
		viewport := rng.Float64() * 800
		w := v.Compute(offset, viewport)
		if n == 0 {
			if !w.Empty {
				t.Fatalf("iter %d: expected empty window", iter)
			}
			continue
		}
		assertInvariant(t, w.PaddingTop, w.PaddingBottom, w.TotalSize, sizes(w.Rows))
		for i := 1; i < len(w.Rows); i++ {
			if w.Rows[i].Index != w.Rows[i-1].Index+1 || w.Rows[i].Start != w.Rows[i-1].End {
				t.Fatalf("iter %d: rows not contiguous at %d", iter, i)
			}
		}
	}
}

func TestScrollToIndex(t *testing.T) {
	v := New(100, Fixed(10), 0)
	cases := []struct {
		name    string
		index   int
		current float64
		align   Align
		want    float64
	}{
		{"auto-visible", 5, 0, AlignAuto, 0},
		{"auto-below", 20, 0, AlignAuto, 110},
		{"auto-above", 2, 50, AlignAuto, 20},
		{"start", 30, 0, AlignStart, 300},
		{"end", 30, 0, AlignEnd, 210},
		{"center", 30, 0, AlignCenter, 255},
		{"clamped", 99, 0, AlignStart, 900},
		{"out-of-range", 500, 42, AlignStart, 42},
	}
	for _, tc := range cases {
		if got := v.ScrollToIndex(tc.index, tc.current, 100, tc.align); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseAlign(t *testing.T) {
	if ParseAlign("center") != AlignCenter || ParseAlign("bogus") != AlignAuto || ParseAlign("") != AlignAuto {
		t.Fatalf("unexpected align parsing")
	}
}

func sizes(rows []schema.VirtualRow) float64 {
	var sum float64
	for _, row := range rows {
		sum += row.Size()
	}
	return sum
}

func assertInvariant(t *testing.T, top, bottom, total, rendered float64) {
	t.Helper()
	if diff := math.Abs(top + rendered + bottom - total); diff > epsilon*math.Max(1, total) {
		t.Fatalf("padding invariant broken: %v + %v + %v != %v", top, rendered, bottom, total)
	}
}

func TestCountIsClamped(t *testing.T) {
	if got := New(math.MaxInt, Fixed(1), 0).Count(); got != MaxCount {
		t.Fatalf("expected count clamped to %d, got %d", MaxCount, got)
	}
	v := New(10, Fixed(1), 0)
	v.SetCount(math.MaxInt)
	if got := v.Count(); got != MaxCount {
		t.Fatalf("expected SetCount clamped to %d, got %d", MaxCount, got)
	}
	v.SetCount(-5)
	if got := v.Count(); got != 0 {
		t.Fatalf("expected negative count clamped to 0, got %d", got)
	}
}

func TestNonFiniteInputsAreIgnored(t *testing.T) {
	v := New(100, Fixed(10), 0)
	v.Measure(3, math.NaN())
	v.Measure(4, math.Inf(1))
	if total := v.TotalSize(); total != 1000 {
		t.Fatalf("non-finite measurements changed total: %v", total)
	}
	w := v.Compute(math.NaN(), math.NaN())
	if math.IsNaN(w.ScrollOffset) || w.ScrollOffset != 0 {
		t.Fatalf("expected NaN offset to clamp to 0, got %v", w.ScrollOffset)
	}
	if len(w.Rows) != 1 || w.Rows[0].Index != 0 {
		t.Fatalf("expected a single row for a NaN viewport, got %+v", w.Rows)
	}
	assertInvariant(t, w.PaddingTop, w.PaddingBottom, w.TotalSize, sizes(w.Rows))

	nan := New(5, func(int) float64 { return math.NaN() }, 0)
	if total := nan.TotalSize(); total != 0 {
		t.Fatalf("expected NaN estimates to count as 0, got %v", total)
	}
}
