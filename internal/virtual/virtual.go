// Package virtual computes the visible row window of a large list.
//
// A Virtualizer keeps one size per row (an estimate until the row is
// measured) and answers which rows intersect the viewport plus overscan.
// Rows outside the window are represented by two spacer paddings so the
// scroll geometry of the full list is preserved:
//
//	PaddingTop + sum(rendered row sizes) + PaddingBottom == TotalSize
package virtual

import (
	"math"
	"sort"
	"sync"

	"pkt.systems/gridstate/schema"
)

// MaxCount is the largest row count a Virtualizer lays out; larger counts
// are clamped.
const MaxCount = 10_000_000

// Estimator returns the estimated size of the row at index.
type Estimator func(index int) float64

// Fixed returns an Estimator that reports size for every row.
func Fixed(size float64) Estimator {
	return func(int) float64 { return size }
}

// Virtualizer computes windows over Count rows.
type Virtualizer struct {
	mu       sync.Mutex
	count    int
	estimate Estimator
	overscan int
	measured map[int]float64

	// offsets[i] is the start of row i; offsets[count] is the total size.
	offsets []float64
	dirty   bool
}

// New creates a virtualizer. A nil estimate uses the engine default row height;
// a negative overscan is treated as zero.
func New(count int, estimate Estimator, overscan int) *Virtualizer {
	if estimate == nil {
		estimate = Fixed(schema.DefaultRowHeightEstimate)
	}
	count = clampCount(count)
	if overscan < 0 {
		overscan = 0
	}
	return &Virtualizer{
		count:    count,
		estimate: estimate,
		overscan: overscan,
		measured: make(map[int]float64),
		dirty:    true,
	}
}

// Count returns the number of rows.
func (v *Virtualizer) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.count
}

// SetCount changes the number of rows, clamped to [0, MaxCount].
// Measurements past the new count are dropped.
func (v *Virtualizer) SetCount(count int) {
	count = clampCount(count)
	v.mu.Lock()
	defer v.mu.Unlock()
	if count == v.count {
		return
	}
	for index := range v.measured {
		if index >= count {
			delete(v.measured, index)
		}
	}
	v.count = count
	v.dirty = true
}

// SetEstimate replaces the size estimator. Measured rows keep their size.
func (v *Virtualizer) SetEstimate(estimate Estimator) {
	if estimate == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.estimate = estimate
	v.dirty = true
}

// SetOverscan changes the overscan row count.
func (v *Virtualizer) SetOverscan(overscan int) {
	if overscan < 0 {
		overscan = 0
	}
	v.mu.Lock()
	v.overscan = overscan
	v.mu.Unlock()
}

// Measure records the real size of a row, refining TotalSize. Out-of-range
// indices and negative or non-finite sizes are ignored.
func (v *Virtualizer) Measure(index int, size float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if index < 0 || index >= v.count || size < 0 || !finite(size) {
		return
	}
	if current, ok := v.measured[index]; ok && current == size {
		return
	}
	v.measured[index] = size
	v.dirty = true
}

// TotalSize returns the size of the whole list.
func (v *Virtualizer) TotalSize() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.layout()
	return v.offsets[v.count]
}

// MaxScroll returns the largest valid scroll offset for a viewport.
func (v *Virtualizer) MaxScroll(viewport float64) float64 {
	return maxScroll(v.TotalSize(), viewport)
}

// Compute returns the window for a scroll offset and viewport size. The
// offset is clamped to [0, MaxScroll].
func (v *Virtualizer) Compute(scrollOffset, viewportSize float64) schema.Window {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.count == 0 {
		return schema.Window{Rows: []schema.VirtualRow{}, Empty: true}
	}
	v.layout()
	total := v.offsets[v.count]
	if viewportSize < 0 || math.IsNaN(viewportSize) {
		viewportSize = 0
	}
	scroll := clampScroll(scrollOffset, total, viewportSize)

	first := sort.Search(v.count, func(i int) bool { return v.offsets[i+1] > scroll })
	if first >= v.count {
		first = v.count - 1
	}
	bottom := scroll + viewportSize
	last := sort.Search(v.count, func(i int) bool { return v.offsets[i] >= bottom }) - 1
	if last < first {
		last = first
	}
	start := max(first-v.overscan, 0)
	end := min(last+v.overscan, v.count-1)

	rows := make([]schema.VirtualRow, 0, end-start+1)
	for i := start; i <= end; i++ {
		rows = append(rows, schema.VirtualRow{Index: i, Start: v.offsets[i], End: v.offsets[i+1]})
	}
	return schema.Window{
		Rows:          rows,
		PaddingTop:    v.offsets[start],
		PaddingBottom: total - v.offsets[end+1],
		TotalSize:     total,
		ScrollOffset:  scroll,
	}
}

// Align selects where ScrollToIndex places a row.
type Align string

const (
	// AlignAuto scrolls the minimum distance that makes the row fully visible.
	AlignAuto   Align = "auto"
	AlignStart  Align = "start"
	AlignCenter Align = "center"
	AlignEnd    Align = "end"
)

// ParseAlign maps a string to an Align, defaulting to AlignAuto.
func ParseAlign(value string) Align {
	switch Align(value) {
	case AlignStart, AlignCenter, AlignEnd:
		return Align(value)
	default:
		return AlignAuto
	}
}

// ScrollToIndex returns the scroll offset that brings index into view.
// Out-of-range indices return current unchanged.
func (v *Virtualizer) ScrollToIndex(index int, current, viewport float64, align Align) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if index < 0 || index >= v.count {
		return current
	}
	v.layout()
	total := v.offsets[v.count]
	top := v.offsets[index]
	bottom := v.offsets[index+1]
	var target float64
	switch align {
	case AlignStart:
		target = top
	case AlignEnd:
		target = bottom - viewport
	case AlignCenter:
		target = top - (viewport-(bottom-top))/2
	default:
		switch {
		case top < current:
			target = top
		case bottom > current+viewport:
			target = bottom - viewport
		default:
			target = current
		}
	}
	return clampScroll(target, total, viewport)
}

func (v *Virtualizer) layout() {
	if !v.dirty && len(v.offsets) == v.count+1 {
		return
	}
	if cap(v.offsets) >= v.count+1 {
		v.offsets = v.offsets[:v.count+1]
	} else {
		v.offsets = make([]float64, v.count+1)
	}
	v.offsets[0] = 0
	for i := 0; i < v.count; i++ {
		v.offsets[i+1] = v.offsets[i] + v.size(i)
	}
	v.dirty = false
}

func (v *Virtualizer) size(index int) float64 {
	if size, ok := v.measured[index]; ok {
		return size
	}
	size := v.estimate(index)
	if size < 0 || !finite(size) {
		return 0
	}
	return size
}

func maxScroll(total, viewport float64) float64 {
	if total <= viewport {
		return 0
	}
	return total - viewport
}

func clampScroll(offset, total, viewport float64) float64 {
	limit := maxScroll(total, viewport)
	if offset < 0 || math.IsNaN(offset) {
		return 0
	}
	if offset > limit {
		return limit
	}
	return offset
}

func clampCount(count int) int {
	return min(max(count, 0), MaxCount)
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
