package virtual

import (
	"testing"

	"pkt.systems/gridstate/schema"
)

func TestObserveRecomputesOnScroll(t *testing.T) {
	vp := NewStaticViewport(0, 500)
	v := New(1000, Fixed(50), 10)

	var windows []schema.Window
	stop := Observe(vp, v, func(w schema.Window) {
		windows = append(windows, w)
	})
	if len(windows) != 1 || windows[0].PaddingTop != 0 {
		t.Fatalf("expected initial window, got %+v", windows)
	}

	vp.ScrollTo(2000)
	if len(windows) != 2 || windows[1].PaddingTop != 1500 {
		t.Fatalf("expected recompute after scroll, got %d windows", len(windows))
	}

	vp.ScrollTo(2000)
	if len(windows) != 2 {
		t.Fatalf("expected no notification for an unchanged offset")
	}

	vp.Resize(1000)
	if len(windows) != 3 {
		t.Fatalf("expected recompute after resize")
	}

	stop()
	vp.ScrollTo(0)
	if len(windows) != 3 {
		t.Fatalf("expected no recompute after stop")
	}
	stop()
}

func TestObserveNilInputs(t *testing.T) {
	stop := Observe(nil, New(1, nil, 0), func(schema.Window) {})
	stop()
}
