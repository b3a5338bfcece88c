package analysis

import (
	"reflect"
	"testing"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

func TestDetectSwingPoints(t *testing.T) {
	// Rise into bar 5, fall into bar 10, rise again. Bar 5 is the only
	// strict high, bar 10 the only strict low, over a 5-bar window.
	highs := []float64{101, 102, 103, 104, 105, 106, 105, 104, 103, 102, 101, 102, 103, 104, 105}
	bars := make([]types.Bar, len(highs))
	for i, h := range highs {
		bars[i] = mkBar(i, h-0.5, h, h-1, h-0.5, 1000)
	}
	s := mkSeries("daily", bars...)

	points := DetectSwingPoints(s, 5)
	var sh, sl []int
	for _, p := range points {
		if p.Kind == types.SwingHigh {
			sh = append(sh, p.Index)
		} else {
			sl = append(sl, p.Index)
		}
	}
	if !reflect.DeepEqual(sh, []int{5}) {
		t.Errorf("swing highs = %v, want [5]", sh)
	}
	if !reflect.DeepEqual(sl, []int{10}) {
		t.Errorf("swing lows = %v, want [10]", sl)
	}

	for _, p := range points {
		if p.Timeframe != "daily" {
			t.Errorf("swing at %d carries timeframe %q, want daily", p.Index, p.Timeframe)
		}
	}
}

func TestDetectSwingPointsDeterministic(t *testing.T) {
	s := flatSeries("daily", 30, 100, 102, 98, 100, 500)
	s.Bars[12] = mkBar(12, 100, 110, 98, 105, 500)
	s.Bars[20] = mkBar(20, 100, 102, 90, 95, 500)

	a := DetectSwingPoints(s, 5)
	b := DetectSwingPoints(s, 5)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("repeated runs disagree: %v vs %v", a, b)
	}
}

func TestDetectSwingPointsEdgesNeverFlagged(t *testing.T) {
	// Highest high and lowest low sit on the first and last bars; with a
	// symmetric window neither can be confirmed.
	bars := []types.Bar{
		mkBar(0, 119, 120, 118, 119, 100),
		mkBar(1, 104, 105, 103, 104, 100),
		mkBar(2, 104, 105, 103, 104, 100),
		mkBar(3, 104, 105, 103, 104, 100),
		mkBar(4, 104, 105, 103, 104, 100),
		mkBar(5, 104, 105, 103, 104, 100),
		mkBar(6, 90, 91, 89, 90, 100),
	}
	points := DetectSwingPoints(mkSeries("daily", bars...), 5)
	for _, p := range points {
		if p.Index < 2 || p.Index > 4 {
			t.Errorf("edge bar %d flagged as swing", p.Index)
		}
	}
}

func TestDetectSwingPointsBothKindsOnOneBar(t *testing.T) {
	// Middle bar has both the widest high and the widest low.
	bars := []types.Bar{
		mkBar(0, 100, 101, 99, 100, 100),
		mkBar(1, 100, 101, 99, 100, 100),
		mkBar(2, 100, 105, 95, 100, 100),
		mkBar(3, 100, 101, 99, 100, 100),
		mkBar(4, 100, 101, 99, 100, 100),
	}
	points := DetectSwingPoints(mkSeries("daily", bars...), 5)
	if len(points) != 2 {
		t.Fatalf("got %d swing points, want 2 (high and low on bar 2)", len(points))
	}
	for _, p := range points {
		if p.Index != 2 {
			t.Errorf("swing at index %d, want 2", p.Index)
		}
	}
}

func TestDetectSwingPointsTiesExcluded(t *testing.T) {
	// Equal highs everywhere: strict comparison flags nothing.
	s := flatSeries("daily", 20, 100, 102, 98, 100, 100)
	if points := DetectSwingPoints(s, 5); len(points) != 0 {
		t.Errorf("flat series produced %d swings, want 0", len(points))
	}
}

func TestDetectSwingPointsShortSeries(t *testing.T) {
	s := flatSeries("daily", 4, 100, 102, 98, 100, 100)
	if points := DetectSwingPoints(s, 5); points != nil {
		t.Errorf("series shorter than window produced %v", points)
	}
}

func TestDetectSwingPointsBadWindow(t *testing.T) {
	s := flatSeries("daily", 20, 100, 102, 98, 100, 100)
	if points := DetectSwingPoints(s, 4); points != nil {
		t.Errorf("even window produced %v", points)
	}
	if points := DetectSwingPoints(s, 0); points != nil {
		t.Errorf("zero window produced %v", points)
	}
}
