package analysis

import (
	"testing"

	"github.com/marvinguevarra/trading-analyzer/internal/types"
)

// demandSeries: decline into a tight base at 100, explosive rally off
// it on heavy volume, then price holds above the zone.
func demandSeries() types.Series {
	var bars []types.Bar
	for i := 0; i < 10; i++ {
		f := float64(i)
		bars = append(bars, mkBar(i, 110-f, 110.2-f, 109.2-f, 109.4-f, 1000))
	}
	for i := 10; i < 15; i++ {
		bars = append(bars, mkBar(i, 100.2, 100.6, 99.9, 100.1, 1000))
	}
	bars = append(bars, mkBar(15, 100.2, 105.8, 100.1, 105.5, 5000))
	for i := 16; i < 30; i++ {
		bars = append(bars, mkBar(i, 106.5, 107, 106, 106.5, 1000))
	}
	return mkSeries("daily", bars...)
}

func TestIdentifyZonesDemand(t *testing.T) {
	zones := IdentifyZones(demandSeries(), DefaultConfig())
	if len(zones) != 1 {
		t.Fatalf("got %d zones, want 1: %+v", len(zones), zones)
	}
	z := zones[0]
	if z.Kind != types.ZoneDemand {
		t.Errorf("kind = %v, want demand", z.Kind)
	}
	if z.Pattern != types.PatternDBR {
		t.Errorf("pattern = %v, want DBR", z.Pattern)
	}
	if z.Low != 99.9 || z.High != 100.6 {
		t.Errorf("zone bounds = [%v, %v], want [99.9, 100.6]", z.Low, z.High)
	}
	if !z.Fresh || z.TestCount != 0 {
		t.Errorf("fresh=%v tests=%d, want untested", z.Fresh, z.TestCount)
	}
	if !z.VolumeConfirmed {
		t.Error("breakout volume spike not flagged")
	}
	if z.Timeframe != "daily" {
		t.Errorf("timeframe = %q, want daily", z.Timeframe)
	}
	if z.Strength < 1 || z.Strength > 10 {
		t.Errorf("strength %d outside 1..10", z.Strength)
	}
}

func TestIdentifyZonesSupplyRetested(t *testing.T) {
	var bars []types.Bar
	for i := 0; i < 10; i++ {
		f := float64(i)
		bars = append(bars, mkBar(i, 90+f, 91+f, 89.8+f, 90.6+f, 1000))
	}
	for i := 10; i < 15; i++ {
		bars = append(bars, mkBar(i, 100.2, 100.6, 99.9, 100.3, 1000))
	}
	bars = append(bars, mkBar(15, 100.2, 100.3, 94.8, 95, 5000))
	for i := 16; i < 26; i++ {
		bars = append(bars, mkBar(i, 95, 95.4, 94.6, 95.1, 1000))
	}
	// One rally back into the zone.
	bars = append(bars, mkBar(26, 95, 100.0, 94.9, 95.5, 1000))
	for i := 27; i < 30; i++ {
		bars = append(bars, mkBar(i, 95, 95.4, 94.6, 95.1, 1000))
	}

	zones := IdentifyZones(mkSeries("daily", bars...), DefaultConfig())
	if len(zones) != 1 {
		t.Fatalf("got %d zones, want 1: %+v", len(zones), zones)
	}
	z := zones[0]
	if z.Kind != types.ZoneSupply {
		t.Errorf("kind = %v, want supply", z.Kind)
	}
	if z.Pattern != types.PatternRBD {
		t.Errorf("pattern = %v, want RBD", z.Pattern)
	}
	if z.Fresh {
		t.Error("retested zone still reported fresh")
	}
	if z.TestCount != 1 {
		t.Errorf("test count = %d, want 1", z.TestCount)
	}
}

func TestIdentifyZonesQuietTape(t *testing.T) {
	s := flatSeries("daily", 40, 100, 100.5, 99.5, 100.1, 1000)
	if zones := IdentifyZones(s, DefaultConfig()); len(zones) != 0 {
		t.Errorf("quiet tape produced %d zones", len(zones))
	}
}

func TestIdentifyZonesShortSeries(t *testing.T) {
	s := flatSeries("daily", 4, 100, 101, 99, 100, 1000)
	if zones := IdentifyZones(s, DefaultConfig()); zones != nil {
		t.Errorf("short series produced %v", zones)
	}
}

func TestDedupeZones(t *testing.T) {
	zones := []types.Zone{
		{Low: 100, High: 102, Strength: 5},
		{Low: 100.5, High: 102.5, Strength: 8}, // overlaps >50%, stronger
		{Low: 110, High: 112, Strength: 4},     // disjoint
	}
	out := dedupeZones(zones)
	if len(out) != 2 {
		t.Fatalf("got %d zones, want 2", len(out))
	}
	if out[0].Strength != 8 {
		t.Errorf("overlap survivor strength = %d, want the stronger 8", out[0].Strength)
	}
	if out[1].Low != 110 {
		t.Errorf("disjoint zone lost: %+v", out)
	}
}

func TestZoneWidthPct(t *testing.T) {
	z := types.Zone{Low: 99, High: 101}
	if got := z.WidthPct(); got != 2 {
		t.Errorf("width pct = %v, want 2", got)
	}
}
