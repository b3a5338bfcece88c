package types

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestBarValid(t *testing.T) {
	good := Bar{Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}
	if !good.Valid() {
		t.Error("expected valid bar")
	}

	cases := map[string]Bar{
		"high below body":  {Open: 100, High: 99.5, Low: 99, Close: 100.5},
		"low above body":   {Open: 100, High: 101, Low: 100.2, Close: 100.5},
		"zero open":        {Open: 0, High: 101, Low: 99, Close: 100},
		"negative volume":  {Open: 100, High: 101, Low: 99, Close: 100, Volume: -1},
	}
	for name, b := range cases {
		if b.Valid() {
			t.Errorf("%s: expected invalid", name)
		}
	}
}

func TestKindLabelsRoundTrip(t *testing.T) {
	lv := Level{Price: 100, Kind: KindSupport}
	data, err := json.Marshal(lv)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"support"`) {
		t.Errorf("expected label, got %s", data)
	}

	var back Level
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Kind != KindSupport {
		t.Errorf("kind lost in round trip: %v", back.Kind)
	}

	var zone Zone
	if err := json.Unmarshal([]byte(`{"kind":"supply","gap_type":"common"}`), &zone); err != nil {
		t.Fatalf("unmarshal zone: %v", err)
	}
	if zone.Kind != ZoneSupply {
		t.Errorf("expected supply, got %v", zone.Kind)
	}

	var gap Gap
	if err := json.Unmarshal([]byte(`{"direction":"down"}`), &gap); err != nil {
		t.Fatalf("unmarshal gap: %v", err)
	}
	if gap.Direction != GapDown {
		t.Errorf("expected down, got %v", gap.Direction)
	}
}

func TestIndicatorsNaNMarshalsAsNull(t *testing.T) {
	ind := Indicators{SMA: map[int]float64{50: 101.5}}
	ind.RSI = math.NaN()
	ind.ATR = math.NaN()
	ind.BB.Middle, ind.BB.Upper, ind.BB.Lower = math.NaN(), math.NaN(), math.NaN()

	data, err := json.Marshal(ind)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"rsi":null`) {
		t.Errorf("expected null rsi, got %s", data)
	}
	if !strings.Contains(string(data), `"50":101.5`) {
		t.Errorf("expected SMA entry, got %s", data)
	}
}
