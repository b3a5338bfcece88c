package types

import (
	"encoding/json"
	"math"
	"time"
)

// Bar is one OHLCV sample. Timestamps are strictly increasing within a
// Series; high >= max(open, close) and low <= min(open, close).
type Bar struct {
	Time                   time.Time
	Open, High, Low, Close float64
	Volume                 float64
}

// Valid reports whether the bar satisfies the OHLC invariants.
func (b Bar) Valid() bool {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	if b.Volume < 0 {
		return false
	}
	bodyHi := b.Open
	if b.Close > bodyHi {
		bodyHi = b.Close
	}
	bodyLo := b.Open
	if b.Close < bodyLo {
		bodyLo = b.Close
	}
	return b.High >= bodyHi && b.Low <= bodyLo
}

// Range is the bar's full high-low extent.
func (b Bar) Range() float64 { return b.High - b.Low }

// Series is a time-ascending sequence of bars for one symbol and one
// timeframe.
type Series struct {
	Symbol    string
	Timeframe string
	Bars      []Bar
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s Series) LastClose() float64 {
	if len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// SwingKind marks a swing point as a local high or low.
type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

func (k SwingKind) String() string {
	if k == SwingHigh {
		return "high"
	}
	return "low"
}

// SwingPoint is a bar flagged as a local extremum over a symmetric window.
type SwingPoint struct {
	Index     int
	Price     float64
	Time      time.Time
	Kind      SwingKind
	Timeframe string
}

// LevelKind is the directionality of a support/resistance level. Round
// numbers and MA clusters stay Unspecified until evaluated against the
// live price.
type LevelKind int

const (
	KindUnspecified LevelKind = iota
	KindSupport
	KindResistance
)

func (k LevelKind) String() string {
	switch k {
	case KindSupport:
		return "support"
	case KindResistance:
		return "resistance"
	default:
		return "unspecified"
	}
}


// MarshalJSON renders the kind as its label.
func (k LevelKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// UnmarshalJSON accepts the labels MarshalJSON emits.
func (k *LevelKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "support":
		*k = KindSupport
	case "resistance":
		*k = KindResistance
	default:
		*k = KindUnspecified
	}
	return nil
}

// LevelSource identifies the methodology that produced a level.
type LevelSource string

const (
	SourceSwing       LevelSource = "swing"
	SourceVolume      LevelSource = "volume"
	SourceRoundNumber LevelSource = "round_number"
	SourceMACluster   LevelSource = "ma_cluster"
)

// Level is a candidate support/resistance price. Strength is an open
// integer scale; higher means more significant. ConfluenceTimeframes is
// non-empty iff IsConfluence is true and always holds >= 2 labels.
type Level struct {
	Price                float64     `json:"price"`
	Kind                 LevelKind   `json:"kind"`
	Source               LevelSource `json:"source"`
	Strength             int         `json:"strength"`
	Touches              int         `json:"touches"`
	Breaks               int         `json:"breaks"`
	LastTest             time.Time   `json:"last_test,omitempty"`
	Timeframe            string      `json:"timeframe"`
	IsConfluence         bool        `json:"is_confluence"`
	ConfluenceTimeframes []string    `json:"confluence_timeframes,omitempty"`
}

// GapDirection is up or down.
type GapDirection int

const (
	GapUp GapDirection = iota
	GapDown
)

func (d GapDirection) String() string {
	if d == GapUp {
		return "up"
	}
	return "down"
}

// MarshalJSON renders the direction as its label.
func (d GapDirection) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// UnmarshalJSON accepts the labels MarshalJSON emits.
func (d *GapDirection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "down" {
		*d = GapDown
	} else {
		*d = GapUp
	}
	return nil
}

// GapType classifies a gap by its trend and volume context.
type GapType string

const (
	GapCommon     GapType = "common"
	GapBreakaway  GapType = "breakaway"
	GapRunaway    GapType = "runaway"
	GapExhaustion GapType = "exhaustion"
)

// Gap is a price void between two consecutive bars.
type Gap struct {
	Date      time.Time    `json:"date"`
	Direction GapDirection `json:"direction"`
	Low       float64      `json:"gap_low"`
	High      float64      `json:"gap_high"`
	Size      float64      `json:"size"`
	SizePct   float64      `json:"size_pct"`
	Type      GapType      `json:"gap_type"`
	Filled    bool         `json:"filled"`
	FillPct   float64      `json:"fill_pct"`
	FillDate  time.Time    `json:"fill_date,omitempty"`
	BarsSince int          `json:"bars_since"`
	Severity  int          `json:"severity"`
}

// Midpoint is the center of the gap range.
func (g Gap) Midpoint() float64 { return (g.Low + g.High) / 2 }

// ZoneKind is supply or demand.
type ZoneKind int

const (
	ZoneDemand ZoneKind = iota
	ZoneSupply
)

func (k ZoneKind) String() string {
	if k == ZoneDemand {
		return "demand"
	}
	return "supply"
}

// MarshalJSON renders the zone kind as its label.
func (k ZoneKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// UnmarshalJSON accepts the labels MarshalJSON emits.
func (k *ZoneKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "supply" {
		*k = ZoneSupply
	} else {
		*k = ZoneDemand
	}
	return nil
}

// ZonePattern is the base/move shape that created a zone: Rally-Base-Rally,
// Drop-Base-Drop, Rally-Base-Drop, Drop-Base-Rally.
type ZonePattern string

const (
	PatternRBR ZonePattern = "RBR"
	PatternDBD ZonePattern = "DBD"
	PatternRBD ZonePattern = "RBD"
	PatternDBR ZonePattern = "DBR"
)

// Zone is a price range of inferred institutional supply or demand.
type Zone struct {
	Kind            ZoneKind    `json:"kind"`
	Pattern         ZonePattern `json:"pattern"`
	Low             float64     `json:"price_low"`
	High            float64     `json:"price_high"`
	Start           time.Time   `json:"start_date"`
	End             time.Time   `json:"end_date"`
	Strength        int         `json:"strength"`
	Fresh           bool        `json:"fresh"`
	TestCount       int         `json:"test_count"`
	VolumeConfirmed bool        `json:"volume_confirmed"`
	MoveSizePct     float64     `json:"move_size_pct"`
	Timeframe       string      `json:"timeframe"`
}

// Midpoint is the zone center.
func (z Zone) Midpoint() float64 { return (z.Low + z.High) / 2 }

// Width is the zone extent.
func (z Zone) Width() float64 { return z.High - z.Low }

// WidthPct is the zone extent relative to its midpoint, in percent.
func (z Zone) WidthPct() float64 {
	m := z.Midpoint()
	if m == 0 {
		return 0
	}
	return z.Width() / m * 100
}

// LevelSummary is the key/minor partition handed to report generation.
type LevelSummary struct {
	CurrentPrice float64  `json:"current_price"`
	KeyLevels    []Level  `json:"key_levels"`
	MinorLevels  []Level  `json:"minor_levels"`
	Timeframes   []string `json:"timeframes_analyzed"`
}

// Indicators is a point-in-time technical snapshot added to LLM context.
// Values the series was too short to compute are NaN.
type Indicators struct {
	SMA map[int]float64 `json:"sma"`
	RSI float64         `json:"rsi"`
	BB  struct {
		Middle, Upper, Lower float64
	} `json:"bollinger"`
	ATR float64 `json:"atr"`
}

// MarshalJSON renders NaN as null, which encoding/json cannot do for a
// plain float64.
func (ind Indicators) MarshalJSON() ([]byte, error) {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	type bands struct {
		Middle *float64 `json:"Middle"`
		Upper  *float64 `json:"Upper"`
		Lower  *float64 `json:"Lower"`
	}
	return json.Marshal(struct {
		SMA map[int]float64 `json:"sma"`
		RSI *float64        `json:"rsi"`
		BB  bands           `json:"bollinger"`
		ATR *float64        `json:"atr"`
	}{
		SMA: ind.SMA,
		RSI: opt(ind.RSI),
		BB:  bands{opt(ind.BB.Middle), opt(ind.BB.Upper), opt(ind.BB.Lower)},
		ATR: opt(ind.ATR),
	})
}

// NewsArticle is one scraped headline/article.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Snippet     string    `json:"snippet,omitempty"`
}

// NewsSentiment aggregates LLM sentiment over recent articles.
type NewsSentiment struct {
	Symbol       string  `json:"symbol"`
	Overall      string  `json:"overall"` // POSITIVE, NEGATIVE, NEUTRAL
	Score        float64 `json:"score"`   // -1.0 .. 1.0
	Confidence   float64 `json:"confidence"`
	Summary      string  `json:"summary"`
	ArticleCount int     `json:"article_count"`
	Timestamp    int64   `json:"timestamp"`
}

// Filing is one SEC filing reference with an optional text excerpt.
type Filing struct {
	Form      string    `json:"form"`
	FiledAt   time.Time `json:"filed_at"`
	Accession string    `json:"accession"`
	URL       string    `json:"url"`
	Excerpt   string    `json:"excerpt,omitempty"`
}

// Report is the assembled analysis result for one run.
type Report struct {
	RunID        string         `json:"run_id"`
	Symbol       string         `json:"symbol"`
	GeneratedAt  time.Time      `json:"generated_at"`
	CurrentPrice float64        `json:"current_price"`
	Timeframes   []string       `json:"timeframes"`
	Levels       LevelSummary   `json:"levels"`
	Zones        []Zone         `json:"zones"`
	Gaps         []Gap          `json:"gaps"`
	Indicators   Indicators     `json:"indicators"`
	News         *NewsSentiment `json:"news,omitempty"`
	Fundamental  string         `json:"fundamental,omitempty"`
	Synthesis    string         `json:"synthesis,omitempty"`
	CostUSD      float64        `json:"cost_usd"`
}
