package analysis

import "fmt"

// Config holds every tunable the analyzers consume. Zero values are
// replaced by defaults in Normalize; Validate rejects values that would
// make a detector misbehave rather than degrade.
type Config struct {
	// SwingWindow is the full (odd) window for swing detection.
	SwingWindow int
	// LookbackBars bounds how far back level extraction looks.
	LookbackBars int
	// TolerancePct is the band within which two observations count as the
	// same level, e.g. 0.5 means 0.5%.
	TolerancePct float64
	// ConfluenceTolerancePct is the cross-timeframe merge band.
	ConfluenceTolerancePct float64
	// ConfluenceBonus is added to a merged level's summed strength.
	ConfluenceBonus int
	// MinGapPct is the smallest gap (percent of prior close) retained.
	MinGapPct float64
	// RoundNumberInterval spaces psychological levels; 0 derives it from
	// the price's order of magnitude.
	RoundNumberInterval float64
	// RoundNumberCount is how many intervals to generate on each side.
	RoundNumberCount int
	// VolumeBins is the number of price buckets in the volume profile.
	VolumeBins int
	// MAPeriods are the moving-average lengths probed for clusters.
	MAPeriods []int
	// MinMovePct qualifies a bar as explosive for zone detection.
	MinMovePct float64
	// ConsolidationBars caps the base length walked back from an
	// explosive bar.
	ConsolidationBars int
	// VolumeSpikeMult is the above-average multiplier confirming a zone.
	VolumeSpikeMult float64
	// KeyStrength is the minimum strength for a non-confluence level to
	// count as key.
	KeyStrength int
}

// DefaultConfig mirrors the documented defaults.
func DefaultConfig() Config {
	return Config{
		SwingWindow:            5,
		LookbackBars:           100,
		TolerancePct:           0.5,
		ConfluenceTolerancePct: 0.5,
		ConfluenceBonus:        3,
		MinGapPct:              2.0,
		RoundNumberInterval:    0,
		RoundNumberCount:       5,
		VolumeBins:             50,
		MAPeriods:              []int{20, 50, 200},
		MinMovePct:             3.0,
		ConsolidationBars:      5,
		VolumeSpikeMult:        1.5,
		KeyStrength:            8,
	}
}

// Normalize fills zero-valued fields with defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.SwingWindow == 0 {
		c.SwingWindow = d.SwingWindow
	}
	if c.LookbackBars == 0 {
		c.LookbackBars = d.LookbackBars
	}
	if c.TolerancePct == 0 {
		c.TolerancePct = d.TolerancePct
	}
	if c.ConfluenceTolerancePct == 0 {
		c.ConfluenceTolerancePct = d.ConfluenceTolerancePct
	}
	if c.ConfluenceBonus == 0 {
		c.ConfluenceBonus = d.ConfluenceBonus
	}
	if c.MinGapPct == 0 {
		c.MinGapPct = d.MinGapPct
	}
	if c.RoundNumberCount == 0 {
		c.RoundNumberCount = d.RoundNumberCount
	}
	if c.VolumeBins == 0 {
		c.VolumeBins = d.VolumeBins
	}
	if len(c.MAPeriods) == 0 {
		c.MAPeriods = d.MAPeriods
	}
	if c.MinMovePct == 0 {
		c.MinMovePct = d.MinMovePct
	}
	if c.ConsolidationBars == 0 {
		c.ConsolidationBars = d.ConsolidationBars
	}
	if c.VolumeSpikeMult == 0 {
		c.VolumeSpikeMult = d.VolumeSpikeMult
	}
	if c.KeyStrength == 0 {
		c.KeyStrength = d.KeyStrength
	}
	return c
}

// Validate surfaces configuration errors immediately; these are caller
// bugs, never recovered internally.
func (c Config) Validate() error {
	if c.SwingWindow <= 0 || c.SwingWindow%2 == 0 {
		return fmt.Errorf("swing window must be positive and odd, got %d", c.SwingWindow)
	}
	if c.TolerancePct <= 0 || c.ConfluenceTolerancePct <= 0 {
		return fmt.Errorf("tolerance percentages must be positive")
	}
	if c.MinGapPct <= 0 {
		return fmt.Errorf("min gap pct must be positive, got %v", c.MinGapPct)
	}
	if c.MinMovePct <= 0 {
		return fmt.Errorf("min move pct must be positive, got %v", c.MinMovePct)
	}
	if c.VolumeBins <= 1 {
		return fmt.Errorf("volume bins must be > 1, got %d", c.VolumeBins)
	}
	for _, p := range c.MAPeriods {
		if p <= 0 {
			return fmt.Errorf("ma period must be positive, got %d", p)
		}
	}
	return nil
}
