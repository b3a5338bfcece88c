package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Symbol     string   `yaml:"symbol"`
	DataSource string   `yaml:"data_source"`
	DataDir    string   `yaml:"data_dir"`
	Timeframes []string `yaml:"timeframes"`
	Primary    string   `yaml:"primary_timeframe"`

	Analysis struct {
		SwingWindow            int     `yaml:"swing_window"`
		LookbackBars           int     `yaml:"lookback_bars"`
		TolerancePct           float64 `yaml:"tolerance_pct"`
		ConfluenceTolerancePct float64 `yaml:"confluence_tolerance_pct"`
		ConfluenceBonus        int     `yaml:"confluence_bonus"`
		KeyStrength            int     `yaml:"key_strength"`
		MinGapPct              float64 `yaml:"min_gap_pct"`
		RoundNumberInterval    float64 `yaml:"round_number_interval"`
		VolumeBins             int     `yaml:"volume_bins"`
		MAPeriods              []int   `yaml:"ma_periods"`
		MinMovePct             float64 `yaml:"min_move_pct"`
		ConsolidationBars      int     `yaml:"consolidation_bars"`
		VolumeSpikeMult        float64 `yaml:"volume_spike_mult"`
	} `yaml:"analysis"`

	Fetcher struct {
		YahooBaseURL string `yaml:"yahoo_base_url"`
		SECBaseURL   string `yaml:"sec_base_url"`
		UserAgent    string `yaml:"user_agent"`
		TimeoutSecs  int    `yaml:"timeout_secs"`
		RangeDays    int    `yaml:"range_days"`
	} `yaml:"fetcher"`

	LLM struct {
		Provider    string  `yaml:"provider"`
		APIKeyEnv   string  `yaml:"api_key_env"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		BudgetUSD   float64 `yaml:"budget_usd"`
		Models      struct {
			Fast     ModelSpec `yaml:"fast"`
			Balanced ModelSpec `yaml:"balanced"`
			Deep     ModelSpec `yaml:"deep"`
		} `yaml:"models"`
	} `yaml:"llm"`

	News struct {
		Enabled     bool     `yaml:"enabled"`
		Sources     []string `yaml:"sources"`
		MaxArticles int      `yaml:"max_articles"`
		CacheTTLMin int      `yaml:"cache_ttl_min"`
	} `yaml:"news"`

	Output struct {
		Dir     string   `yaml:"dir"`
		Formats []string `yaml:"formats"`
		CacheDB string   `yaml:"cache_db"`
		CostLog string   `yaml:"cost_log"`
	} `yaml:"output"`
}

// ModelSpec names one model tier with its per-million-token rates used
// for cost accounting.
type ModelSpec struct {
	Name          string  `yaml:"name"`
	InputPerMTok  float64 `yaml:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok"`
}

func (c *Config) Validate() error {
	if c.Symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	if c.DataSource != "CSV" && c.DataSource != "YAHOO" {
		return fmt.Errorf("invalid data_source '%s': must be 'CSV' or 'YAHOO'", c.DataSource)
	}
	if c.DataSource == "CSV" && c.DataDir == "" {
		return errors.New("data_dir required when data_source is CSV")
	}
	if len(c.Timeframes) == 0 {
		return errors.New("timeframes cannot be empty")
	}
	found := false
	for _, tf := range c.Timeframes {
		if tf == c.Primary {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("primary_timeframe '%s' not in timeframes %v", c.Primary, c.Timeframes)
	}
	if c.Analysis.SwingWindow > 0 && c.Analysis.SwingWindow%2 == 0 {
		return fmt.Errorf("analysis.swing_window must be odd, got %d", c.Analysis.SwingWindow)
	}
	if c.LLM.Provider != "" && c.LLM.Provider != "claude" && c.LLM.Provider != "noop" {
		return fmt.Errorf("llm.provider must be 'claude' or 'noop', got '%s'", c.LLM.Provider)
	}
	if c.LLM.BudgetUSD < 0 {
		return fmt.Errorf("llm.budget_usd cannot be negative, got %.2f", c.LLM.BudgetUSD)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.DataSource == "" {
		c.DataSource = "CSV"
	}
	if len(c.Timeframes) == 0 {
		c.Timeframes = []string{"daily", "weekly"}
	}
	if c.Primary == "" {
		c.Primary = "daily"
	}
	if c.Fetcher.TimeoutSecs == 0 {
		c.Fetcher.TimeoutSecs = 30
	}
	if c.Fetcher.RangeDays == 0 {
		c.Fetcher.RangeDays = 365
	}
	if c.Fetcher.YahooBaseURL == "" {
		c.Fetcher.YahooBaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Fetcher.SECBaseURL == "" {
		c.Fetcher.SECBaseURL = "https://data.sec.gov"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "noop"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.Models.Fast.Name == "" {
		c.LLM.Models.Fast = ModelSpec{Name: "claude-3-5-haiku-latest", InputPerMTok: 0.80, OutputPerMTok: 4.00}
	}
	if c.LLM.Models.Balanced.Name == "" {
		c.LLM.Models.Balanced = ModelSpec{Name: "claude-sonnet-4-20250514", InputPerMTok: 3.00, OutputPerMTok: 15.00}
	}
	if c.LLM.Models.Deep.Name == "" {
		c.LLM.Models.Deep = ModelSpec{Name: "claude-opus-4-20250514", InputPerMTok: 15.00, OutputPerMTok: 75.00}
	}
	if c.News.MaxArticles == 0 {
		c.News.MaxArticles = 10
	}
	if c.News.CacheTTLMin == 0 {
		c.News.CacheTTLMin = 30
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "reports"
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{"markdown", "json"}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
