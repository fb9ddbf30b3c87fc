package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. All parameters are read-only to
// the trading core.
type Config struct {
	Venue    VenueConfig    `yaml:"venue"`
	Symbols  []string       `yaml:"symbols"`
	Session  SessionConfig  `yaml:"session"`
	Sizing   SizingConfig   `yaml:"sizing"`
	Risk     RiskConfig     `yaml:"risk"`
	Manage   ManageConfig   `yaml:"manage"`
	Exec     ExecConfig     `yaml:"execution"`
	Journal  JournalConfig  `yaml:"journal"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

type VenueConfig struct {
	BridgeURL string `yaml:"bridge_url"`
	WSURL     string `yaml:"ws_url"`
	Token     string `yaml:"token"`
}

type SessionConfig struct {
	Start    string `yaml:"start"` // "HH:MM" in Timezone
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
}

type SizingConfig struct {
	Mode               string  `yaml:"mode"` // "percent" or "fixed"
	RiskPct            float64 `yaml:"risk_pct"`
	MaxRiskPerTradePct float64 `yaml:"max_risk_per_trade_pct"`
	FixedVolume        float64 `yaml:"fixed_volume"`
	FatFingerMaxVolume float64 `yaml:"fat_finger_max_volume"`
}

type RiskConfig struct {
	StartBalance         float64 `yaml:"start_balance"`
	MaxDrawdownPct       float64 `yaml:"max_drawdown_pct"`
	MaxDailyLossPct      float64 `yaml:"max_daily_loss_pct"`
	ConsecutiveLossLimit int     `yaml:"consecutive_loss_limit"`
	MaxTradesPerDay      int     `yaml:"max_trades_per_day"`
	MaxTradesPerWeek     int     `yaml:"max_trades_per_week"`
	MaxSpreadPips        float64 `yaml:"max_spread_pips"`
}

type ManageConfig struct {
	UseTrailing      bool    `yaml:"use_trailing"`
	TrailingRMult    float64 `yaml:"trailing_r_mult"`
	BreakevenRR      float64 `yaml:"breakeven_rr"`
	PartialTPEnabled bool    `yaml:"partial_tp_enabled"`
	PartialTPPercent float64 `yaml:"partial_tp_percent"` // 0..100
	PartialTPRR      float64 `yaml:"partial_tp_rr"`
}

type ExecConfig struct {
	EntryTF                 string  `yaml:"entry_tf"`
	CooldownSeconds         int     `yaml:"cooldown_seconds"`
	StartupProtectionCycles int     `yaml:"startup_protection_cycles"`
	MaxPositionsPerSymbol   int     `yaml:"max_positions_per_symbol"`
	PollIntervalSeconds     int     `yaml:"poll_interval_seconds"`
	RequireContinuation     bool    `yaml:"require_continuation"`
	TradeEnabled            bool    `yaml:"trade_enabled"`
	NotifyOnly              bool    `yaml:"notify_only"`
	DeviationPoints         int     `yaml:"deviation_points"`
	JitterMaxSeconds        float64 `yaml:"jitter_max_seconds"`
}

type JournalConfig struct {
	Path      string `yaml:"path"`
	CSVExport string `yaml:"csv_export"`
}

type NotifyConfig struct {
	WebhookURL         string `yaml:"webhook_url"`
	MinIntervalSeconds int    `yaml:"min_interval_seconds"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type WatchdogConfig struct {
	IntervalHours int `yaml:"interval_hours"`
}

// Default returns the configuration used when a field is absent from the
// yaml file.
func Default() Config {
	return Config{
		Venue:   VenueConfig{BridgeURL: "http://127.0.0.1:8787", WSURL: "ws://127.0.0.1:8787/ticks"},
		Symbols: []string{"EURUSD", "GBPUSD", "USDJPY"},
		Session: SessionConfig{Start: "13:00", End: "17:00", Timezone: "America/New_York"},
		Sizing: SizingConfig{
			Mode:               "percent",
			RiskPct:            0.01,
			MaxRiskPerTradePct: 0.005,
			FixedVolume:        0.01,
			FatFingerMaxVolume: 5.0,
		},
		Risk: RiskConfig{
			StartBalance:         10000,
			MaxDrawdownPct:       0.08,
			MaxDailyLossPct:      0.02,
			ConsecutiveLossLimit: 2,
			MaxTradesPerDay:      3,
			MaxTradesPerWeek:     20,
			MaxSpreadPips:        2.0,
		},
		Manage: ManageConfig{
			UseTrailing:      true,
			TrailingRMult:    0.5,
			BreakevenRR:      1.0,
			PartialTPEnabled: false,
			PartialTPPercent: 50,
			PartialTPRR:      1.0,
		},
		Exec: ExecConfig{
			EntryTF:                 "M5",
			CooldownSeconds:         30,
			StartupProtectionCycles: 3,
			MaxPositionsPerSymbol:   2,
			PollIntervalSeconds:     30,
			RequireContinuation:     true,
			TradeEnabled:            true,
			NotifyOnly:              false,
			DeviationPoints:         20,
			JitterMaxSeconds:        1.5,
		},
		Journal:  JournalConfig{Path: "journal.db", CSVExport: "journal.csv"},
		Notify:   NotifyConfig{MinIntervalSeconds: 10},
		Logging:  LoggingConfig{Level: "info"},
		Server:   ServerConfig{Addr: ":9090"},
		Watchdog: WatchdogConfig{IntervalHours: 6},
	}
}

// Load reads a yaml config file on top of the defaults. The venue token may
// also come from SWINGBOT_VENUE_TOKEN so it stays out of the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if tok := os.Getenv("SWINGBOT_VENUE_TOKEN"); tok != "" {
		cfg.Venue.Token = tok
	}
	if url := os.Getenv("SWINGBOT_WEBHOOK_URL"); url != "" {
		cfg.Notify.WebhookURL = url
	}
	return &cfg, nil
}
