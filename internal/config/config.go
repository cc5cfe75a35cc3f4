// Package config holds the simulation tunables, loadable from YAML with
// documented defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full tuning surface of the kernel. Zero values are invalid;
// start from Default and overlay a YAML file.
type Config struct {
	Seed int64 `yaml:"seed"`

	// Tick pacing for the realtime clock. Ignored by batch stepping.
	TickMs int `yaml:"tick_ms"`

	Economy  EconomyConfig  `yaml:"economy"`
	Trade    TradeConfig    `yaml:"trade"`
	Faction  FactionConfig  `yaml:"faction"`
	Sector   SectorConfig   `yaml:"sector"`
	Engine   EngineConfig   `yaml:"engine"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

type EconomyConfig struct {
	// Elasticity is k in price = base * (1 - k*deviation).
	Elasticity float64 `yaml:"elasticity"`
	// TargetStock is the default per-resource stock band at new stations.
	TargetStock int `yaml:"target_stock"`
	// PriceFloorMult and PriceCeilMult clamp prices as multiples of base.
	PriceFloorMult float64 `yaml:"price_floor_mult"`
	PriceCeilMult  float64 `yaml:"price_ceil_mult"`

	PopulationPeriod uint64 `yaml:"population_period"`

	DividendPeriod uint64  `yaml:"dividend_period"`
	DividendFloor  float64 `yaml:"dividend_floor"`
	DividendRate   float64 `yaml:"dividend_rate"`
}

type TradeConfig struct {
	Horizon       float64 `yaml:"horizon"`
	FuelRate      float64 `yaml:"fuel_rate"`
	RepollTicks   uint64  `yaml:"repoll_ticks"`
	RouteCacheTTL uint64  `yaml:"route_cache_ttl"`
	RouteCacheLen int     `yaml:"route_cache_len"`
}

type FactionConfig struct {
	PeriodTicks uint64 `yaml:"period_ticks"`

	StationCost     float64 `yaml:"station_cost"`
	StationCapacity int     `yaml:"station_capacity"`
	StationCredits  float64 `yaml:"station_credits"`

	ShipCost     float64 `yaml:"ship_cost"`
	ShipCapacity int     `yaml:"ship_capacity"`
	ShipSpeed    float64 `yaml:"ship_speed"`

	ExtractRate   float64 `yaml:"extract_rate"`
	ExtractPeriod uint64  `yaml:"extract_period"`
}

type SectorConfig struct {
	SiteCount int     `yaml:"site_count"`
	Radius    float64 `yaml:"radius"`
}

type EngineConfig struct {
	// Workers bounds the pricing fan-out. Results are order-independent.
	Workers int `yaml:"workers"`
	// EventLogLimit bounds the in-memory bus log. 0 keeps everything.
	EventLogLimit int `yaml:"event_log_limit"`
	// AuditLimit bounds the ledger audit ring.
	AuditLimit int `yaml:"audit_limit"`
}

type SnapshotConfig struct {
	// EveryTicks is the periodic snapshot cadence. 0 disables.
	EveryTicks uint64 `yaml:"every_ticks"`
	Path       string `yaml:"path"`
}

// Default returns the documented baseline tuning.
func Default() Config {
	return Config{
		Seed:   1,
		TickMs: 100,
		Economy: EconomyConfig{
			Elasticity:       0.5,
			TargetStock:      100,
			PriceFloorMult:   0.1,
			PriceCeilMult:    10.0,
			PopulationPeriod: 60,
			DividendPeriod:   240,
			DividendFloor:    5000,
			DividendRate:     0.5,
		},
		Trade: TradeConfig{
			Horizon:       40,
			FuelRate:      0.5,
			RepollTicks:   5,
			RouteCacheTTL: 10,
			RouteCacheLen: 256,
		},
		Faction: FactionConfig{
			PeriodTicks:     120,
			StationCost:     1000,
			StationCapacity: 1000,
			StationCredits:  2000,
			ShipCost:        500,
			ShipCapacity:    20,
			ShipSpeed:       2,
			ExtractRate:     8,
			ExtractPeriod:   5,
		},
		Sector: SectorConfig{
			SiteCount: 64,
			Radius:    30,
		},
		Engine: EngineConfig{
			Workers:       4,
			EventLogLimit: 65536,
			AuditLimit:    8192,
		},
		Snapshot: SnapshotConfig{
			EveryTicks: 600,
			Path:       "solsim.db",
		},
	}
}

// Load reads a YAML overlay on top of the defaults. A missing file is not an
// error when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
