package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every simulation constant the kernel treats as configuration
// rather than code. Defaults match the reference world (60 ticks/second,
// 100-agent budget).
type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	SpatialBucket [3]int `yaml:"spatial_bucket"`

	PathCacheCapacity int `yaml:"path_cache_capacity"`
	PathMaxExpansions int `yaml:"path_max_expansions"`

	Heat   Heat   `yaml:"heat"`
	Fluid  Fluid  `yaml:"fluid"`
	Struct Struct `yaml:"structural"`

	Needs NeedsTuning `yaml:"needs"`

	CarryCapacity     int `yaml:"carry_capacity"`
	StockpileCapacity int `yaml:"stockpile_capacity"`

	TraumaWitnessRadius    int `yaml:"trauma_witness_radius"`
	ConnectivityWarnStreak int `yaml:"connectivity_warn_streak"`
	SnapshotEveryTicks     int `yaml:"snapshot_every_ticks"`
	RelationshipEveryTicks int `yaml:"relationship_every_ticks"`
	SocialAffinityPerVisit int `yaml:"social_affinity_per_visit"`
}

type Heat struct {
	Epsilon            int `yaml:"epsilon"` // degrees; below this delta a cell leaves the frontier
	MagmaFloor         int `yaml:"magma_floor"`
	MagmaAdjacentFloor int `yaml:"magma_adjacent_floor"`
	MinTemp            int `yaml:"min_temp"`
	MaxTemp            int `yaml:"max_temp"`
}

type Fluid struct {
	BlockDepth int `yaml:"block_depth"` // fluid at or above this depth blocks passage
}

type Struct struct {
	CollapseThreshold     float64 `yaml:"collapse_threshold"`
	CollapseBudgetPerTick int     `yaml:"collapse_budget_per_tick"`
}

type NeedsTuning struct {
	// Decay per simulated second on the [0,100] scale.
	DecayFood   float64 `yaml:"decay_food"`
	DecayDrink  float64 `yaml:"decay_drink"`
	DecaySleep  float64 `yaml:"decay_sleep"`
	DecaySocial float64 `yaml:"decay_social"`
	DecayWork   float64 `yaml:"decay_work"`

	// Ambient temperature above HotTemp multiplies drink decay.
	HotTemp       int     `yaml:"hot_temp"`
	HotDrinkScale float64 `yaml:"hot_drink_scale"`

	RestoreFood   float64 `yaml:"restore_food"`
	RestoreDrink  float64 `yaml:"restore_drink"`
	RestoreSleep  float64 `yaml:"restore_sleep"`
	RestoreSocial float64 `yaml:"restore_social"`
	RestoreWork   float64 `yaml:"restore_work"`
}

// Default returns the tuning used when no tuning.yaml is supplied (tests,
// embedded use). Values mirror configs/tuning.yaml.
func Default() Tuning {
	return Tuning{
		TickRateHz:        60,
		SpatialBucket:     [3]int{8, 8, 1},
		PathCacheCapacity: 1024,
		PathMaxExpansions: 4096,
		Heat: Heat{
			Epsilon:            1,
			MagmaFloor:         800,
			MagmaAdjacentFloor: 80,
			MinTemp:            -50,
			MaxTemp:            1200,
		},
		Fluid: Fluid{BlockDepth: 7},
		Struct: Struct{
			CollapseThreshold:     0.5,
			CollapseBudgetPerTick: 32,
		},
		Needs: NeedsTuning{
			DecayFood:   0.5,
			DecayDrink:  0.8,
			DecaySleep:  0.3,
			DecaySocial: 0.2,
			DecayWork:   0.1,

			HotTemp:       30,
			HotDrinkScale: 1.5,

			RestoreFood:   40,
			RestoreDrink:  40,
			RestoreSleep:  50,
			RestoreSocial: 25,
			RestoreWork:   30,
		},
		CarryCapacity:          50,
		StockpileCapacity:      200,
		TraumaWitnessRadius:    8,
		ConnectivityWarnStreak: 10,
		SnapshotEveryTicks:     3000,
		RelationshipEveryTicks: 120,
		SocialAffinityPerVisit: 2,
	}
}

func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TickRateHz <= 0 {
		return t, fmt.Errorf("tuning.yaml: tick_rate_hz must be positive")
	}
	return t, nil
}
