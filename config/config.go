// Package config holds the validated, fully-defaulted runtime configuration.
// The Lua side of the plugin serializes user options to JSON; Parse merges
// that partial document over the defaults and validates once at the boundary.
package config

import (
	"encoding/json"
	"fmt"
)

// Strategy selects the highlight granularity chosen by the size heuristics.
type Strategy string

const (
	StrategyCharacter Strategy = "character"
	StrategyWord      Strategy = "word"
	StrategyLine      Strategy = "line"
	StrategyBlock     Strategy = "block"
)

// rank orders strategies from finest to coarsest granularity.
func (s Strategy) rank() int {
	switch s {
	case StrategyCharacter:
		return 0
	case StrategyWord:
		return 1
	case StrategyLine:
		return 2
	case StrategyBlock:
		return 3
	default:
		return -1
	}
}

// AtLeastAsCoarse reports whether s is the same or a coarser granularity
// than other.
func (s Strategy) AtLeastAsCoarse(other Strategy) bool {
	return s.rank() >= other.rank()
}

func (s Strategy) valid() bool { return s.rank() >= 0 }

// Mappings carries the key mappings the Lua side registered. Informational
// to this core; kept so stats and logs can name the triggering key.
type Mappings struct {
	Undo string `json:"undo"`
	Redo string `json:"redo"`
}

// Enabled gates highlighting per direction. The raw command always runs.
type Enabled struct {
	Undo bool `json:"undo"`
	Redo bool `json:"redo"`
}

// HighlightGroups names the editor highlight groups used for painting.
type HighlightGroups struct {
	Added   string `json:"added"`
	Removed string `json:"removed"`
}

// Threshold bounds the change size beyond which no diff or highlight is
// attempted. A guard against huge pastes/deletes, not an error condition.
type Threshold struct {
	Line int `json:"line"`
	Char int `json:"char"`
}

// RangeAdjustments toggles the optional adjustment stages.
type RangeAdjustments struct {
	AdjustWordBoundaries bool `json:"adjust_word_boundaries"`
	HandleWhitespace     bool `json:"handle_whitespace"`
}

// HeuristicThresholds are the inclusive upper bounds, in total matched
// characters, of the tiny/small/medium size classes. Anything larger is
// classified large.
type HeuristicThresholds struct {
	Tiny   int `json:"tiny"`
	Small  int `json:"small"`
	Medium int `json:"medium"`
}

// HeuristicStrategies maps each size class to a display strategy.
type HeuristicStrategies struct {
	Tiny   Strategy `json:"tiny"`
	Small  Strategy `json:"small"`
	Medium Strategy `json:"medium"`
	Large  Strategy `json:"large"`
}

// Heuristics configures size-based strategy selection.
type Heuristics struct {
	Enabled    bool                `json:"enabled"`
	Thresholds HeuristicThresholds `json:"thresholds"`
	Strategies HeuristicStrategies `json:"strategies"`
}

// Config is the immutable runtime configuration. Treat values as a snapshot
// for the duration of one executor invocation.
type Config struct {
	Mappings         Mappings         `json:"mappings"`
	Enabled          Enabled          `json:"enabled"`
	HighlightGroups  HighlightGroups  `json:"highlight_groups"`
	Threshold        Threshold        `json:"threshold"`
	DurationMs       int              `json:"duration"`
	RangeAdjustments RangeAdjustments `json:"range_adjustments"`
	Heuristics       Heuristics       `json:"heuristics"`

	// Daemon/runtime knobs, not exposed to the adjustment pipeline.
	LogLevel               string `json:"log_level"`
	DebugLogPath           string `json:"debug_log_path"`
	SnapshotCacheBytes     int    `json:"snapshot_cache_bytes"`
	DebugImmediateShutdown bool   `json:"debug_immediate_shutdown"`
}

// Default returns the fully-defaulted configuration.
func Default() Config {
	return Config{
		Mappings: Mappings{Undo: "u", Redo: "<C-r>"},
		Enabled:  Enabled{Undo: true, Redo: true},
		HighlightGroups: HighlightGroups{
			Added:   "HighlightUndoAdded",
			Removed: "HighlightUndoRemoved",
		},
		Threshold:  Threshold{Line: 50, Char: 1500},
		DurationMs: 200,
		RangeAdjustments: RangeAdjustments{
			AdjustWordBoundaries: true,
			HandleWhitespace:     true,
		},
		Heuristics: Heuristics{
			Enabled:    true,
			Thresholds: HeuristicThresholds{Tiny: 5, Small: 20, Medium: 100},
			Strategies: HeuristicStrategies{
				Tiny:   StrategyCharacter,
				Small:  StrategyWord,
				Medium: StrategyLine,
				Large:  StrategyBlock,
			},
		},
		LogLevel:           "info",
		SnapshotCacheBytes: 16 << 20,
	}
}

// Partial mirrors Config with pointer fields so absent keys are
// distinguishable from zero values during merging.
type Partial struct {
	Mappings *struct {
		Undo *string `json:"undo"`
		Redo *string `json:"redo"`
	} `json:"mappings"`
	Enabled *struct {
		Undo *bool `json:"undo"`
		Redo *bool `json:"redo"`
	} `json:"enabled"`
	HighlightGroups *struct {
		Added   *string `json:"added"`
		Removed *string `json:"removed"`
	} `json:"highlight_groups"`
	Threshold *struct {
		Line *int `json:"line"`
		Char *int `json:"char"`
	} `json:"threshold"`
	DurationMs       *int `json:"duration"`
	RangeAdjustments *struct {
		AdjustWordBoundaries *bool `json:"adjust_word_boundaries"`
		HandleWhitespace     *bool `json:"handle_whitespace"`
	} `json:"range_adjustments"`
	Heuristics *struct {
		Enabled    *bool `json:"enabled"`
		Thresholds *struct {
			Tiny   *int `json:"tiny"`
			Small  *int `json:"small"`
			Medium *int `json:"medium"`
		} `json:"thresholds"`
		Strategies *struct {
			Tiny   *Strategy `json:"tiny"`
			Small  *Strategy `json:"small"`
			Medium *Strategy `json:"medium"`
			Large  *Strategy `json:"large"`
		} `json:"strategies"`
	} `json:"heuristics"`
	LogLevel               *string `json:"log_level"`
	DebugLogPath           *string `json:"debug_log_path"`
	SnapshotCacheBytes     *int    `json:"snapshot_cache_bytes"`
	DebugImmediateShutdown *bool   `json:"debug_immediate_shutdown"`
}

// Merge overlays the set fields of partial onto base and returns the result.
// Pure: neither input is mutated.
func Merge(base Config, partial Partial) Config {
	out := base

	if m := partial.Mappings; m != nil {
		setString(&out.Mappings.Undo, m.Undo)
		setString(&out.Mappings.Redo, m.Redo)
	}
	if e := partial.Enabled; e != nil {
		setBool(&out.Enabled.Undo, e.Undo)
		setBool(&out.Enabled.Redo, e.Redo)
	}
	if h := partial.HighlightGroups; h != nil {
		setString(&out.HighlightGroups.Added, h.Added)
		setString(&out.HighlightGroups.Removed, h.Removed)
	}
	if th := partial.Threshold; th != nil {
		setInt(&out.Threshold.Line, th.Line)
		setInt(&out.Threshold.Char, th.Char)
	}
	setInt(&out.DurationMs, partial.DurationMs)
	if ra := partial.RangeAdjustments; ra != nil {
		setBool(&out.RangeAdjustments.AdjustWordBoundaries, ra.AdjustWordBoundaries)
		setBool(&out.RangeAdjustments.HandleWhitespace, ra.HandleWhitespace)
	}
	if he := partial.Heuristics; he != nil {
		setBool(&out.Heuristics.Enabled, he.Enabled)
		if th := he.Thresholds; th != nil {
			setInt(&out.Heuristics.Thresholds.Tiny, th.Tiny)
			setInt(&out.Heuristics.Thresholds.Small, th.Small)
			setInt(&out.Heuristics.Thresholds.Medium, th.Medium)
		}
		if st := he.Strategies; st != nil {
			setStrategy(&out.Heuristics.Strategies.Tiny, st.Tiny)
			setStrategy(&out.Heuristics.Strategies.Small, st.Small)
			setStrategy(&out.Heuristics.Strategies.Medium, st.Medium)
			setStrategy(&out.Heuristics.Strategies.Large, st.Large)
		}
	}
	setString(&out.LogLevel, partial.LogLevel)
	setString(&out.DebugLogPath, partial.DebugLogPath)
	setInt(&out.SnapshotCacheBytes, partial.SnapshotCacheBytes)
	setBool(&out.DebugImmediateShutdown, partial.DebugImmediateShutdown)

	return out
}

// Parse decodes a JSON partial config, merges it over the defaults, and
// validates the result. An empty document yields the defaults.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if len(raw) > 0 {
		var partial Partial
		if err := json.Unmarshal(raw, &partial); err != nil {
			return Config{}, fmt.Errorf("invalid config: %w", err)
		}
		cfg = Merge(cfg, partial)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot operate under.
func (c Config) Validate() error {
	if c.DurationMs < 0 {
		return fmt.Errorf("duration must be >= 0, got %d", c.DurationMs)
	}
	if c.Threshold.Line <= 0 || c.Threshold.Char <= 0 {
		return fmt.Errorf("thresholds must be positive, got line=%d char=%d", c.Threshold.Line, c.Threshold.Char)
	}
	if c.HighlightGroups.Added == "" || c.HighlightGroups.Removed == "" {
		return fmt.Errorf("highlight groups must be non-empty")
	}
	th := c.Heuristics.Thresholds
	if !(th.Tiny > 0 && th.Tiny <= th.Small && th.Small <= th.Medium) {
		return fmt.Errorf("heuristic thresholds must be ordered, got tiny=%d small=%d medium=%d", th.Tiny, th.Small, th.Medium)
	}
	st := c.Heuristics.Strategies
	for _, s := range []Strategy{st.Tiny, st.Small, st.Medium, st.Large} {
		if !s.valid() {
			return fmt.Errorf("unknown strategy %q", s)
		}
	}
	if c.SnapshotCacheBytes <= 0 {
		return fmt.Errorf("snapshot cache size must be positive, got %d", c.SnapshotCacheBytes)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setStrategy(dst *Strategy, v *Strategy) {
	if v != nil {
		*dst = *v
	}
}
