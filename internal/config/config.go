// Package config loads the analysis configuration from file, environment
// and defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full configuration of one detection run.
type Config struct {
	Input    InputConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

// InputConfig names the point files of the run.
type InputConfig struct {
	TestFile      string
	ReferenceFile string
}

// AnalysisConfig mirrors the analysis parameters.
type AnalysisConfig struct {
	Optimizer string

	AnalyzeNormal     bool
	AnalyzeTransverse bool
	AnalyzeOblique    bool

	Heuristic   bool
	Sensitivity float64

	Lat0Step float64
	LatPStep float64
	LonPStep float64

	RemoveOutliers  bool
	CorrectRotation bool
	MatchMethod     string

	PrintExceptions bool
	PrintedResults  int

	MaxGenerations int
	Seed           int64

	Families []string
}

// LogConfig selects the log verbosity.
type LogConfig struct {
	Level string
}

// Load reads the configuration, merging file values over defaults and
// PROJDETECT_* environment overrides over both.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("analysis.optimizer", "grid")
	v.SetDefault("analysis.analyzenormal", true)
	v.SetDefault("analysis.analyzetransverse", false)
	v.SetDefault("analysis.analyzeoblique", false)
	v.SetDefault("analysis.heuristic", true)
	v.SetDefault("analysis.sensitivity", 1.0)
	v.SetDefault("analysis.lat0step", 10.0)
	v.SetDefault("analysis.latpstep", 10.0)
	v.SetDefault("analysis.lonpstep", 10.0)
	v.SetDefault("analysis.removeoutliers", false)
	v.SetDefault("analysis.correctrotation", false)
	v.SetDefault("analysis.matchmethod", "circle")
	v.SetDefault("analysis.printexceptions", false)
	v.SetDefault("analysis.printedresults", 20)
	v.SetDefault("analysis.maxgenerations", 1000)
	v.SetDefault("analysis.seed", 1)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("PROJDETECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
