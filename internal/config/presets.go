package config

import "sort"

var Presets = map[string]func() *SearchConfig{
	"default": Default,
	"quick": func() *SearchConfig {
		cfg := Default()
		cfg.Iterations = 500
		cfg.MaxAttempts = 1000
		cfg.Batches = 5
		cfg.Lyapunov.TransientSkipSteps = 50
		return cfg
	},
	"planar": func() *SearchConfig {
		cfg := Default()
		cfg.Dimensions = 2
		cfg.ParamCount = TotalCoeffs(2)
		return cfg
	},
	"hyper": func() *SearchConfig {
		cfg := Default()
		cfg.Dimensions = 4
		cfg.ParamCount = TotalCoeffs(4)
		cfg.Iterations = 3000
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *SearchConfig {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
