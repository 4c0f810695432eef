package config

var Presets = map[string]map[string]*Config{
	"rocket": {
		"default": {
			Model: "rocket", Intervals: 20, MaxIterations: 100, KKTTolerance: 1e-6,
		},
		"coarse": {
			Model: "rocket", Intervals: 10, MaxIterations: 50, KKTTolerance: 1e-4,
		},
		"fine": {
			Model: "rocket", Intervals: 40, MaxIterations: 200, KKTTolerance: 1e-7,
			IntegratorTol: 1e-10,
		},
	},
	"double_integrator": {
		"default": {
			Model: "double_integrator", Intervals: 20, MaxIterations: 30, KKTTolerance: 1e-8,
		},
		"realtime": {
			Model: "double_integrator", Intervals: 10, Mode: "real_time",
		},
	},
	"pendulum": {
		"swingup": {
			Model: "pendulum", Intervals: 30, MaxIterations: 100, KKTTolerance: 1e-5,
		},
		"coarse": {
			Model: "pendulum", Intervals: 15, MaxIterations: 60, KKTTolerance: 1e-4,
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := DefaultConfig()
	*out = merged(*out, *cfg)
	return out
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}

// merged overlays the preset's set fields onto the defaults.
func merged(base, over Config) Config {
	out := base
	if over.Model != "" {
		out.Model = over.Model
	}
	if over.Intervals > 0 {
		out.Intervals = over.Intervals
	}
	if over.MaxIterations > 0 {
		out.MaxIterations = over.MaxIterations
	}
	if over.KKTTolerance > 0 {
		out.KKTTolerance = over.KKTTolerance
	}
	if over.IntegratorTol > 0 {
		out.IntegratorTol = over.IntegratorTol
	}
	if over.QPMethod != "" {
		out.QPMethod = over.QPMethod
	}
	if over.Mode != "" {
		out.Mode = over.Mode
	}
	return out
}
