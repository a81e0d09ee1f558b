package config

import "sort"

var Presets = map[string]*Config{
	"classic": {
		Width: 320, Height: 240, FPS: 60, Warmup: 30,
		Source: SourceSim, Algorithm: "sha256",
		Output: Output{Kind: "hex", Min: 0, Max: 1_000_000},
	},
	"hires": {
		Width: 640, Height: 480, FPS: 60, Warmup: 60,
		Source: SourceSim, Algorithm: "sha256",
		Output: Output{Kind: "hex", Min: 0, Max: 1_000_000},
	},
	"dice": {
		Width: 160, Height: 120, FPS: 60, Warmup: 10,
		Source: SourceSim, Algorithm: "sha256",
		Output: Output{Kind: "int", Min: 1, Max: 6},
	},
	"uuid": {
		Width: 320, Height: 240, FPS: 60, Warmup: 30,
		Source: SourceSim, Algorithm: "sha3-256",
		Output: Output{Kind: "uuid", Min: 0, Max: 1_000_000},
	},
	"blake": {
		Width: 320, Height: 240, FPS: 30, Warmup: 30,
		Source: SourceSim, Algorithm: "blake2b-256",
		Output: Output{Kind: "hex", Min: 0, Max: 1_000_000},
	},
}

// GetPreset returns a copy of the named preset with unset ambient fields
// filled from the defaults, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	def := DefaultConfig()
	if cfg.Alpha == 0 {
		cfg.Alpha = def.Alpha
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Theme == "" {
		cfg.Theme = def.Theme
	}
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
