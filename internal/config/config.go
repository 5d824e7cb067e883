package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings tunes a VM session. The zero value is not usable; start from
// Defaults and overlay a config file with Load.
type Settings struct {
	// MaxFrames bounds the call-frame stack. Exceeding it is a stack overflow.
	MaxFrames int `yaml:"max_frames" toml:"max_frames"`

	// StackSlotsPerFrame sizes the value stack as MaxFrames*StackSlotsPerFrame.
	StackSlotsPerFrame int `yaml:"stack_slots_per_frame" toml:"stack_slots_per_frame"`

	GC    GCSettings    `yaml:"gc" toml:"gc"`
	Debug DebugSettings `yaml:"debug" toml:"debug"`
}

// GCSettings controls when the collector runs.
type GCSettings struct {
	// InitialThreshold is the allocated byte count that triggers the first collection.
	InitialThreshold int `yaml:"initial_threshold" toml:"initial_threshold"`

	// GrowthFactor multiplies the live heap after a collection to get the next threshold.
	GrowthFactor float64 `yaml:"growth_factor" toml:"growth_factor"`

	// MinThreshold is the floor for the next threshold.
	MinThreshold int `yaml:"min_threshold" toml:"min_threshold"`

	// Stress collects on every allocation.
	Stress bool `yaml:"stress" toml:"stress"`

	// LogCollections logs every collection at info level instead of debug.
	LogCollections bool `yaml:"log_collections" toml:"log_collections"`
}

// DebugSettings enables diagnostic output.
type DebugSettings struct {
	// TraceExecution logs the stack and each instruction before it runs.
	TraceExecution bool `yaml:"trace_execution" toml:"trace_execution"`

	// PrintCode logs the disassembly of every function the compiler finishes.
	PrintCode bool `yaml:"print_code" toml:"print_code"`
}

// Defaults returns the stock settings.
func Defaults() Settings {
	return Settings{
		MaxFrames:          64,
		StackSlotsPerFrame: 256,
		GC: GCSettings{
			InitialThreshold: 1024 * 1024,
			GrowthFactor:     2,
			MinThreshold:     1024 * 1024,
		},
	}
}

// StackSize is the number of value slots the VM allocates.
func (s Settings) StackSize() int {
	return s.MaxFrames * s.StackSlotsPerFrame
}

// Validate rejects settings the VM cannot run with.
func (s Settings) Validate() error {
	if s.MaxFrames <= 0 {
		return fmt.Errorf("max_frames must be positive, got %d", s.MaxFrames)
	}
	if s.StackSlotsPerFrame <= 0 {
		return fmt.Errorf("stack_slots_per_frame must be positive, got %d", s.StackSlotsPerFrame)
	}
	if s.GC.InitialThreshold <= 0 {
		return fmt.Errorf("gc.initial_threshold must be positive, got %d", s.GC.InitialThreshold)
	}
	if s.GC.MinThreshold <= 0 {
		return fmt.Errorf("gc.min_threshold must be positive, got %d", s.GC.MinThreshold)
	}
	if s.GC.GrowthFactor < 1 {
		return fmt.Errorf("gc.growth_factor must be at least 1, got %g", s.GC.GrowthFactor)
	}
	return nil
}

// Load reads a YAML or TOML settings file, picked by extension, on top of
// Defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes settings content. The path picks the format and is used in
// error messages.
func Parse(data []byte, path string) (Settings, error) {
	s := Defaults()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &s); err != nil {
			return Settings{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		return Settings{}, fmt.Errorf("config %s: unsupported format %q (want .yaml, .yml or .toml)", path, filepath.Ext(path))
	}

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config %s: %w", path, err)
	}
	return s, nil
}

// Discover returns the first default config file present in dir, or "".
func Discover(dir string) string {
	for _, name := range DefaultConfigFiles {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
