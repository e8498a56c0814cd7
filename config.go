package wtf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds tracer runtime configuration, loadable from a relaxed-JSON
// (hujson) file so comments and trailing commas are tolerated.
type Config struct {
	// ChunkLimitSlots is the slot capacity of each EventBuffer chunk.
	// Clamped up to eventbuf.MinChunkSlots on use.
	ChunkLimitSlots int `json:"chunk_limit_slots,omitempty"`
	// OutputPath is a trace file path for callers to pass to SaveToFile.
	// NewRuntime does not read it; SaveToFile always takes its path as an
	// argument.
	OutputPath string `json:"output_path,omitempty"`
	// AppendByDefault is loaded and merged like the other fields. NewRuntime
	// does not read it; SaveToFile appends only when SaveOptions.Append is
	// set.
	AppendByDefault bool `json:"append_by_default,omitempty"`
}

// DefaultConfig returns the tracer's default configuration.
func DefaultConfig() Config {
	return Config{
		ChunkLimitSlots: 4096,
		OutputPath:      "trace.wtf-trace",
	}
}

// ConfigFileName is the default per-project config file name.
const ConfigFileName = ".wtf.json"

// configEnvVar overrides the config file path when set.
const configEnvVar = "WTF_CONFIG"

// LoadConfig loads configuration with the following precedence (highest
// wins): defaults, then a config file at configPath (or WTF_CONFIG, or
// ConfigFileName under workDir if neither is set).
func LoadConfig(workDir, configPath string) (Config, string, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		configPath = os.Getenv(configEnvVar)
	}

	mustExist := configPath != ""
	if configPath == "" {
		configPath = filepath.Join(workDir, ConfigFileName)
	} else if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(workDir, configPath)
	}

	fileCfg, loaded, err := loadConfigFile(configPath, mustExist)
	if err != nil {
		return Config{}, "", err
	}
	if !loaded {
		return cfg, "", nil
	}

	cfg = mergeConfig(cfg, fileCfg)
	return cfg, configPath, nil
}

func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}
		return Config{}, false, WrapError("LoadConfig", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, false, NewError("LoadConfig", CodeIO, fmt.Sprintf("parsing %s: %s", path, err))
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, false, NewError("LoadConfig", CodeIO, fmt.Sprintf("decoding %s: %s", path, err))
	}

	return cfg, true, nil
}

// mergeConfig overlays non-zero fields of override onto base.
func mergeConfig(base, override Config) Config {
	if override.ChunkLimitSlots != 0 {
		base.ChunkLimitSlots = override.ChunkLimitSlots
	}
	if override.OutputPath != "" {
		base.OutputPath = override.OutputPath
	}
	if override.AppendByDefault {
		base.AppendByDefault = true
	}
	return base
}

// sanitizeOutputPath guards against an empty path slipping through config
// merges and landing on the working directory itself.
func sanitizeOutputPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return DefaultConfig().OutputPath
	}
	return path
}
