package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Config represents the TOML configuration structure
type Config struct {
	Server struct {
		Host        string   `toml:"host"`
		Origins     []string `toml:"origins"`
		MaxBodySize int64    `toml:"max_body_size"`
	} `toml:"server"`

	Parse struct {
		Defines []string `toml:"defines"`
		Lenient bool     `toml:"lenient"`
		Format  string   `toml:"format"`
	} `toml:"parse"`

	Logging struct {
		Debug bool `toml:"debug"`
	} `toml:"logging"`
}

var (
	configMu     sync.Mutex
	configLoaded bool
	config       *Config
	configPath   string
	// set by SetConfigFile; replaces the search paths
	configFile string
)

// GetConfigPaths returns the list of possible config file paths for the current OS
func GetConfigPaths() []string {
	if configFile != "" {
		return []string{configFile}
	}

	var paths []string
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			paths = append(paths, filepath.Join(appData, "hdrparse", "config.toml"))
		}
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			paths = append(paths, filepath.Join(userProfile, ".hdrparse", "config.toml"))
		}
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			paths = append(paths, filepath.Join(xdgConfig, "hdrparse", "config.toml"))
		}
		home, err := os.UserHomeDir()
		if err == nil {
			paths = append(paths,
				filepath.Join(home, ".config", "hdrparse", "config.toml"),
				filepath.Join(home, ".hdrparse", "config.toml"),
			)
		}
	}

	return paths
}

// SetConfigFile makes path the only config file consulted and reloads the
// settings. An empty path restores the default search paths.
func SetConfigFile(path string) error {
	configMu.Lock()
	configFile = path
	configLoaded = false
	configMu.Unlock()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
	}

	LoadConfig()
	return nil
}

// loadConfig loads the first available configuration file
func loadConfig() (*Config, string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			var cfg Config
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, "", fmt.Errorf("error parsing config file %s: %w", path, err)
			}
			return &cfg, path, nil
		}
	}
	return nil, "", nil
}

// GetConfigValue returns the value for a given environment variable key from the config file
func GetConfigValue(key string) string {
	configMu.Lock()
	defer configMu.Unlock()

	if !configLoaded {
		configLoaded = true

		var err error
		config, configPath, err = loadConfig()
		if err != nil {
			slog.Warn("failed to load config file", "error", err)
		} else if config != nil {
			slog.Debug("loaded config file", "path", configPath)
		}
	}

	if config == nil {
		return ""
	}

	switch key {
	case "HDRPARSE_HOST":
		return config.Server.Host
	case "HDRPARSE_ORIGINS":
		if len(config.Server.Origins) > 0 {
			return strings.Join(config.Server.Origins, ",")
		}
	case "HDRPARSE_MAX_BODY":
		if config.Server.MaxBodySize > 0 {
			return strconv.FormatInt(config.Server.MaxBodySize, 10)
		}
	case "HDRPARSE_DEFINES":
		return strings.Join(config.Parse.Defines, ",")
	case "HDRPARSE_LENIENT":
		if config.Parse.Lenient {
			return "true"
		}
	case "HDRPARSE_FORMAT":
		return config.Parse.Format
	case "HDRPARSE_DEBUG":
		if config.Logging.Debug {
			return "true"
		}
	}

	return ""
}

// GenerateExampleConfig returns a commented example TOML configuration
func GenerateExampleConfig() string {
	return `# hdrparse configuration file
# Environment variables take precedence over values set here.

[server]
# Network binding address (default: "127.0.0.1:7411")
host = "127.0.0.1:7411"
# Allowed CORS origins
origins = ["http://localhost:3000"]
# Maximum request body size in bytes (default: 8388608)
max_body_size = 8388608

[parse]
# Macros defined before every header, as NAME or NAME=VALUE
defines = ["__cplusplus"]
# Skip declarations that fail to parse instead of failing
lenient = false
# Output format: yaml, json or cbor (default: "yaml")
format = "yaml"

[logging]
# Enable debug logging (default: false)
debug = false
`
}
