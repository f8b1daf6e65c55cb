package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/inflight/logger"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	Getwd() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

// Exists reports whether path exists.
func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads path into the process environment.
func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) Getwd() (string, error) {
	return os.Getwd()
}

// EnvConfigFile names an environment variable that, when set, overrides the
// config file search.
const EnvConfigFile = "INFLIGHT_CONFIG"

var configFileNames = []string{"config.yml", "config.yaml"}

// Resolver finds the config and .env files of a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths. Either may
// be empty when nothing was found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns the explicit paths in opts, falling back to
// INFLIGHT_CONFIG for the config file and then to a search of the service
// directories.
func (cr *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = os.Getenv(EnvConfigFile)
	}

	dirs := searchDirs(serviceName)
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.first(dirs, configFileNames)
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.first(dirs, []string{".env." + serviceName, ".env"})
	}
	return resolved
}

// first returns the first existing file, trying every directory for a name
// before moving to the next name.
func (cr *Resolver) first(dirs, names []string) string {
	for _, name := range names {
		for _, dir := range dirs {
			candidate := dir + "/" + name
			if cr.FileSystem.Exists(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// searchDirs lists the directories searched for a service, most specific
// first: cmd/<service>, cmd/<short>, config/<service>, config, then the
// working directory, each also tried one and two levels up. The short name
// is the part after the last dash, so catalog-client also finds cmd/client.
func searchDirs(serviceName string) []string {
	names := []string{serviceName}
	if idx := strings.LastIndex(serviceName, "-"); idx != -1 && idx < len(serviceName)-1 {
		names = append(names, serviceName[idx+1:])
	}

	var prefixes []string
	for _, n := range names {
		prefixes = append(prefixes, "cmd/"+n)
	}
	prefixes = append(prefixes, "config/"+serviceName, "config", "")

	dirs := make([]string, 0, len(prefixes)*3)
	for _, prefix := range prefixes {
		for _, up := range []string{".", "..", "../.."} {
			if prefix == "" {
				dirs = append(dirs, up)
			} else {
				dirs = append(dirs, up+"/"+prefix)
			}
		}
	}
	return removeDuplicates(dirs)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// LoadConfig loads configuration for a service into the provided cfg struct.
// It searches for config.yml and .env files in standard locations, binds
// environment variables, and unmarshals the result into cfg.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(serviceName, lc)

	return loadFromResolvedFiles(serviceName, cfg, files, lc.FileSystem)
}

// loadFromResolvedFiles loads configuration from specific files.
func loadFromResolvedFiles(serviceName string, cfg any, files ResolvedFiles, fs FileSystem) error {
	log := logger.WithComponent("config")

	v := viper.New()

	// 1. Load YAML config first (base configuration)
	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("failed to load config file", logger.Fields("file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}

	// 2. Enable automatic environment variable reading
	v.AutomaticEnv()
	autoBindEnvVars(v)

	// 3. Load .env file
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load .env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		} else {
			// Re-bind env vars after loading .env to pick up new variables
			autoBindEnvVars(v)
		}
	}

	// 4. Unmarshal into config struct
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}

	return nil
}

// autoBindEnvVars automatically binds environment variables to Viper
// by converting UPPER_CASE_WITH_UNDERSCORES to multiple possible nested key formats.
func autoBindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}

		key := pair[0]
		value := pair[1]

		variants := generateEnvKeyVariants(key)
		for _, variant := range variants {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants creates the viper keys an environment variable may
// stand for, from flat to fully nested.
// Examples:
//
//	TRANSPORT_BASE_URL -> [transport_base_url, transport.base.url, transport.base_url, transport_base.url]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "."))
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
