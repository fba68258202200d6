package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectType represents the type of project detected at a workspace root.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeUnknown ProjectType = "unknown"
)

// QuantizationMode names the vector store's storage/query quantization.
type QuantizationMode string

const (
	QuantizationNone       QuantizationMode = "none"
	QuantizationScalar     QuantizationMode = "scalar"
	QuantizationBinary     QuantizationMode = "binary"
	QuantizationAsymmetric QuantizationMode = "asymmetric"
)

// defaultLanguages is the symbol-extraction allowlist applied when no
// languages are configured.
var defaultLanguages = []string{"rust", "js", "ts", "py", "go", "java", "cpp"}

// Config is the engine's complete configuration, enumerated per the
// configuration table: workspace roots, indexing limits, fuzzy-search
// tuning, and the external vector store connection.
type Config struct {
	Version int `yaml:"version" json:"version"`

	WorkspaceRoots []string `yaml:"workspace_roots" json:"workspace_roots"`
	CacheDir       string   `yaml:"cache_dir" json:"cache_dir"`
	MaxFileSize    int64    `yaml:"max_file_size" json:"max_file_size"`
	IndexingThreads int     `yaml:"indexing_threads" json:"indexing_threads"`
	EnableSemantic bool     `yaml:"enable_semantic" json:"enable_semantic"`
	Languages      []string `yaml:"languages" json:"languages"`

	Paths  PathsConfig  `yaml:"paths" json:"paths"`
	Watch  WatchConfig  `yaml:"watch" json:"watch"`
	Fuzzy  FuzzyConfig  `yaml:"fuzzy" json:"fuzzy"`
	Vector VectorConfig `yaml:"vector" json:"vector"`
	Cache  SharedCacheConfig `yaml:"shared_cache" json:"shared_cache"`

	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Submodules  SubmoduleConfig   `yaml:"submodules" json:"submodules"`
}

// PathsConfig configures which paths the walker includes and excludes.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// WatchConfig configures the filesystem watcher's debounce behavior.
type WatchConfig struct {
	DebounceMs int `yaml:"file_watch_debounce_ms" json:"file_watch_debounce_ms"`
}

// FuzzyConfig configures literal mode's fuzzy-retry fallback.
type FuzzyConfig struct {
	Enabled     bool    `yaml:"fuzzy_enabled" json:"fuzzy_enabled"`
	Threshold   float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`
	MaxDistance int     `yaml:"fuzzy_max_distance" json:"fuzzy_max_distance"`
}

// VectorConfig configures the external vector store connection.
type VectorConfig struct {
	StoreURL         string           `yaml:"vector_store_url" json:"vector_store_url"`
	QuantizationMode QuantizationMode `yaml:"quantization_mode" json:"quantization_mode"`
}

// SharedCacheConfig lets multiple engine instances over the same workspace
// share one on-disk cache, keyed by workspace_id rather than path.
type SharedCacheConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	WorkspaceID string `yaml:"workspace_id" json:"workspace_id"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	// OllamaHost is the Ollama API endpoint used by the default provider.
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
}

// PerformanceConfig configures performance tuning options.
type PerformanceConfig struct {
	IndexWorkers  int    `yaml:"index_workers" json:"index_workers"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	CacheTTL      string `yaml:"cache_ttl" json:"cache_ttl"`
	SQLiteCacheMB int    `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// ServerConfig configures the MCP tool server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// SubmoduleConfig configures git submodule discovery.
type SubmoduleConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Recursive bool     `yaml:"recursive" json:"recursive"`
	Include   []string `yaml:"include" json:"include"`
	Exclude   []string `yaml:"exclude" json:"exclude"`
}

// defaultExcludePatterns are always excluded from the walk.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig creates a new Config with the defaults from the configuration
// table.
func NewConfig() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return &Config{
		Version:         1,
		WorkspaceRoots:  []string{cwd},
		CacheDir:        ".rune_cache",
		MaxFileSize:     10 * 1024 * 1024,
		IndexingThreads: 4,
		EnableSemantic:  true,
		Languages:       append([]string(nil), defaultLanguages...),
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
		Fuzzy: FuzzyConfig{
			Enabled:     true,
			Threshold:   0.75,
			MaxDistance: 2,
		},
		Vector: VectorConfig{
			StoreURL:         "localhost:6334",
			QuantizationMode: QuantizationScalar,
		},
		Cache: SharedCacheConfig{
			Enabled:     false,
			WorkspaceID: "",
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "all-minilm",
			Dimensions: 384,
			BatchSize:  32,
			OllamaHost: "",
		},
		Performance: PerformanceConfig{
			IndexWorkers:  runtime.NumCPU(),
			CacheSize:     10_000,
			CacheTTL:      "5m",
			SQLiteCacheMB: 64,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
		Submodules: SubmoduleConfig{
			Enabled:   false,
			Recursive: true,
		},
	}
}

// CacheDirFor resolves the effective cache directory, applying the
// shared-cache indirection when enabled: cache_dir/sha256(workspace_id)[:16].
func (c *Config) CacheDirFor() string {
	if !c.Cache.Enabled || c.Cache.WorkspaceID == "" {
		return c.CacheDir
	}
	return filepath.Join(c.CacheDir, hashWorkspaceID(c.Cache.WorkspaceID))
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/rune/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/rune/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rune", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "rune", "config.yaml")
	}
	return filepath.Join(home, ".config", "rune", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration from the specified directory, applying
// precedence in increasing order:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/rune/config.yaml)
//  3. Project config (.rune.yaml in project root)
//  4. Environment variables (RUNE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .rune.yaml or .rune.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".rune.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".rune.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if len(other.WorkspaceRoots) > 0 {
		c.WorkspaceRoots = other.WorkspaceRoots
	}
	if other.CacheDir != "" {
		c.CacheDir = other.CacheDir
	}
	if other.MaxFileSize != 0 {
		c.MaxFileSize = other.MaxFileSize
	}
	if other.IndexingThreads != 0 {
		c.IndexingThreads = other.IndexingThreads
	}
	if len(other.Languages) > 0 {
		c.Languages = other.Languages
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Watch.DebounceMs != 0 {
		c.Watch.DebounceMs = other.Watch.DebounceMs
	}

	if other.Fuzzy.Threshold != 0 {
		c.Fuzzy.Threshold = other.Fuzzy.Threshold
	}
	if other.Fuzzy.MaxDistance != 0 {
		c.Fuzzy.MaxDistance = other.Fuzzy.MaxDistance
	}

	if other.Vector.StoreURL != "" {
		c.Vector.StoreURL = other.Vector.StoreURL
	}
	if other.Vector.QuantizationMode != "" {
		c.Vector.QuantizationMode = other.Vector.QuantizationMode
	}

	if other.Cache.WorkspaceID != "" {
		c.Cache.Enabled = other.Cache.Enabled
		c.Cache.WorkspaceID = other.Cache.WorkspaceID
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.CacheSize != 0 {
		c.Performance.CacheSize = other.Performance.CacheSize
	}
	if other.Performance.CacheTTL != "" {
		c.Performance.CacheTTL = other.Performance.CacheTTL
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Submodules.Enabled {
		c.Submodules.Enabled = other.Submodules.Enabled
	}
	if len(other.Submodules.Include) > 0 || len(other.Submodules.Exclude) > 0 || other.Submodules.Enabled {
		c.Submodules.Recursive = other.Submodules.Recursive
	}
	if len(other.Submodules.Include) > 0 {
		c.Submodules.Include = other.Submodules.Include
	}
	if len(other.Submodules.Exclude) > 0 {
		c.Submodules.Exclude = other.Submodules.Exclude
	}
}

// applyEnvOverrides applies RUNE_* environment variable overrides, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RUNE_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("RUNE_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxFileSize = n
		}
	}
	if v := os.Getenv("RUNE_ENABLE_SEMANTIC"); v != "" {
		c.EnableSemantic = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("RUNE_FUZZY_ENABLED"); v != "" {
		c.Fuzzy.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("RUNE_VECTOR_STORE_URL"); v != "" {
		c.Vector.StoreURL = v
	}
	if v := os.Getenv("RUNE_QUANTIZATION_MODE"); v != "" {
		c.Vector.QuantizationMode = QuantizationMode(v)
	}
	if v := os.Getenv("RUNE_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("RUNE_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("RUNE_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("RUNE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("RUNE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// DetectProjectType detects the project type of dir based on marker files.
func DetectProjectType(dir string) ProjectType {
	if fileExists(filepath.Join(dir, "go.mod")) {
		return ProjectTypeGo
	}
	if fileExists(filepath.Join(dir, "package.json")) {
		return ProjectTypeNode
	}
	if fileExists(filepath.Join(dir, "pyproject.toml")) ||
		fileExists(filepath.Join(dir, "requirements.txt")) {
		return ProjectTypePython
	}
	return ProjectTypeUnknown
}

// FindProjectRoot finds the project root directory by walking up from
// startDir looking for .git or a .rune.yaml/.yml file.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".rune.yaml")) ||
			fileExists(filepath.Join(currentDir, ".rune.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// DiscoverSourceDirs discovers common source directories in the project.
func DiscoverSourceDirs(dir string) []string {
	commonSourceDirs := []string{"src", "lib", "pkg", "internal", "cmd"}
	frameworkDirs := []string{"app", "pages"}

	var found []string
	for _, d := range commonSourceDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}

	if isNextJS(dir) {
		for _, d := range frameworkDirs {
			if dirExists(filepath.Join(dir, d)) {
				found = append(found, d)
			}
		}
	}

	return found
}

// DiscoverDocsDirs discovers documentation directories in the project.
func DiscoverDocsDirs(dir string) []string {
	commonDocDirs := []string{"docs", "doc"}
	commonDocFiles := []string{"README.md", "readme.md", "README.markdown"}

	var found []string
	for _, d := range commonDocDirs {
		if dirExists(filepath.Join(dir, d)) {
			found = append(found, d)
		}
	}
	for _, f := range commonDocFiles {
		if fileExists(filepath.Join(dir, f)) {
			found = append(found, f)
			break
		}
	}

	return found
}

// isNextJS checks if the project is a Next.js project.
func isNextJS(dir string) bool {
	pkgPath := filepath.Join(dir, "package.json")
	if !fileExists(pkgPath) {
		return false
	}

	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return false
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}

	_, hasNext := pkg.Dependencies["next"]
	_, hasNextDev := pkg.DevDependencies["next"]
	return hasNext || hasNextDev
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// String returns a string representation of ProjectType.
func (p ProjectType) String() string {
	return string(p)
}

// IsKnown returns true if the project type is known (not unknown).
func (p ProjectType) IsKnown() bool {
	return p != ProjectTypeUnknown
}

var validLanguages = map[string]bool{
	"rust": true, "js": true, "ts": true, "py": true, "go": true,
	"java": true, "cpp": true, "c": true, "csharp": true, "ruby": true,
	"php": true, "html": true, "css": true, "json": true, "yaml": true, "toml": true,
}

var validQuantizationModes = map[QuantizationMode]bool{
	QuantizationNone: true, QuantizationScalar: true,
	QuantizationBinary: true, QuantizationAsymmetric: true,
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.WorkspaceRoots) == 0 {
		return fmt.Errorf("workspace_roots must not be empty")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.IndexingThreads <= 0 {
		return fmt.Errorf("indexing_threads must be positive, got %d", c.IndexingThreads)
	}

	for _, lang := range c.Languages {
		if !validLanguages[strings.ToLower(lang)] {
			return fmt.Errorf("unsupported language in languages: %s", lang)
		}
	}

	if c.Fuzzy.Threshold < 0 || c.Fuzzy.Threshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be between 0 and 1, got %f", c.Fuzzy.Threshold)
	}
	if c.Fuzzy.MaxDistance < 0 {
		return fmt.Errorf("fuzzy_max_distance must be non-negative, got %d", c.Fuzzy.MaxDistance)
	}

	if !validQuantizationModes[c.Vector.QuantizationMode] {
		return fmt.Errorf("quantization_mode must be none, scalar, binary, or asymmetric, got %s", c.Vector.QuantizationMode)
	}
	if c.Vector.StoreURL == "" {
		return fmt.Errorf("vector_store_url must not be empty")
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty, got %s", c.Embeddings.Provider)
		}
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}
