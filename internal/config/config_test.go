package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// AC01: Default Configuration Tests
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.WorkspaceRoots)
	assert.Equal(t, ".rune_cache", cfg.CacheDir)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize)
	assert.Equal(t, 4, cfg.IndexingThreads)
	assert.True(t, cfg.EnableSemantic)
	assert.ElementsMatch(t, []string{"rust", "js", "ts", "py", "go", "java", "cpp"}, cfg.Languages)

	assert.Equal(t, 500, cfg.Watch.DebounceMs)

	assert.True(t, cfg.Fuzzy.Enabled)
	assert.Equal(t, 0.75, cfg.Fuzzy.Threshold)
	assert.Equal(t, 2, cfg.Fuzzy.MaxDistance)

	assert.Equal(t, "localhost:6334", cfg.Vector.StoreURL)
	assert.Equal(t, QuantizationScalar, cfg.Vector.QuantizationMode)

	assert.False(t, cfg.Cache.Enabled)

	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
	assert.Equal(t, 384, cfg.Embeddings.Dimensions)
	assert.Equal(t, 32, cfg.Embeddings.BatchSize)

	assert.Equal(t, runtime.NumCPU(), cfg.Performance.IndexWorkers)
	assert.Equal(t, 10_000, cfg.Performance.CacheSize)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 8765, cfg.Server.Port)

	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
	assert.Contains(t, cfg.Paths.Exclude, "**/.git/**")
	assert.Contains(t, cfg.Paths.Exclude, "**/vendor/**")
}

func TestConfig_VersionDefaultsToOne(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 1, cfg.Version)
}

func TestConfig_CacheDirFor_SharedCacheDisabled_ReturnsCacheDir(t *testing.T) {
	cfg := NewConfig()
	cfg.CacheDir = "/tmp/rune"
	assert.Equal(t, "/tmp/rune", cfg.CacheDirFor())
}

func TestConfig_CacheDirFor_SharedCacheEnabled_HashesWorkspaceID(t *testing.T) {
	cfg := NewConfig()
	cfg.CacheDir = "/tmp/rune"
	cfg.Cache.Enabled = true
	cfg.Cache.WorkspaceID = "team-alpha"

	dir := cfg.CacheDirFor()
	assert.NotEqual(t, "/tmp/rune", dir)
	assert.Equal(t, filepath.Join("/tmp/rune", hashWorkspaceID("team-alpha")), dir)
}

// =============================================================================
// AC02: Configuration File Loading Tests
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
max_file_size: 5242880
indexing_threads: 8
fuzzy:
  fuzzy_threshold: 0.9
`
	err := os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, int64(5242880), cfg.MaxFileSize)
	assert.Equal(t, 8, cfg.IndexingThreads)
	assert.Equal(t, 0.9, cfg.Fuzzy.Threshold)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
embeddings:
  provider: static
`
	err := os.WriteFile(filepath.Join(tmpDir, ".rune.yml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	tmpDir := t.TempDir()
	yamlContent := "version: 1\nembeddings:\n  provider: ollama\n"
	ymlContent := "version: 1\nembeddings:\n  provider: static\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(yamlContent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yml"), []byte(ymlContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	invalidContent := "version: 1\nmax_file_size: [invalid yaml syntax\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(invalidContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

// =============================================================================
// AC03: Project Type Detection Tests
// =============================================================================

func TestDetectProjectType_GoMod_ReturnsGo(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte("module test"), 0o644))

	assert.Equal(t, ProjectTypeGo, DetectProjectType(tmpDir))
}

func TestDetectProjectType_PackageJson_ReturnsNode(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte("{}"), 0o644))

	assert.Equal(t, ProjectTypeNode, DetectProjectType(tmpDir))
}

func TestDetectProjectType_PyprojectToml_ReturnsPython(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "pyproject.toml"), []byte("[project]"), 0o644))

	assert.Equal(t, ProjectTypePython, DetectProjectType(tmpDir))
}

func TestDetectProjectType_NoMarkerFiles_ReturnsUnknown(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "random.txt"), []byte("hello"), 0o644))

	assert.Equal(t, ProjectTypeUnknown, DetectProjectType(tmpDir))
}

func TestDetectProjectType_Priority_GoOverNode(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte("module test"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte("{}"), 0o644))

	assert.Equal(t, ProjectTypeGo, DetectProjectType(tmpDir))
}

// =============================================================================
// AC04: Directory Auto-Detection Tests
// =============================================================================

func TestFindProjectRoot_GitDirectory_ReturnsGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	nestedDir := filepath.Join(tmpDir, "src", "internal")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	root, err := FindProjectRoot(nestedDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_ConfigFile_ReturnsConfigLocation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "src", "internal")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte("version: 1"), 0o644))

	root, err := FindProjectRoot(nestedDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_NoMarkers_ReturnsCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()

	root, err := FindProjectRoot(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestDiscoverSourceDirs_FindsCommonDirs(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "src"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "lib"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "internal"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "cmd"), 0o755))

	dirs := DiscoverSourceDirs(tmpDir)

	assert.Contains(t, dirs, "src")
	assert.Contains(t, dirs, "lib")
	assert.Contains(t, dirs, "internal")
	assert.Contains(t, dirs, "cmd")
}

func TestDiscoverDocsDirs_FindsDocDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "docs"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "doc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "README.md"), []byte("# Title"), 0o644))

	dirs := DiscoverDocsDirs(tmpDir)

	assert.Contains(t, dirs, "docs")
	assert.Contains(t, dirs, "doc")
	assert.Contains(t, dirs, "README.md")
}

func TestDiscoverSourceDirs_NextJS_FindsAppAndPages(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "package.json"), []byte(`{"dependencies":{"next":"*"}}`), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "app"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "pages"), 0o755))

	dirs := DiscoverSourceDirs(tmpDir)

	assert.Contains(t, dirs, "app")
	assert.Contains(t, dirs, "pages")
}

// =============================================================================
// AC05: Environment Variable Override Tests
// =============================================================================

func TestLoad_EnvVarOverridesProvider(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "version: 1\nembeddings:\n  provider: static\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(configContent), 0o644))
	t.Setenv("RUNE_EMBEDDINGS_PROVIDER", "ollama")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_EnvVarOverridesModel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RUNE_EMBEDDINGS_MODEL", "nomic-embed-text")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", cfg.Embeddings.Model)
}

func TestLoad_EnvVarOverridesLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RUNE_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_EnvVarOverridesTransport(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RUNE_TRANSPORT", "sse")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "sse", cfg.Server.Transport)
}

func TestLoad_EnvVarOverridesVectorStoreURL(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := "version: 1\nvector:\n  vector_store_url: other-host:6334\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(configContent), 0o644))
	t.Setenv("RUNE_VECTOR_STORE_URL", "override-host:6334")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "override-host:6334", cfg.Vector.StoreURL)
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("RUNE_EMBEDDINGS_PROVIDER", "")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

// =============================================================================
// AC06: User/Global Configuration Tests
// =============================================================================

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := GetUserConfigPath()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expected := filepath.Join(home, ".config", "rune", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()

	expected := filepath.Join(customConfig, "rune", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigDir_ReturnsParentOfConfigPath(t *testing.T) {
	dir := GetUserConfigDir()
	path := GetUserConfigPath()

	assert.Equal(t, filepath.Dir(path), dir)
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", emptyDir)

	assert.False(t, UserConfigExists())
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	runeDir := filepath.Join(configDir, "rune")
	require.NoError(t, os.MkdirAll(runeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(runeDir, "config.yaml"), []byte("version: 1"), 0o644))

	assert.True(t, UserConfigExists())
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	runeDir := filepath.Join(configDir, "rune")
	require.NoError(t, os.MkdirAll(runeDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  ollama_host: http://custom-host:11434\n"
	require.NoError(t, os.WriteFile(filepath.Join(runeDir, "config.yaml"), []byte(userConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "http://custom-host:11434", cfg.Embeddings.OllamaHost)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	runeDir := filepath.Join(configDir, "rune")
	require.NoError(t, os.MkdirAll(runeDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  provider: ollama\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(runeDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\nembeddings:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".rune.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "project-model", cfg.Embeddings.Model)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("RUNE_EMBEDDINGS_MODEL", "env-model")

	runeDir := filepath.Join(configDir, "rune")
	require.NoError(t, os.MkdirAll(runeDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(runeDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\nembeddings:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".rune.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Embeddings.Model)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	runeDir := filepath.Join(configDir, "rune")
	require.NoError(t, os.MkdirAll(runeDir, 0o755))
	invalidConfig := "version: 1\nembeddings:\n  model: [invalid yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(runeDir, "config.yaml"), []byte(invalidConfig), 0o644))

	cfg, err := Load(projectDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}
