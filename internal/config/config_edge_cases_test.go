package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Edge Case Tests - scenarios that could cause silent failures or
// unexpected behavior.

// =============================================================================
// FindProjectRoot Edge Cases
// =============================================================================

func TestFindProjectRoot_NonExistentDir_ReturnsAbsolutePath(t *testing.T) {
	nonExistent := "/nonexistent/path/that/does/not/exist"

	root, err := FindProjectRoot(nonExistent)

	// filepath.Abs succeeds even for non-existent paths, so this returns the
	// absolute path rather than an error.
	if err != nil {
		assert.Error(t, err)
	} else {
		assert.NotEmpty(t, root)
	}
}

func TestFindProjectRoot_DeepNesting_FindsGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	deepNested := filepath.Join(tmpDir, "a", "b", "c", "d", "e", "f", "g", "h")
	require.NoError(t, os.Mkdir(gitDir, 0o755))
	require.NoError(t, os.MkdirAll(deepNested, 0o755))

	root, err := FindProjectRoot(deepNested)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_RelativePath_ResolvesToAbsolute(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	oldWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	root, err := FindProjectRoot(".")

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(root), "Root should be absolute path")
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expectedRoot, actualRoot)
}

func TestFindProjectRoot_EmptyString_UsesCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	gitDir := filepath.Join(tmpDir, ".git")
	require.NoError(t, os.Mkdir(gitDir, 0o755))

	oldWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	root, err := FindProjectRoot("")

	require.NoError(t, err)
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expectedRoot, actualRoot)
}

// =============================================================================
// Config Merge Edge Cases
// =============================================================================

func TestLoad_MergeExcludePaths_AppendsToDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
paths:
  exclude:
    - "**/.custom_ignore/**"
embeddings:
  provider: ollama
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**", "Default exclude should be preserved")
	assert.Contains(t, cfg.Paths.Exclude, "**/.git/**", "Default exclude should be preserved")
	assert.Contains(t, cfg.Paths.Exclude, "**/.custom_ignore/**", "Custom exclude should be added")
}

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
max_file_size: 0
indexing_threads: 0
embeddings:
  provider: ollama
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSize, "Zero should not override default max_file_size")
	assert.Equal(t, 4, cfg.IndexingThreads, "Zero should not override default indexing_threads")
}

func TestLoad_NegativeMaxFileSize_Validated(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
version: 1
max_file_size: -10
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".rune.yaml"), []byte(configContent), 0o644))

	cfg, err := Load(tmpDir)

	require.Error(t, err)
	require.Nil(t, cfg)
	assert.Contains(t, err.Error(), "max_file_size must be positive")
}

func TestValidate_UnsupportedLanguage_ReturnsError(t *testing.T) {
	cfg := NewConfig()
	cfg.Languages = []string{"go", "brainfuck"}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestValidate_InvalidQuantizationMode_ReturnsError(t *testing.T) {
	cfg := NewConfig()
	cfg.Vector.QuantizationMode = "lossy"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantization_mode")
}

// =============================================================================
// Config File Permission Edge Cases
// =============================================================================

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Test requires non-root user")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ".rune.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("version: 1"), 0o000))
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	cfg, err := Load(tmpDir)

	require.Error(t, err, "Load should fail for unreadable config file")
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read", "Error should mention read failure")
}

// =============================================================================
// DetectProjectType Edge Cases
// =============================================================================

func TestDetectProjectType_EmptyDir_ReturnsUnknown(t *testing.T) {
	tmpDir := t.TempDir()

	assert.Equal(t, ProjectTypeUnknown, DetectProjectType(tmpDir))
}

func TestDetectProjectType_NonExistentDir_ReturnsUnknown(t *testing.T) {
	nonExistent := "/nonexistent/path/that/does/not/exist"

	assert.Equal(t, ProjectTypeUnknown, DetectProjectType(nonExistent))
}

func TestDetectProjectType_EmptyMarkerFiles_StillDetected(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "go.mod"), []byte(""), 0o644))

	assert.Equal(t, ProjectTypeGo, DetectProjectType(tmpDir))
}

// =============================================================================
// DiscoverSourceDirs / DiscoverDocsDirs Edge Cases
// =============================================================================

func TestDiscoverSourceDirs_EmptyDir_ReturnsEmpty(t *testing.T) {
	tmpDir := t.TempDir()

	assert.Empty(t, DiscoverSourceDirs(tmpDir))
}

func TestDiscoverSourceDirs_NonExistentDir_ReturnsEmpty(t *testing.T) {
	assert.Empty(t, DiscoverSourceDirs("/nonexistent/path/that/does/not/exist"))
}

func TestDiscoverSourceDirs_FilesNotDirs_NotIncluded(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "src"), []byte("not a dir"), 0o644))

	assert.NotContains(t, DiscoverSourceDirs(tmpDir), "src")
}

func TestDiscoverDocsDirs_EmptyDir_ReturnsEmpty(t *testing.T) {
	tmpDir := t.TempDir()

	assert.Empty(t, DiscoverDocsDirs(tmpDir))
}

func TestDiscoverDocsDirs_NonExistentDir_ReturnsEmpty(t *testing.T) {
	assert.Empty(t, DiscoverDocsDirs("/nonexistent/path/that/does/not/exist"))
}

// =============================================================================
// Config JSON Marshaling Edge Cases
// =============================================================================

func TestConfig_JSON_RoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxFileSize = 2000
	cfg.Embeddings.Provider = "static"
	cfg.Vector.QuantizationMode = QuantizationBinary

	data, err := jsonMarshal(cfg)
	require.NoError(t, err)

	var parsed Config
	require.NoError(t, jsonUnmarshal(data, &parsed))

	assert.Equal(t, int64(2000), parsed.MaxFileSize)
	assert.Equal(t, "static", parsed.Embeddings.Provider)
	assert.Equal(t, QuantizationBinary, parsed.Vector.QuantizationMode)
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	invalidJSON := []byte("{invalid json")

	var cfg Config
	err := jsonUnmarshal(invalidJSON, &cfg)

	require.Error(t, err, "Unmarshal should fail for invalid JSON")
}
