package toolserver

// SearchInput is the `search` tool's input schema.
type SearchInput struct {
	Query        string   `json:"query" jsonschema:"the search query to execute"`
	Mode         string   `json:"mode,omitempty" jsonschema:"literal|regex|symbol|semantic|hybrid, default hybrid"`
	Repositories []string `json:"repositories,omitempty" jsonschema:"allowlist of repository labels to search"`
	FilePatterns []string `json:"file_patterns,omitempty" jsonschema:"glob patterns matched against path"`
	Limit        int      `json:"limit,omitempty" jsonschema:"max results, default 50, max 500"`
	Offset       int      `json:"offset,omitempty" jsonschema:"pagination offset, default 0"`
}

// ResultOutput mirrors search.Result for JSON serialization over the wire.
type ResultOutput struct {
	Path          string  `json:"path"`
	Repository    string  `json:"repository"`
	LineNumber    int     `json:"line_number"`
	Column        int     `json:"column"`
	Content       string  `json:"content"`
	ContextBefore string  `json:"context_before,omitempty"`
	ContextAfter  string  `json:"context_after,omitempty"`
	Score         float64 `json:"score"`
	MatchType     string  `json:"match_type"`
}

// SearchOutput is the `search` tool's output schema.
type SearchOutput struct {
	Results      []ResultOutput `json:"results"`
	TotalMatches int            `json:"total_matches"`
	SearchTimeMs int64          `json:"search_time_ms"`
	Degraded     []string       `json:"degraded,omitempty"`
}

// IndexStatusInput is the `index_status` tool's (empty) input schema.
type IndexStatusInput struct{}

// IndexStatusOutput is the `index_status` tool's output schema.
type IndexStatusOutput struct {
	IndexedFiles   int    `json:"indexed_files"`
	TotalSymbols   int    `json:"total_symbols"`
	IndexSizeBytes int64  `json:"index_size_bytes"`
	CacheSizeBytes int64  `json:"cache_size_bytes"`
	WatcherRunning bool   `json:"watcher_running"`
	LastIndexAt    string `json:"last_index_at"`
}

// ReindexInput is the `reindex` tool's input schema.
type ReindexInput struct {
	Repositories []string `json:"repositories,omitempty" jsonschema:"repositories to reindex; empty means every configured root"`
	Force        bool     `json:"force,omitempty" jsonschema:"re-chunk every file even if its content hash is unchanged"`
}

// ReindexOutput is the `reindex` tool's output schema.
type ReindexOutput struct {
	FilesIndexed     int   `json:"files_indexed"`
	SymbolsExtracted int   `json:"symbols_extracted"`
	TimeTakenMs      int64 `json:"time_taken_ms"`
}

// ConfigureInput is the `configure` tool's input schema: a subset of the
// enumerated configuration table. Fields left zero/nil are unchanged.
type ConfigureInput struct {
	MaxFileSize      *int64   `json:"max_file_size,omitempty"`
	IndexingThreads  *int     `json:"indexing_threads,omitempty"`
	EnableSemantic   *bool    `json:"enable_semantic,omitempty"`
	Languages        []string `json:"languages,omitempty"`
	FileWatchDebounceMs *int  `json:"file_watch_debounce_ms,omitempty"`
	FuzzyEnabled     *bool    `json:"fuzzy_enabled,omitempty"`
	FuzzyThreshold   *float64 `json:"fuzzy_threshold,omitempty"`
	FuzzyMaxDistance *int     `json:"fuzzy_max_distance,omitempty"`
	QuantizationMode string   `json:"quantization_mode,omitempty"`
}

// ConfigureOutput is the `configure` tool's output schema: the effective
// configuration after the update was applied (or left unchanged, if the
// update was rejected).
type ConfigureOutput struct {
	Success bool `json:"success"`
	Config  any  `json:"config"`
}
