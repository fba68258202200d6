package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/rune-engine/rune/internal/chunk"
)

// SQLiteStore implements MetadataStore over a single SQLite database file
// in WAL mode, mirroring the connection and pragma setup used by the rest
// of this package's SQLite-backed components.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the metadata database at path. An empty
// path opens an in-memory database, used by tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

	CREATE TABLE IF NOT EXISTS workspaces (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		root_path    TEXT NOT NULL,
		project_type TEXT,
		file_count   INTEGER NOT NULL DEFAULT 0,
		chunk_count  INTEGER NOT NULL DEFAULT 0,
		indexed_at   DATETIME,
		version      TEXT
	);

	CREATE TABLE IF NOT EXISTS files (
		path         TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		repository   TEXT,
		size_bytes   INTEGER NOT NULL DEFAULT 0,
		mod_time     DATETIME,
		content_hash BLOB,
		language     TEXT,
		indexed_at   DATETIME,
		generated    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_files_workspace ON files(workspace_id);
	CREATE INDEX IF NOT EXISTS idx_files_repository ON files(repository);

	CREATE TABLE IF NOT EXISTS chunks (
		file_path  TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line   INTEGER NOT NULL,
		content    TEXT,
		language   TEXT,
		PRIMARY KEY (file_path, start_line, end_line)
	);

	CREATE TABLE IF NOT EXISTS symbols (
		file_path  TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line   INTEGER NOT NULL,
		name       TEXT NOT NULL,
		kind       TEXT NOT NULL,
		container  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);
	CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

	CREATE TABLE IF NOT EXISTS kv_state (
		key   TEXT PRIMARY KEY,
		value TEXT
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DB exposes the underlying handle for callers that need a direct
// transaction spanning multiple store calls (e.g. reconciliation passes).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) SaveWorkspace(ctx context.Context, ws *Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, root_path, project_type, file_count, chunk_count, indexed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, root_path=excluded.root_path, project_type=excluded.project_type,
			file_count=excluded.file_count, chunk_count=excluded.chunk_count,
			indexed_at=excluded.indexed_at, version=excluded.version`,
		ws.ID, ws.Name, ws.RootPath, ws.ProjectType, ws.FileCount, ws.ChunkCount, ws.IndexedAt, ws.Version)
	return err
}

func (s *SQLiteStore) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, root_path, project_type, file_count, chunk_count, indexed_at, version
		FROM workspaces WHERE id = ?`, id)

	ws := &Workspace{}
	var indexedAt sql.NullTime
	var projectType, version sql.NullString
	err := row.Scan(&ws.ID, &ws.Name, &ws.RootPath, &projectType, &ws.FileCount, &ws.ChunkCount, &indexedAt, &version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	ws.ProjectType = projectType.String
	ws.Version = version.String
	ws.IndexedAt = indexedAt.Time
	return ws, nil
}

func (s *SQLiteStore) UpdateWorkspaceStats(ctx context.Context, id string, fileCount, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE workspaces SET file_count = ?, chunk_count = ?, indexed_at = ? WHERE id = ?`,
		fileCount, chunkCount, time.Now(), id)
	return err
}

// RefreshWorkspaceStats recomputes file_count and chunk_count from the
// files and chunks tables rather than trusting an incrementally maintained
// counter.
func (s *SQLiteStore) RefreshWorkspaceStats(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	var fileCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE workspace_id = ?`, id).Scan(&fileCount); err != nil {
		return fmt.Errorf("failed to count files: %w", err)
	}

	var chunkCount int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c
		JOIN files f ON f.path = c.file_path
		WHERE f.workspace_id = ?`, id).Scan(&chunkCount)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE workspaces SET file_count = ?, chunk_count = ?, indexed_at = ? WHERE id = ?`,
		fileCount, chunkCount, time.Now(), id)
	return err
}

func (s *SQLiteStore) SaveFile(ctx context.Context, f *FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (path, workspace_id, repository, size_bytes, mod_time, content_hash, language, indexed_at, generated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			workspace_id=excluded.workspace_id, repository=excluded.repository,
			size_bytes=excluded.size_bytes, mod_time=excluded.mod_time,
			content_hash=excluded.content_hash, language=excluded.language,
			indexed_at=excluded.indexed_at, generated=excluded.generated`,
		f.Path, f.WorkspaceID, f.Repository, f.SizeBytes, f.ModTime, f.ContentHash[:], f.Language, f.IndexedAt, f.Generated)
	return err
}

func (s *SQLiteStore) GetFile(ctx context.Context, path string) (*FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT path, workspace_id, repository, size_bytes, mod_time, content_hash, language, indexed_at, generated
		FROM files WHERE path = ?`, path)
	return scanFileMeta(row)
}

func scanFileMeta(row *sql.Row) (*FileMeta, error) {
	f := &FileMeta{}
	var hash []byte
	var repository, language sql.NullString
	var generated int
	err := row.Scan(&f.Path, &f.WorkspaceID, &repository, &f.SizeBytes, &f.ModTime, &hash, &language, &f.IndexedAt, &generated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}
	f.Repository = repository.String
	f.Language = language.String
	f.Generated = generated != 0
	copy(f.ContentHash[:], hash)
	return f, nil
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete symbols: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListFiles(ctx context.Context, workspaceID string) ([]*FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, workspace_id, repository, size_bytes, mod_time, content_hash, language, indexed_at, generated
		FROM files WHERE workspace_id = ? ORDER BY path`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var out []*FileMeta
	for rows.Next() {
		f := &FileMeta{}
		var hash []byte
		var repository, language sql.NullString
		var generated int
		if err := rows.Scan(&f.Path, &f.WorkspaceID, &repository, &f.SizeBytes, &f.ModTime, &hash, &language, &f.IndexedAt, &generated); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.Repository = repository.String
		f.Language = language.String
		f.Generated = generated != 0
		copy(f.ContentHash[:], hash)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListFilePathsUnder(ctx context.Context, repository string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files WHERE repository = ? ORDER BY path`, repository)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveChunks replaces all chunks (and their symbols) for path in a single
// transaction: delete-then-insert, matching the text index's update
// strategy so both stores converge on the same set per invariant 2.
func (s *SQLiteStore) SaveChunks(ctx context.Context, path string, chunks []*PersistedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("failed to clear symbols: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (file_path, start_line, end_line, content, language)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (file_path, start_line, end_line, name, kind, container)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare symbol insert: %w", err)
	}
	defer symStmt.Close()

	for _, c := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, c.FilePath, c.StartLine, c.EndLine, c.Content, c.Language); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
		for _, sym := range c.Symbols {
			if _, err := symStmt.ExecContext(ctx, c.FilePath, sym.StartLine, sym.EndLine, sym.Name, string(sym.Type), sym.Container); err != nil {
				return fmt.Errorf("failed to insert symbol: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetChunksByFile(ctx context.Context, path string) ([]*PersistedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT start_line, end_line, content, language FROM chunks
		WHERE file_path = ? ORDER BY start_line`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var out []*PersistedChunk
	for rows.Next() {
		c := &PersistedChunk{FilePath: path}
		if err := rows.Scan(&c.StartLine, &c.EndLine, &c.Content, &c.Language); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, c := range out {
		symRows, err := s.db.QueryContext(ctx, `
			SELECT name, kind, start_line, end_line, container FROM symbols
			WHERE file_path = ? AND start_line = ? AND end_line = ?`, path, c.StartLine, c.EndLine)
		if err != nil {
			return nil, fmt.Errorf("failed to query symbols: %w", err)
		}
		for symRows.Next() {
			sym := &chunk.Symbol{}
			var container sql.NullString
			if err := symRows.Scan(&sym.Name, &sym.Type, &sym.StartLine, &sym.EndLine, &container); err != nil {
				symRows.Close()
				return nil, fmt.Errorf("failed to scan symbol: %w", err)
			}
			sym.Container = container.String
			c.Symbols = append(c.Symbols, sym)
		}
		symRows.Close()
	}

	return out, nil
}

func (s *SQLiteStore) DeleteChunksByFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete symbols: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) SearchSymbols(ctx context.Context, name string, limit int) ([]*SymbolHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, file_path, start_line, end_line, container FROM symbols
		WHERE name LIKE ? ORDER BY name LIMIT ?`, "%"+name+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search symbols: %w", err)
	}
	defer rows.Close()

	var out []*SymbolHit
	for rows.Next() {
		h := &SymbolHit{}
		var kind string
		var container sql.NullString
		if err := rows.Scan(&h.Name, &kind, &h.FilePath, &h.StartLine, &h.EndLine, &container); err != nil {
			return nil, fmt.Errorf("failed to scan symbol hit: %w", err)
		}
		h.Type = chunk.SymbolType(kind)
		h.Container = container.String
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", fmt.Errorf("store is closed")
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
