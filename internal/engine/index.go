package engine

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rune-engine/rune/internal/chunk"
	"github.com/rune-engine/rune/internal/rerrors"
	"github.com/rune-engine/rune/internal/scanner"
	"github.com/rune-engine/rune/internal/store"
)

// indexPathFor builds the key every store (MetadataStore, TextIndex,
// VectorStoreClient) indexes a file under: repository-prefixed so paths stay
// globally unique across every configured workspace root, since
// MetadataStore.files is keyed on path alone.
func indexPathFor(repository, relPath string) string {
	return path.Join(repository, filepath.ToSlash(relPath))
}

// indexRoot performs a full scan of one workspace root, skipping files whose
// content hash is unchanged from the last index (invariant 4) unless force
// is set, and returns a summary suitable for both Start's initial index and
// the reindex operation.
func (e *Engine) indexRoot(ctx context.Context, ws workspace, force bool) (*ReindexResult, error) {
	opts := &scanner.ScanOptions{
		RootDir:          ws.root,
		IncludePatterns:  e.cfg.Paths.Include,
		ExcludePatterns:  e.cfg.Paths.Exclude,
		RespectGitignore: true,
		MaxFileSize:      e.cfg.MaxFileSize,
		Submodules:       &e.cfg.Submodules,
	}

	results, err := e.sc.Scan(ctx, opts)
	if err != nil {
		return nil, rerrors.IOError("scan "+ws.root, err)
	}

	res := &ReindexResult{}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	workers := e.cfg.IndexingThreads
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for r := range results {
		r := r
		if r.Error != nil {
			mu.Lock()
			res.Errors = append(res.Errors, r.Error.Error())
			mu.Unlock()
			continue
		}
		mu.Lock()
		res.FilesScanned++
		mu.Unlock()

		g.Go(func() error {
			indexed, skipped, err := e.indexFile(gctx, ws, r.File, force)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, err.Error())
				return nil
			}
			if skipped {
				res.FilesSkipped++
			} else if indexed {
				res.FilesIndexed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return res, rerrors.IndexWriteError("index "+ws.root, err)
	}

	if err := e.metadata.RefreshWorkspaceStats(ctx, e.workspaceID); err != nil {
		e.noteDegraded("refresh workspace stats: " + err.Error())
	}

	return res, nil
}

// indexFile reads, hashes, chunks, and persists a single discovered file.
// It reports skipped=true when the file's content hash is unchanged from the
// last index, or when its content type is neither code nor markdown.
func (e *Engine) indexFile(ctx context.Context, ws workspace, fi *scanner.FileInfo, force bool) (indexed bool, skipped bool, err error) {
	if fi.ContentType != scanner.ContentTypeCode && fi.ContentType != scanner.ContentTypeMarkdown {
		return false, true, nil
	}

	content, err := os.ReadFile(fi.AbsPath)
	if err != nil {
		return false, false, rerrors.IOError("read "+fi.AbsPath, err)
	}

	indexPath := indexPathFor(ws.repository, fi.Path)
	hash := contentHash(content)

	if !force {
		if existing, getErr := e.metadata.GetFile(ctx, indexPath); getErr == nil && existing != nil && existing.ContentHash == hash {
			return false, true, nil
		}
	}

	input := &chunk.FileInput{Path: fi.Path, Content: content, Language: fi.Language}

	var chunks []*chunk.Chunk
	switch fi.ContentType {
	case scanner.ContentTypeMarkdown:
		chunks, err = e.mdChunker.Chunk(ctx, input)
	default:
		chunks, err = e.codeChunker.Chunk(ctx, input)
	}
	if err != nil {
		return false, false, rerrors.ParseError("chunk "+fi.Path, err)
	}
	if len(chunks) == 0 {
		return false, true, nil
	}

	// Clear any chunks/vectors from a previous version of this file before
	// writing the new set; harmless no-op on first index.
	_ = e.metadata.DeleteChunksByFile(ctx, indexPath)
	_ = e.vectorStore.DeleteByPath(ctx, ws.root, indexPath)

	meta := &store.FileMeta{
		Path:        indexPath,
		WorkspaceID: e.workspaceID,
		Repository:  ws.repository,
		SizeBytes:   fi.Size,
		ModTime:     fi.ModTime,
		ContentHash: hash,
		Language:    fi.Language,
		IndexedAt:   fi.ModTime,
		Generated:   fi.IsGenerated,
	}
	if err := e.metadata.SaveFile(ctx, meta); err != nil {
		return false, false, rerrors.IndexWriteError("save file "+indexPath, err)
	}

	persisted := make([]*store.PersistedChunk, len(chunks))
	var symbolNames []string
	var textContent string
	for i, c := range chunks {
		persisted[i] = &store.PersistedChunk{
			FilePath:  indexPath,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Content:   c.Content,
			Language:  c.Language,
			Symbols:   c.Symbols,
		}
		textContent += c.Content + "\n"
		for _, sym := range c.Symbols {
			symbolNames = append(symbolNames, sym.Name)
		}
	}
	if err := e.metadata.SaveChunks(ctx, indexPath, persisted); err != nil {
		return false, false, rerrors.IndexWriteError("save chunks "+indexPath, err)
	}

	doc := &store.TextDocument{
		Path:       indexPath,
		Repository: ws.repository,
		Language:   fi.Language,
		Symbols:    symbolNames,
		Content:    textContent,
	}
	upsert := func() error { return e.textIndex.Upsert(ctx, doc) }
	if err := rerrors.RetryWithBackoff(ctx, rerrors.DefaultBackoffConfig(), upsert); err != nil {
		e.noteDegraded("text index write " + indexPath + ": " + err.Error())
		return false, false, rerrors.IndexWriteError("upsert text index "+indexPath, err)
	}

	if e.cfg.EnableSemantic && e.embedder.Available(ctx) {
		if err := e.embedChunks(ctx, ws, indexPath, chunks); err != nil {
			e.noteDegraded("embed " + indexPath + ": " + err.Error())
		}
	}

	return true, false, nil
}

// embedChunks generates and upserts vector embeddings for a file's chunks.
// Failures here degrade semantic search for this file only; the file
// remains fully searchable via literal/regex/symbol/fuzzy modes.
func (e *Engine) embedChunks(ctx context.Context, ws workspace, indexPath string, chunks []*chunk.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	points := make([]*store.VectorPoint, 0, len(chunks))
	for i, c := range chunks {
		if i >= len(vectors) || vectors[i] == nil {
			continue
		}
		preview := c.Content
		if len(preview) > 200 {
			preview = preview[:200]
		}
		points = append(points, &store.VectorPoint{
			FilePath:   indexPath,
			Repository: ws.repository,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			Language:   c.Language,
			Preview:    preview,
			Vector:     vectors[i],
		})
	}
	if len(points) == 0 {
		return nil
	}
	return e.vectorStore.Upsert(ctx, ws.root, points)
}

// indexSingle handles one watcher-reported create/modify event: it builds a
// FileInfo the same way a scan would (stat + language/content-type
// detection) and runs it through the regular indexFile pipeline, so a single
// file change gets exactly the same treatment as a full scan.
func (e *Engine) indexSingle(ctx context.Context, ws workspace, relPath string) {
	absPath := filepath.Join(ws.root, relPath)
	info, err := os.Lstat(absPath)
	if err != nil {
		// Already gone by the time the debounced event fired; treat as delete.
		_ = e.removeFile(ctx, ws, relPath)
		return
	}
	if info.Mode()&os.ModeSymlink != 0 || info.IsDir() {
		return
	}
	if e.cfg.MaxFileSize > 0 && info.Size() > e.cfg.MaxFileSize {
		return
	}

	language := scanner.DetectLanguage(relPath)
	fi := &scanner.FileInfo{
		Path:        relPath,
		AbsPath:     absPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: scanner.DetectContentType(language),
		Language:    language,
	}

	if _, _, err := e.indexFile(ctx, ws, fi, false); err != nil {
		e.noteDegraded("index " + indexPathFor(ws.repository, relPath) + ": " + err.Error())
	}
}

// removeFile deletes a file's metadata, chunks, text index entry, and vector
// points. Used for watcher-reported deletes and superseded by a fresh
// indexFile call on modify.
func (e *Engine) removeFile(ctx context.Context, ws workspace, relPath string) error {
	indexPath := indexPathFor(ws.repository, relPath)
	var errs []string
	if err := e.metadata.DeleteFile(ctx, indexPath); err != nil {
		errs = append(errs, err.Error())
	}
	if err := e.textIndex.Delete(ctx, indexPath); err != nil {
		errs = append(errs, err.Error())
	}
	if err := e.vectorStore.DeleteByPath(ctx, ws.root, indexPath); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return rerrors.IndexWriteError("remove "+indexPath+": "+errs[0], nil)
	}
	return nil
}
