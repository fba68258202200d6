package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"lukechampine.com/blake3"
)

// contentHash is the Blake3 digest spec.md's FileMeta.content_hash names.
// Unchanged content on a later scan produces the same hash, letting the
// indexing pipeline skip re-chunking (invariant 4).
func contentHash(content []byte) [32]byte {
	return blake3.Sum256(content)
}

// deriveWorkspaceID assigns a stable identity to a set of workspace roots:
// the first 16 hex characters of sha256 of its input, which callers build
// by joining every configured root's absolute path (sorted, NUL-separated)
// so one Engine's several roots all share a single ID. Used as the key
// MetadataStore.ListFiles and the query cache partition rows under, distinct
// from the Qdrant collection name (which hashes one root's path in full,
// see store.collectionName).
func deriveWorkspaceID(joinedRoots string) string {
	sum := sha256.Sum256([]byte(joinedRoots))
	return hex.EncodeToString(sum[:])[:16]
}

// deriveRepository labels a workspace root for the `repository` field every
// Result and FileMeta row carries. Multiple configured roots with the same
// base name would collide; that's accepted here as spec.md defines
// repository as "a workspace label derived from the root it was discovered
// under" without requiring global uniqueness beyond what the operator's
// workspace_roots list already provides.
func deriveRepository(root string) string {
	return filepath.Base(filepath.Clean(root))
}
