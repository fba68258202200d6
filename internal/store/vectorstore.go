package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const vectorDimension = 384

// QdrantVectorStore is the gRPC client for the external vector database.
// One collection per workspace root, named per collectionName below.
type QdrantVectorStore struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient

	mu           sync.Mutex
	ensured      map[string]bool
	quantization map[string]QuantizationMode
}

var _ VectorStoreClient = (*QdrantVectorStore)(nil)

// NewQdrantVectorStore dials the Qdrant gRPC endpoint (host:port, e.g.
// "localhost:6334"). The connection is lazy: dialing does not block on
// reachability, matching the "reconnect retried in the background"
// degradation policy for VectorStoreUnavailable.
func NewQdrantVectorStore(addr string) (*QdrantVectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial qdrant at %s: %w", addr, err)
	}
	return &QdrantVectorStore{
		conn:         conn,
		collections:  qdrant.NewCollectionsClient(conn),
		points:       qdrant.NewPointsClient(conn),
		ensured:      make(map[string]bool),
		quantization: make(map[string]QuantizationMode),
	}, nil
}

// collectionName derives the Qdrant collection name from the workspace
// root: rune_<hex64(sha256(workspace_root))>.
func collectionName(workspaceRoot string) string {
	sum := sha256.Sum256([]byte(workspaceRoot))
	return "rune_" + hex.EncodeToString(sum[:])
}

// pointID returns a deterministic point ID for a chunk span.
func pointID(path string, startLine, endLine int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(fmt.Sprintf("%d", startLine)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(fmt.Sprintf("%d", endLine)))
	return h.Sum64()
}

func (q *QdrantVectorStore) EnsureCollection(ctx context.Context, workspaceRoot string, quantization QuantizationMode) error {
	name := collectionName(workspaceRoot)

	q.mu.Lock()
	q.quantization[name] = quantization
	alreadyEnsured := q.ensured[name]
	q.mu.Unlock()
	if alreadyEnsured {
		return nil
	}

	_, err := q.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: name})
	if err == nil {
		q.mu.Lock()
		q.ensured[name] = true
		q.mu.Unlock()
		return nil
	}

	create := &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     vectorDimension,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	}
	if qc := quantizationConfig(quantization); qc != nil {
		create.QuantizationConfig = qc
	}

	if _, err := q.collections.Create(ctx, create); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	q.mu.Lock()
	q.ensured[name] = true
	q.mu.Unlock()
	return nil
}

// asymmetricOversampling is the multiplier Qdrant applies when rescoring: it
// retrieves oversamplingFactor*limit candidates by binary distance, then
// rescores that larger candidate set against the full-precision vectors
// before truncating to the requested limit.
const asymmetricOversampling = 3.0

// quantizationConfig maps the configured quantization mode to Qdrant's wire
// types. asymmetric stores vectors as binary (cheapest) and asks the server
// to rescore the oversampled candidates against full-precision vectors (see
// searchParams), since binary quantization alone is approximate.
func quantizationConfig(mode QuantizationMode) *qdrant.QuantizationConfig {
	switch mode {
	case QuantizationScalar:
		return &qdrant.QuantizationConfig{
			Quantization: &qdrant.QuantizationConfig_Scalar{
				Scalar: &qdrant.ScalarQuantization{
					Type: qdrant.QuantizationType_Int8,
				},
			},
		}
	case QuantizationBinary, QuantizationAsymmetric:
		return &qdrant.QuantizationConfig{
			Quantization: &qdrant.QuantizationConfig_Binary{
				Binary: &qdrant.BinaryQuantization{},
			},
		}
	default:
		return nil
	}
}

func (q *QdrantVectorStore) Upsert(ctx context.Context, workspaceRoot string, vectorPoints []*VectorPoint) error {
	if len(vectorPoints) == 0 {
		return nil
	}
	name := collectionName(workspaceRoot)

	points := make([]*qdrant.PointStruct, 0, len(vectorPoints))
	for _, vp := range vectorPoints {
		id := pointID(vp.FilePath, vp.StartLine, vp.EndLine)
		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Num{Num: id},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vp.Vector},
				},
			},
			Payload: payloadMap(vp),
		})
	}

	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points into %s: %w", name, err)
	}
	return nil
}

func payloadMap(vp *VectorPoint) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"path":       stringValue(vp.FilePath),
		"repository": stringValue(vp.Repository),
		"start_line": intValue(int64(vp.StartLine)),
		"end_line":   intValue(int64(vp.EndLine)),
		"language":   stringValue(vp.Language),
		"preview":    stringValue(vp.Preview),
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(i int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: i}}
}

// searchParams asks the server to rescore binary-quantized candidates
// against the stored full-precision vectors for collections created with
// asymmetric quantization. Plain binary mode skips rescoring, trading
// recall for the cheaper search; every other mode leaves Params unset.
func (q *QdrantVectorStore) searchParams(collection string) *qdrant.SearchParams {
	q.mu.Lock()
	mode := q.quantization[collection]
	q.mu.Unlock()

	if mode != QuantizationAsymmetric {
		return nil
	}

	oversampling := asymmetricOversampling
	rescore := true
	return &qdrant.SearchParams{
		Quantization: &qdrant.QuantizationSearchParams{
			Rescore:      &rescore,
			Oversampling: &oversampling,
		},
	}
}

// Search queries the workspace collection. Path-prefix filtering is applied
// client-side: Qdrant's payload index supports exact and full-text match
// but not prefix match, so the repository equality filter is pushed down
// and the oversampled results are narrowed by path prefix afterward.
func (q *QdrantVectorStore) Search(ctx context.Context, workspaceRoot string, vector []float32, k int, filter VectorFilter) ([]*VectorHit, error) {
	name := collectionName(workspaceRoot)

	req := &qdrant.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		Params:         q.searchParams(name),
	}
	if filter.Repository != "" {
		req.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key:   "repository",
							Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: filter.Repository}},
						},
					},
				},
			},
		}
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed against %s: %w", name, err)
	}

	hits := make([]*VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		path := payloadString(r.Payload, "path")
		if filter.PathPrefix != "" && !strings.HasPrefix(path, filter.PathPrefix) {
			continue
		}
		hits = append(hits, &VectorHit{
			FilePath:   path,
			Repository: payloadString(r.Payload, "repository"),
			StartLine:  int(payloadInt(r.Payload, "start_line")),
			EndLine:    int(payloadInt(r.Payload, "end_line")),
			Language:   payloadString(r.Payload, "language"),
			Preview:    payloadString(r.Payload, "preview"),
			Score:      normalizeCosine(r.Score),
		})
	}
	return hits, nil
}

// normalizeCosine maps Qdrant's raw cosine similarity ([-1,1]) to [0,1] and
// clamps the rare out-of-range float produced by quantized/rescored search.
func normalizeCosine(score float32) float64 {
	v := (float64(score) + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func payloadInt(payload map[string]*qdrant.Value, key string) int64 {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	return v.GetIntegerValue()
}

func (q *QdrantVectorStore) DeleteByPath(ctx context.Context, workspaceRoot, path string) error {
	name := collectionName(workspaceRoot)
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   "path",
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: path}},
					},
				},
			},
		},
	}

	_, err := q.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for %s in %s: %w", path, name, err)
	}
	return nil
}

func (q *QdrantVectorStore) Close() error {
	return q.conn.Close()
}
