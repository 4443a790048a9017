package retriever

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	contractx "github.com/loanbotlabs/loanbot-gateway/gateway/contract"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// VectorStore is the knowledge-base index contract used by the pipeline.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, limit int) ([]contractx.DocumentHit, error)
	Upsert(ctx context.Context, chunks []Chunk) (int, error)
}

type QdrantConfig struct {
	Host       string `envconfig:"HOST" split_words:"true" default:"localhost"`
	Port       int    `envconfig:"PORT" split_words:"true" default:"6334"`
	Collection string `envconfig:"COLLECTION" split_words:"true" default:"loanbot_kb"`
}

// QdrantStore persists and searches hash-embedded document chunks.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

var _ VectorStore = (*QdrantStore)(nil)

func NewQdrantStore(client *qdrant.Client, collection string) *QdrantStore {
	return &QdrantStore{client: client, collection: collection}
}

// InitCollection creates the collection when absent. Safe to call on every
// startup.
func (s *QdrantStore) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.NotFound {
		return fmt.Errorf("inspect collection %s: %w", s.collection, err)
	}

	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]contractx.DocumentHit, error) {
	if limit <= 0 {
		limit = 5
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", s.collection, err)
	}

	hits := make([]contractx.DocumentHit, 0, len(points))
	for _, point := range points {
		payload := point.GetPayload()
		metadata := map[string]any{}
		for _, key := range []string{"doc_id", "doc_title", "doc_source", "doc_format"} {
			if value, ok := payload[key]; ok {
				metadata[key] = value.GetStringValue()
			}
		}
		hits = append(hits, contractx.DocumentHit{
			ID:       payload["chunk_id"].GetStringValue(),
			Text:     payload["text"].GetStringValue(),
			Metadata: metadata,
			Score:    float64(point.GetScore()),
		})
	}
	return hits, nil
}

func (s *QdrantStore) Upsert(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		payload := map[string]any{
			"chunk_id": chunk.ChunkID,
			"text":     chunk.Text,
		}
		for k, v := range chunk.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(HashVector(chunk.Text)...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	}); err != nil {
		return 0, fmt.Errorf("upsert %d chunks: %w", len(points), err)
	}

	log.Debug().Int("chunks", len(points)).Str("collection", s.collection).Msg("upserted embeddings")
	return len(points), nil
}
