// Package semantic is the sole owner of all Qdrant operations. Each
// stored point carries the original text, a creation timestamp, and
// free-form metadata in its payload.
package semantic

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
)

// payloadTextKey is the payload field holding the original text.
const payloadTextKey = "text"

// VectorStore wraps a Qdrant collection over gRPC.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, storeErr("dial "+addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients creates a VectorStore from existing gRPC clients. Used in tests.
func NewWithClients(points pb.PointsClient, collections pb.CollectionsClient, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// Collection returns the collection name.
func (v *VectorStore) Collection() string { return v.collection }

// EnsureCollection creates the collection with cosine distance if it does
// not exist. Existing collections are left untouched, so stored data
// survives restarts.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return storeErr("list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return storeErr("create collection "+v.collection, err)
	}
	return nil
}

// Add upserts one embedding with its text and metadata, returning the
// generated point id. The upsert is synchronous (waited).
func (v *VectorStore) Add(ctx context.Context, embedding []float32, text string, metadata map[string]any) (string, error) {
	ids, err := v.AddBatch(ctx, [][]float32{embedding}, []string{text}, []map[string]any{metadata})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddBatch upserts multiple embeddings in one call.
func (v *VectorStore) AddBatch(ctx context.Context, embeddings [][]float32, texts []string, metadatas []map[string]any) ([]string, error) {
	if len(embeddings) != len(texts) {
		return nil, storeErr("add batch", fmt.Errorf("%d embeddings for %d texts", len(embeddings), len(texts)))
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	ids := make([]string, len(embeddings))
	points := make([]*pb.PointStruct, len(embeddings))
	for i := range embeddings {
		ids[i] = uuid.NewString()

		payload := map[string]*pb.Value{
			payloadTextKey: anyToValue(texts[i]),
			"created_at":   anyToValue(createdAt),
		}
		if i < len(metadatas) {
			for k, val := range metadatas[i] {
				payload[k] = anyToValue(val)
			}
		}

		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: ids[i]}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: embeddings[i]}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return nil, storeErr(fmt.Sprintf("upsert %d points", len(points)), err)
	}
	return ids, nil
}

// Search performs k-NN similarity search. Results come back in
// descending score order, truncated to topK and filtered server-side to
// score >= scoreThreshold.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, topK int, scoreThreshold float32) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = &scoreThreshold
	}

	resp, err := v.points.Search(ctx, req)
	if err != nil {
		return nil, storeErr("search", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, hit := range resp.GetResult() {
		sr := SearchResult{
			ID:    hit.GetId().GetUuid(),
			Score: hit.GetScore(),
			Meta:  make(map[string]any),
		}
		for k, val := range hit.GetPayload() {
			if k == payloadTextKey {
				sr.Text = val.GetStringValue()
				continue
			}
			sr.Meta[k] = valueToAny(val)
		}
		results[i] = sr
	}
	return results, nil
}

// GetAll returns an unordered snapshot of stored records via scroll.
// Inspection only; not meant for retrieval.
func (v *VectorStore) GetAll(ctx context.Context, limit int) ([]StoredRecord, error) {
	lim := uint32(limit)
	resp, err := v.points.Scroll(ctx, &pb.ScrollPoints{
		CollectionName: v.collection,
		Limit:          &lim,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, storeErr("scroll", err)
	}

	records := make([]StoredRecord, len(resp.GetResult()))
	for i, p := range resp.GetResult() {
		rec := StoredRecord{
			ID:   p.GetId().GetUuid(),
			Meta: make(map[string]any),
		}
		for k, val := range p.GetPayload() {
			if k == payloadTextKey {
				rec.Text = val.GetStringValue()
				continue
			}
			rec.Meta[k] = valueToAny(val)
		}
		records[i] = rec
	}
	return records, nil
}

// Delete removes a point by id. Returns false without error when the id
// does not exist.
func (v *VectorStore) Delete(ctx context.Context, id string) (bool, error) {
	pointID := &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}

	got, err := v.points.Get(ctx, &pb.GetPoints{
		CollectionName: v.collection,
		Ids:            []*pb.PointId{pointID},
	})
	if err != nil {
		return false, storeErr("get "+id, err)
	}
	if len(got.GetResult()) == 0 {
		return false, nil
	}

	wait := true
	_, err = v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{pointID}},
			},
		},
	})
	if err != nil {
		return false, storeErr("delete "+id, err)
	}
	return true, nil
}

// Count returns the number of stored points, or zero when the store is
// unreachable. Degraded read: callers never see the transport error.
func (v *VectorStore) Count(ctx context.Context) int {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0
	}
	return int(resp.GetResult().GetCount())
}

// HealthCheck probes the collection. Never returns an error; failures
// show up as an unhealthy status.
func (v *VectorStore) HealthCheck(ctx context.Context) domain.HealthStatus {
	info, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: v.collection})
	if err != nil {
		return domain.HealthStatus{Status: "unhealthy", Error: err.Error()}
	}
	return domain.HealthStatus{
		Status:      "healthy",
		Collection:  v.collection,
		PointsCount: int(info.GetResult().GetPointsCount()),
	}
}

func storeErr(op string, err error) error {
	return domain.NewProviderError(domain.KindVectorStore, op, err)
}

func anyToValue(val any) *pb.Value {
	switch tv := val.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func valueToAny(val *pb.Value) any {
	switch val.GetKind().(type) {
	case *pb.Value_StringValue:
		return val.GetStringValue()
	case *pb.Value_IntegerValue:
		return val.GetIntegerValue()
	case *pb.Value_DoubleValue:
		return val.GetDoubleValue()
	case *pb.Value_BoolValue:
		return val.GetBoolValue()
	default:
		return val.String()
	}
}
