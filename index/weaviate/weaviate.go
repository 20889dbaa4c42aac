// Package weaviate stores instruction vectors in a remote Weaviate class.
//
// Vectors are computed locally and written with the object ("vectorizer":
// "none"); nearest-neighbor queries use nearVector with limit 1 and read the
// distance from _additional.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/index"
)

// Compile-time check.
var _ index.VectorIndex = (*Index)(nil)

const seqProperty = "seq"

// Options configures the Weaviate index.
type Options struct {
	Host   string
	Scheme string

	// Class is the Weaviate class that holds the vectors.
	Class string

	// Metric must match the distance used locally for thresholds.
	Metric distance.Metric

	// Recreate drops and recreates the class on open. Ids restart at 0 for
	// every run, so stale objects would alias new ones.
	Recreate bool
}

var DefaultOptions = Options{
	Host:     "localhost:8080",
	Scheme:   "http",
	Class:    "FissionInstruction",
	Metric:   distance.MetricL2,
	Recreate: true,
}

// Index implements index.VectorIndex on Weaviate.
type Index struct {
	client *weaviate.Client
	opts   Options
	count  atomic.Int64
}

// New connects to Weaviate and prepares the class.
func New(ctx context.Context, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Class == "" {
		return nil, errors.New("weaviate: class is required")
	}

	metric, err := metricName(opts.Metric)
	if err != nil {
		return nil, err
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   opts.Host,
		Scheme: opts.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("weaviate: create client: %w", err)
	}

	idx := &Index{client: client, opts: opts}

	if err := idx.ensureClass(ctx, metric); err != nil {
		return nil, err
	}

	return idx, nil
}

func (idx *Index) ensureClass(ctx context.Context, metric string) error {
	_, err := idx.client.Schema().ClassGetter().WithClassName(idx.opts.Class).Do(ctx)
	exists := err == nil

	if exists && idx.opts.Recreate {
		if err := idx.client.Schema().ClassDeleter().WithClassName(idx.opts.Class).Do(ctx); err != nil {
			return fmt.Errorf("weaviate: delete class %s: %w", idx.opts.Class, err)
		}
		exists = false
	}

	if exists {
		return nil
	}

	class := &models.Class{
		Class:      idx.opts.Class,
		Vectorizer: "none",
		VectorIndexConfig: map[string]any{
			"distance": metric,
		},
		Properties: []*models.Property{
			{Name: seqProperty, DataType: []string{"int"}},
		},
	}

	if err := idx.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("weaviate: create class %s: %w", idx.opts.Class, err)
	}

	return nil
}

// Insert writes vec as an object whose id is derived from the class and id.
func (idx *Index) Insert(ctx context.Context, id uint64, vec []float32) error {
	if err := index.CheckDimension(0, vec); err != nil {
		return err
	}

	_, err := idx.client.Data().Creator().
		WithClassName(idx.opts.Class).
		WithID(ObjectID(idx.opts.Class, id)).
		WithProperties(map[string]any{seqProperty: id}).
		WithVector(vec).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: insert %d: %w", id, err)
	}

	idx.count.Add(1)

	return nil
}

// Nearest runs a nearVector query with limit 1.
func (idx *Index) Nearest(ctx context.Context, q []float32) (index.SearchResult, bool, error) {
	if idx.count.Load() == 0 {
		return index.SearchResult{}, false, nil
	}

	nearVector := idx.client.GraphQL().NearVectorArgBuilder().WithVector(q)

	resp, err := idx.client.GraphQL().Get().
		WithClassName(idx.opts.Class).
		WithFields(
			graphql.Field{Name: seqProperty},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearVector(nearVector).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return index.SearchResult{}, false, fmt.Errorf("weaviate: query: %w", err)
	}

	if len(resp.Errors) > 0 {
		return index.SearchResult{}, false, fmt.Errorf("weaviate: query: %s", resp.Errors[0].Message)
	}

	return ParseNearest(resp.Data, idx.opts.Class)
}

// Len returns the number of objects written by this index.
func (idx *Index) Len() int { return int(idx.count.Load()) }

// Close is a no-op; the HTTP client holds no resources.
func (idx *Index) Close() error { return nil }

// ObjectID derives a stable UUID for id within class.
func ObjectID(class string, id uint64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(class+"/"+strconv.FormatUint(id, 10))).String()
}

// ParseNearest extracts the first hit from a GraphQL Get response.
func ParseNearest(data map[string]models.JSONObject, class string) (index.SearchResult, bool, error) {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return index.SearchResult{}, false, errors.New("weaviate: response has no Get")
	}

	hits, ok := get[class].([]any)
	if !ok {
		return index.SearchResult{}, false, fmt.Errorf("weaviate: response has no class %s", class)
	}
	if len(hits) == 0 {
		return index.SearchResult{}, false, nil
	}

	hit, ok := hits[0].(map[string]any)
	if !ok {
		return index.SearchResult{}, false, errors.New("weaviate: malformed hit")
	}

	seq, ok := hit[seqProperty].(float64)
	if !ok {
		return index.SearchResult{}, false, errors.New("weaviate: hit has no seq")
	}

	additional, ok := hit["_additional"].(map[string]any)
	if !ok {
		return index.SearchResult{}, false, errors.New("weaviate: hit has no _additional")
	}

	dist, ok := additional["distance"].(float64)
	if !ok {
		return index.SearchResult{}, false, errors.New("weaviate: hit has no distance")
	}

	return index.SearchResult{ID: uint64(seq), Distance: float32(dist)}, true, nil
}

func metricName(m distance.Metric) (string, error) {
	switch m {
	case distance.MetricL2:
		return "l2-squared", nil
	case distance.MetricCosine:
		return "cosine", nil
	case distance.MetricDot:
		return "dot", nil
	default:
		return "", fmt.Errorf("weaviate: unsupported metric %v", m)
	}
}
