package embed

import (
	"context"
	"hash/fnv"

	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/lexical"
)

// Hashing is an offline embedder that projects unigrams and bigrams into a
// fixed number of signed buckets. Vectors are L2-normalized. Texts sharing
// most of their words land close to each other, which is enough to catch
// near-duplicate instructions without a remote model.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing embedder with dim buckets (default 256).
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Dimension() int    { return h.dim }
func (h *Hashing) ModelName() string { return "hashing" }

func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}

	return out, nil
}

func (h *Hashing) embed(text string) []float32 {
	vec := make([]float32, h.dim)
	tokens := lexical.Tokenize(text)

	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	distance.NormalizeL2InPlace(vec)

	return vec
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()

	if sum>>63 == 1 {
		weight = -weight
	}
	vec[sum%uint64(h.dim)] += weight
}
