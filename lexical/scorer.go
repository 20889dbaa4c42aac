package lexical

import (
	"context"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
)

// Options configures a Scorer.
type Options struct {
	// Workers bounds the number of goroutines scoring one candidate.
	Workers int

	// Prefilter skips references sharing no token with the candidate.
	Prefilter bool

	// MinChunk is the smallest number of references handed to a worker.
	MinChunk int
}

// DefaultOptions contains the default scorer configuration.
var DefaultOptions = Options{
	Workers:   4,
	Prefilter: true,
	MinChunk:  32,
}

// Match is the best lexical match of a candidate.
type Match struct {
	// Index of the reference in insertion order, -1 when there is none.
	Index int
	Score float64
}

// Scorer holds the tokenized reference set.
type Scorer struct {
	mu       sync.RWMutex
	opts     Options
	refs     [][]string
	postings map[string]*roaring.Bitmap
}

// New creates an empty Scorer.
func New(optFns ...func(o *Options)) *Scorer {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MinChunk < 1 {
		opts.MinChunk = 1
	}

	return &Scorer{
		opts:     opts,
		postings: make(map[string]*roaring.Bitmap),
	}
}

// Add appends text to the reference set and returns its index.
func (s *Scorer) Add(text string) int {
	tokens := Tokenize(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := len(s.refs)
	s.refs = append(s.refs, tokens)

	for _, tok := range tokens {
		bm, ok := s.postings[tok]
		if !ok {
			bm = roaring.New()
			s.postings[tok] = bm
		}
		bm.Add(uint32(idx))
	}

	return idx
}

// Len returns the number of references.
func (s *Scorer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

// MaxOverlap returns the highest F-measure between text and any reference.
// Ties resolve to the lowest index.
func (s *Scorer) MaxOverlap(ctx context.Context, text string) (Match, error) {
	scores, err := s.score(ctx, Tokenize(text))
	if err != nil {
		return Match{}, err
	}

	best := Match{Index: -1}
	for _, sc := range scores {
		if best.Index < 0 || sc.Score > best.Score || (sc.Score == best.Score && sc.Index < best.Index) {
			best = sc
		}
	}

	if best.Index < 0 && s.Len() > 0 {
		// every reference was filtered out
		best = Match{Index: 0, Score: 0}
	}

	return best, nil
}

// TopK returns the k references with the highest overlap, best first.
func (s *Scorer) TopK(ctx context.Context, text string, k int) ([]Match, error) {
	scores, err := s.score(ctx, Tokenize(text))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Index < scores[j].Index
	})

	if k < len(scores) {
		scores = scores[:k]
	}

	return scores, nil
}

// score computes the F-measure against every reference that passes the
// prefilter, split into contiguous chunks over the worker pool.
func (s *Scorer) score(ctx context.Context, tokens []string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.refs) == 0 || len(tokens) == 0 {
		return nil, nil
	}

	candidates := s.candidates(tokens)
	if len(candidates) == 0 {
		return nil, nil
	}

	out := make([]Match, len(candidates))

	chunk := max(s.opts.MinChunk, (len(candidates)+s.opts.Workers-1)/s.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for lo := 0; lo < len(candidates); lo += chunk {
		hi := min(lo+chunk, len(candidates))

		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				ref := candidates[i]
				out[i] = Match{Index: ref, Score: FMeasure(tokens, s.refs[ref])}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Scorer) candidates(tokens []string) []int {
	if !s.opts.Prefilter {
		all := make([]int, len(s.refs))
		for i := range all {
			all[i] = i
		}
		return all
	}

	union := roaring.New()
	for _, tok := range tokens {
		if bm, ok := s.postings[tok]; ok {
			union.Or(bm)
		}
	}

	ids := make([]int, 0, union.GetCardinality())
	it := union.Iterator()
	for it.HasNext() {
		ids = append(ids, int(it.Next()))
	}

	return ids
}
