package fission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/fission/index"
	"github.com/hupe1980/fission/lexical"
	"github.com/hupe1980/fission/model"
)

// ErrNoSemanticIndex is returned when a semantic variant has no index.
var ErrNoSemanticIndex = errors.New("semantic variant requires a similarity index")

// Variant selects how candidates are deduplicated.
type Variant uint8

const (
	// VariantLexical admits when the maximum ROUGE-L F-measure against all
	// references is at most the threshold.
	VariantLexical Variant = iota
	// VariantSemantic admits when the nearest-neighbor distance exceeds the
	// threshold.
	VariantSemantic
	// VariantBoth admits only when both checks pass.
	VariantBoth
)

func (v Variant) String() string {
	switch v {
	case VariantLexical:
		return "lexical"
	case VariantSemantic:
		return "semantic"
	case VariantBoth:
		return "both"
	default:
		return fmt.Sprintf("Variant(%d)", v)
	}
}

// ParseVariant maps "lexical", "semantic" or "both".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "lexical", "rouge":
		return VariantLexical, nil
	case "semantic", "embedding":
		return VariantSemantic, nil
	case "both":
		return VariantBoth, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", s)
	}
}

func (v Variant) lexical() bool  { return v == VariantLexical || v == VariantBoth }
func (v Variant) semantic() bool { return v == VariantSemantic || v == VariantBoth }

// Decision is the outcome of scoring one candidate.
type Decision struct {
	Record   model.TaskRecord
	Admitted bool

	// SourceID is set for admitted records.
	SourceID string

	// Overlap is the best lexical match (lexical variants only).
	Overlap lexical.Match

	// Neighbor is the nearest semantic entry, valid when HasNeighbor is set.
	Neighbor    index.Neighbor
	HasNeighbor bool
}

// Filter decides candidate admission against everything admitted so far.
// It is not safe for concurrent use; the orchestrator's control goroutine
// owns it.
type Filter struct {
	variant   Variant
	threshold float64
	lexical   *lexical.Scorer
	semantic  *index.Semantic
}

// NewFilter creates a Filter. A nil lexical scorer is replaced by a default
// one; semantic is required by the semantic variants.
func NewFilter(variant Variant, threshold float64, lex *lexical.Scorer, sem *index.Semantic) (*Filter, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside [0,1]", threshold)
	}
	if variant.semantic() && sem == nil {
		return nil, ErrNoSemanticIndex
	}
	if variant.lexical() && lex == nil {
		lex = lexical.New()
	}

	return &Filter{
		variant:   variant,
		threshold: threshold,
		lexical:   lex,
		semantic:  sem,
	}, nil
}

// Variant returns the configured variant.
func (f *Filter) Variant() Variant { return f.variant }

// Prime adds already accepted records as references without scoring them.
// offset is the pool position of records[0] within its partition.
func (f *Filter) Prime(ctx context.Context, records []model.TaskRecord, origin model.Origin, offset int) error {
	if len(records) == 0 {
		return nil
	}

	if f.variant.lexical() {
		for _, r := range records {
			f.lexical.Add(r.Instruction)
		}
	}

	if f.variant.semantic() {
		texts := make([]string, len(records))
		ids := make([]string, len(records))
		for i, r := range records {
			texts[i] = r.Instruction
			ids[i] = model.SourceID(origin, offset+i)
		}
		if _, err := f.semantic.InsertBatch(ctx, texts, ids); err != nil {
			return fmt.Errorf("prime %s: %w", origin, err)
		}
	}

	return nil
}

// Admit scores candidates in order and admits them greedily: an admitted
// candidate becomes a reference for the candidates after it. offset is the
// generated pool size before this batch. A non-negative limit stops after
// that many admissions; the remaining candidates are not scored.
func (f *Filter) Admit(ctx context.Context, candidates []model.TaskRecord, offset, limit int) ([]Decision, error) {
	decisions := make([]Decision, 0, len(candidates))
	admitted := 0

	for _, c := range candidates {
		if limit >= 0 && admitted >= limit {
			break
		}

		d, err := f.score(ctx, c)
		if err != nil {
			return decisions, err
		}

		if d.Admitted {
			d.SourceID = model.SourceID(model.OriginGenerated, offset+admitted)
			if err := f.add(ctx, c, d.SourceID); err != nil {
				return decisions, err
			}
			admitted++
		}

		decisions = append(decisions, d)
	}

	return decisions, nil
}

func (f *Filter) score(ctx context.Context, c model.TaskRecord) (Decision, error) {
	d := Decision{Record: c, Admitted: true, Overlap: lexical.Match{Index: -1}}

	if f.variant.lexical() {
		m, err := f.lexical.MaxOverlap(ctx, c.Instruction)
		if err != nil {
			return d, fmt.Errorf("lexical score: %w", err)
		}
		d.Overlap = m
		if m.Index >= 0 && m.Score > f.threshold {
			d.Admitted = false
			return d, nil
		}
	}

	if f.variant.semantic() {
		n, ok, err := f.semantic.QueryNearest(ctx, c.Instruction)
		if err != nil {
			return d, fmt.Errorf("semantic query: %w", err)
		}
		d.Neighbor, d.HasNeighbor = n, ok
		if ok && float64(n.Distance) <= f.threshold {
			d.Admitted = false
		}
	}

	return d, nil
}

func (f *Filter) add(ctx context.Context, r model.TaskRecord, sourceID string) error {
	if f.variant.semantic() {
		if _, err := f.semantic.Insert(ctx, r.Instruction, sourceID); err != nil {
			return fmt.Errorf("index %s: %w", sourceID, err)
		}
	}
	if f.variant.lexical() {
		f.lexical.Add(r.Instruction)
	}
	return nil
}
