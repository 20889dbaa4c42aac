package fission

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/fission/model"
)

// ValidatorOptions configures the candidate post-processing rules.
type ValidatorOptions struct {
	// MinInstructionWords is the smallest accepted instruction length.
	MinInstructionWords int

	// MaxInstructionWords is the largest accepted instruction length.
	MaxInstructionWords int

	// MaxOutputWords is the largest accepted output length.
	MaxOutputWords int

	// Denylist holds words and phrases (matched as whole words, ignoring
	// case) that mark tasks a text-only model cannot perform.
	Denylist []string

	// DeniedPrefixes holds instruction prefixes that are dropped.
	DeniedPrefixes []string
}

// DefaultValidatorOptions contains the default post-processing rules.
var DefaultValidatorOptions = ValidatorOptions{
	MinInstructionWords: 4,
	MaxInstructionWords: 150,
	MaxOutputWords:      150,
	Denylist: []string{
		"image", "images", "graph", "graphs", "picture", "pictures",
		"file", "files", "map", "maps", "draw", "plot", "go to",
		"video", "audio", "music", "flowchart", "diagram",
	},
	DeniedPrefixes: []string{"Write a program"},
}

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Validator checks and normalizes oracle candidates before deduplication.
type Validator struct {
	opts     ValidatorOptions
	validate *validator.Validate
	denied   *regexp.Regexp
}

// NewValidator creates a Validator.
func NewValidator(optFns ...func(o *ValidatorOptions)) *Validator {
	opts := DefaultValidatorOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	v := &Validator{
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	if len(opts.Denylist) > 0 {
		quoted := make([]string, len(opts.Denylist))
		for i, w := range opts.Denylist {
			quoted[i] = regexp.QuoteMeta(w)
		}
		v.denied = regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	}

	return v
}

// Check returns the normalized record, or a *SchemaValidationError or
// *ContentPolicyReject explaining why it is dropped.
func (v *Validator) Check(r model.TaskRecord) (model.TaskRecord, error) {
	r = r.Normalize()

	if err := v.validate.Struct(r); err != nil {
		return r, &SchemaValidationError{Field: "instruction", cause: err}
	}
	if !r.Valid() {
		return r, &SchemaValidationError{Field: "input,output"}
	}

	inst := r.Instruction

	if n := len(strings.Fields(inst)); n < v.opts.MinInstructionWords || n > v.opts.MaxInstructionWords {
		return r, &ContentPolicyReject{Rule: "instruction length", Detail: wordCount(n)}
	}
	if n := len(strings.Fields(r.Output)); n > v.opts.MaxOutputWords {
		return r, &ContentPolicyReject{Rule: "output length", Detail: wordCount(n)}
	}
	if v.denied != nil {
		if m := v.denied.FindString(inst); m != "" {
			return r, &ContentPolicyReject{Rule: "denylisted word", Detail: strings.ToLower(m)}
		}
	}
	for _, p := range v.opts.DeniedPrefixes {
		if strings.HasPrefix(inst, p) {
			return r, &ContentPolicyReject{Rule: "denied prefix", Detail: p}
		}
	}

	first, _ := utf8.DecodeRuneInString(inst)
	if first >= utf8.RuneSelf {
		return r, &ContentPolicyReject{Rule: "non-ascii start"}
	}
	if strings.ContainsRune(asciiPunctuation, first) {
		return r, &ContentPolicyReject{Rule: "punctuation start"}
	}

	return r, nil
}

func wordCount(n int) string {
	return strconv.Itoa(n) + " words"
}
