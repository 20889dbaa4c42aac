package persistence

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/fission/blobstore"
	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/model"
)

type seedLine struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	Instances   []struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	} `json:"instances"`
}

func (l seedLine) record() model.TaskRecord {
	r := model.TaskRecord{Instruction: l.Instruction, Input: l.Input, Output: l.Output}
	if len(l.Instances) > 0 {
		r.Input = l.Instances[0].Input
		r.Output = l.Instances[0].Output
	}
	return r.Normalize()
}

// LoadSeeds reads a JSONL seed file and normalizes each line to a flat
// record. Blank lines are skipped; invalid records are an error.
func LoadSeeds(ctx context.Context, store blobstore.BlobStore, name string) ([]model.TaskRecord, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", name, err)
	}

	data, err = decompress(CompressionFromName(name), data)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", name, err)
	}

	lines, err := codec.ReadLines[seedLine](codec.Default, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", name, err)
	}

	seeds := make([]model.TaskRecord, 0, len(lines))
	for i, l := range lines {
		r := l.record()
		if !r.Valid() {
			return nil, fmt.Errorf("seed file %s: record %d has no instruction or no input/output", name, i+1)
		}
		seeds = append(seeds, r)
	}

	return seeds, nil
}

// WriteSeeds writes records as a flat JSONL seed file.
func WriteSeeds(ctx context.Context, store blobstore.BlobStore, name string, records []model.TaskRecord) error {
	var buf bytes.Buffer
	if err := codec.WriteLines(codec.Default, &buf, records); err != nil {
		return err
	}

	data, err := compress(CompressionFromName(name), buf.Bytes())
	if err != nil {
		return err
	}

	return store.Put(ctx, name, data)
}
