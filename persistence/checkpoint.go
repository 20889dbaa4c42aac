package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/fission/blobstore"
	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/model"
)

// Format is the checkpoint layout.
type Format uint8

const (
	FormatJSON Format = iota
	FormatJSONL
)

func (f Format) String() string {
	if f == FormatJSONL {
		return "jsonl"
	}
	return "json"
}

// ParseFormat maps "json" or "jsonl".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	default:
		return 0, fmt.Errorf("unknown checkpoint format %q", s)
	}
}

// FormatFromName infers the format from a file name, ignoring any
// compression suffix.
func FormatFromName(name string) Format {
	for _, ext := range []string{".zst", ".zstd", ".lz4"} {
		name = strings.TrimSuffix(name, ext)
	}
	if strings.HasSuffix(name, ".jsonl") || strings.HasSuffix(name, ".ndjson") {
		return FormatJSONL
	}
	return FormatJSON
}

// Options configures a Checkpointer.
type Options struct {
	Format      Format
	Compression Compression
	Codec       codec.Codec

	// Indent pretty-prints FormatJSON checkpoints.
	Indent string
}

// DefaultOptions derives format and compression from the blob name.
func DefaultOptions(name string) Options {
	return Options{
		Format:      FormatFromName(name),
		Compression: CompressionFromName(name),
		Codec:       codec.Default,
		Indent:      "    ",
	}
}

// Checkpointer persists the generated pool to a single blob.
type Checkpointer struct {
	mu    sync.Mutex
	store blobstore.BlobStore
	name  string
	opts  Options

	// synced is true once the blob mirrors the first `persisted` records.
	synced    bool
	persisted int
}

// New creates a Checkpointer for the blob name.
func New(store blobstore.BlobStore, name string, optFns ...func(o *Options)) *Checkpointer {
	opts := DefaultOptions(name)

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	return &Checkpointer{store: store, name: name, opts: opts}
}

// Name returns the blob name.
func (c *Checkpointer) Name() string { return c.name }

// Persisted returns the number of records known to be in the blob.
func (c *Checkpointer) Persisted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persisted
}

// Save makes the blob mirror records. records must extend whatever was saved
// or loaded before.
func (c *Checkpointer) Save(ctx context.Context, records []model.TaskRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(records) < c.persisted {
		return fmt.Errorf("checkpoint %s: %d records would truncate %d persisted", c.name, len(records), c.persisted)
	}

	if appender, ok := c.store.(blobstore.Appender); ok && c.canAppend() {
		if len(records) == c.persisted {
			return nil
		}

		var buf bytes.Buffer
		if err := codec.WriteLines(c.opts.Codec, &buf, records[c.persisted:]); err != nil {
			return err
		}
		if err := appender.Append(ctx, c.name, buf.Bytes()); err != nil {
			return fmt.Errorf("checkpoint %s: append: %w", c.name, err)
		}

		c.persisted = len(records)
		return nil
	}

	data, err := c.encode(records)
	if err != nil {
		return err
	}

	data, err = compress(c.opts.Compression, data)
	if err != nil {
		return fmt.Errorf("checkpoint %s: compress: %w", c.name, err)
	}

	if err := c.store.Put(ctx, c.name, data); err != nil {
		return fmt.Errorf("checkpoint %s: put: %w", c.name, err)
	}

	c.synced = true
	c.persisted = len(records)

	return nil
}

// Load reads the blob. A missing blob yields no records and no error.
func (c *Checkpointer) Load(ctx context.Context) ([]model.TaskRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.store.Get(ctx, c.name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: get: %w", c.name, err)
	}

	data, err = decompress(c.opts.Compression, data)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: decompress: %w", c.name, err)
	}

	records, err := c.decode(data)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", c.name, err)
	}

	c.synced = true
	c.persisted = len(records)

	return records, nil
}

func (c *Checkpointer) canAppend() bool {
	return c.synced && c.opts.Format == FormatJSONL && c.opts.Compression == CompressionNone
}

func (c *Checkpointer) encode(records []model.TaskRecord) ([]byte, error) {
	if c.opts.Format == FormatJSONL {
		var buf bytes.Buffer
		if err := codec.WriteLines(c.opts.Codec, &buf, records); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	if records == nil {
		records = []model.TaskRecord{}
	}

	if c.opts.Indent != "" {
		return c.opts.Codec.MarshalIndent(records, "", c.opts.Indent)
	}

	return c.opts.Codec.Marshal(records)
}

func (c *Checkpointer) decode(data []byte) ([]model.TaskRecord, error) {
	if c.opts.Format == FormatJSONL {
		return codec.ReadLines[model.TaskRecord](c.opts.Codec, bytes.NewReader(data))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []model.TaskRecord
	if err := c.opts.Codec.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	return records, nil
}
