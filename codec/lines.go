package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// maxLine bounds a single JSONL record.
const maxLine = 16 << 20

// WriteLines encodes each item on its own line.
func WriteLines[T any](c Codec, w io.Writer, items []T) error {
	bw := bufio.NewWriter(w)

	for i := range items {
		b, err := c.Marshal(items[i])
		if err != nil {
			return fmt.Errorf("codec: line %d: %w", i+1, err)
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadLines decodes one item per non-blank line.
func ReadLines[T any](c Codec, r io.Reader) ([]T, error) {
	var out []T

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)

	line := 0
	for sc.Scan() {
		line++

		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}

		var item T
		if err := c.Unmarshal(b, &item); err != nil {
			return nil, fmt.Errorf("codec: line %d: %w", line, err)
		}
		out = append(out, item)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
