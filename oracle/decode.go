package oracle

import (
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/model"
)

// TaskList is the response shape of task generation requests.
type TaskList struct {
	Tasks []model.TaskRecord `json:"tasks"`
}

// TaskSchema is the schema sent with task generation requests.
var TaskSchema = Schema{Name: "task_list", Prototype: TaskList{}}

// DecodeError reports a response that is not valid JSON for the schema.
type DecodeError struct {
	Schema string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("oracle: decode %s: %v", e.Schema, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode unmarshals resp into v.
func Decode(resp Response, schema string, v any) error {
	data := resp.JSON()
	if len(data) == 0 {
		return ErrEmptyResponse
	}
	if err := codec.Default.Unmarshal(data, v); err != nil {
		return &DecodeError{Schema: schema, Err: err}
	}
	return nil
}

// ItemError reports a task item that is valid JSON but does not have the
// record shape, e.g. a number where a string is expected.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("oracle: task %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// DecodeTasks unmarshals a TaskList response item by item. Items that do not
// decode are returned as ItemErrors next to the records that did, in response
// order. Only a malformed envelope fails the whole response.
func DecodeTasks(resp Response) ([]model.TaskRecord, []*ItemError, error) {
	var envelope struct {
		Tasks []gojson.RawMessage `json:"tasks"`
	}
	if err := Decode(resp, TaskSchema.Name, &envelope); err != nil {
		return nil, nil, err
	}

	var (
		records = make([]model.TaskRecord, 0, len(envelope.Tasks))
		bad     []*ItemError
	)

	for i, raw := range envelope.Tasks {
		var r model.TaskRecord
		if err := codec.Default.Unmarshal(raw, &r); err != nil {
			bad = append(bad, &ItemError{Index: i, Err: err})
			continue
		}
		records = append(records, r)
	}

	return records, bad, nil
}
