package fission_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/fission"
	"github.com/hupe1980/fission/model"
	"github.com/hupe1980/fission/oracle"
	"github.com/hupe1980/fission/testutil"
)

// Example demonstrates a run against a scripted oracle that proposes one
// duplicate and one novel task.
func Example() {
	seeds := []model.TaskRecord{
		{Instruction: "Give three tips for staying healthy.", Output: "Eat well, move, sleep."},
	}

	client := testutil.NewStubOracle(func(req oracle.Request, _ int) (oracle.Response, error) {
		return testutil.TasksResponse(
			seeds[0],
			model.TaskRecord{Instruction: "Name the largest planet in the solar system.", Input: "<noinput>", Output: "Jupiter."},
		), nil
	})

	o, err := fission.New(client, fission.NewGeneral(), seeds,
		fission.WithSampleSizes(1, 0),
		fission.WithBatchSize(1),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer o.Close()

	state, err := o.Run(context.Background(), 1)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(state.Phase, state.Generated)
	fmt.Println(o.Pool().Generated()[0].Instruction)
	// Output:
	// DONE 1
	// Name the largest planet in the solar system.
}

// ExampleBasicMetricsCollector shows how to read in-memory metrics.
func ExampleBasicMetricsCollector() {
	metrics := &fission.BasicMetricsCollector{}

	metrics.RecordAdmission()
	metrics.RecordRejection(fission.RejectDuplicate)

	stats := metrics.GetStats()
	fmt.Println(stats.Admissions, stats.DuplicateRejections)
	// Output: 1 1
}
