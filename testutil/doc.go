// Package testutil provides testing utilities for fission.
//
// This package is intended for use in tests only. It provides a scripted
// deterministic oracle, task record fixtures and seeded random vectors.
//
// # Scripted Oracle
//
//	stub := testutil.NewStubOracle(func(req oracle.Request, call int) (oracle.Response, error) {
//	    return testutil.TasksResponse(testutil.Task("Name three primary colors.", "", "Red, yellow, blue.")), nil
//	})
//
// # Random Vectors
//
//	rng := testutil.NewRNG(seed)
//	vectors := rng.UniformVectors(100, 32)
//	recall := testutil.ComputeRecall(exact, approximate)
package testutil
