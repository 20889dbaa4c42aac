// Package model defines the record types shared by every fission package.
//
// # Records
//
//   - TaskRecord: an instruction/input/output triple (the unit the corpus is built from)
//   - Origin: whether a record came from the seed pool or was generated
//
// The JSON field names of TaskRecord are part of the on-disk contract for seed
// files and checkpoints and must not change.
package model
