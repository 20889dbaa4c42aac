// Package seedgen bootstraps a seed file from scratch.
//
// A Source turns either a discipline (General: subjects, then a syllabus per
// subject) or a knowledge text (Knowledge: one syllabus) into syllabi. The
// Generator then requests questions per class session with varied sampling,
// keeps the questions that are semantically distinct, and answers them
// concurrently. The resulting records are written as JSONL with
// persistence.WriteSeeds and feed the fission loop.
package seedgen
