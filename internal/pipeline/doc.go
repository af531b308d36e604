// Package pipeline runs the movies pipeline as a fixed task graph:
//
//	ingest_movies ─┐                ┌─ transform_movies ──┐
//	               ├─ create_tmp_dir ┤                     ├─ merge_data ─ load_table ─ analysis ─ cleanup
//	ingest_ratings ┘                └─ transform_ratings ─┘
//
// Tasks in the same stage run concurrently and share a cancelable context;
// the first failure cancels its sibling. A failed task halts the run and
// every task after it is reported as skipped.
//
// Progress is reported to an Observer, which the CLI uses for logging,
// Prometheus metrics and the interactive progress view.
package pipeline
