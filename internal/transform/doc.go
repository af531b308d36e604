// Package transform implements the CSV stages of the pipeline: cleaning
// movies.csv, cleaning ratings.csv and joining the two on movieId.
//
// Every stage streams or loads header-first CSV through csvio and writes its
// output with the same conventions, so a stage's output path is the next
// stage's input path.
package transform
