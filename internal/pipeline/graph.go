package pipeline

// Task identifiers, as they appear in logs, metrics and the progress view.
const (
	TaskIngestMovies     = "ingest_movies"
	TaskIngestRatings    = "ingest_ratings"
	TaskCreateTmpDir     = "create_tmp_dir"
	TaskTransformMovies  = "transform_movies"
	TaskTransformRatings = "transform_ratings"
	TaskMergeData        = "merge_data"
	TaskLoadTable        = "load_table"
	TaskAnalysis         = "analysis"
	TaskCleanup          = "cleanup"
)

// Stages returns the task graph as an ordered list of stages. Every task of
// a stage depends on every task of the previous one; tasks within a stage
// are independent.
func Stages() [][]string {
	return [][]string{
		{TaskIngestMovies, TaskIngestRatings},
		{TaskCreateTmpDir},
		{TaskTransformMovies, TaskTransformRatings},
		{TaskMergeData},
		{TaskLoadTable},
		{TaskAnalysis},
		{TaskCleanup},
	}
}

// Tasks returns every task id in execution order.
func Tasks() []string {
	var out []string
	for _, stage := range Stages() {
		out = append(out, stage...)
	}
	return out
}
