package moviepipe

import (
	"time"

	"github.com/google/uuid"
)

// MergedRecord is one row of merged_data.csv and of the movies_ratings table.
// Field order matches the table's column order.
type MergedRecord struct {
	UserID    int64
	MovieID   int64
	Rating    float64
	Timestamp int64
	Title     string
	Genres    string
}

// Values returns the record in table column order.
func (r MergedRecord) Values() []any {
	return []any{r.UserID, r.MovieID, r.Rating, r.Timestamp, r.Title, r.Genres}
}

// TitleAverage is one row of the analysis result.
type TitleAverage struct {
	Title         string
	AverageRating float64
}

// RunReport summarises a completed pipeline run.
type RunReport struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	MoviesKept  int
	RatingsKept int
	MergedRows  int
	LoadedRows  int

	// TopRated is ordered by AverageRating descending, then Title ascending
	TopRated []TitleAverage
}

// Duration returns how long the run took.
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
