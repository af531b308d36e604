package transform

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moviepipe/moviepipe/internal/csvio"
	"github.com/moviepipe/moviepipe/internal/files/filesystem"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	moviesCSV = "movieId,title,genres\n" +
		"1,A,x\n" +
		"2,,y\n"

	ratingsCSV = "userId,movieId,rating,timestamp\n" +
		"10,1,4.0,100\n" +
		"11,1,2.5,101\n" +
		"12,2,5.0,102\n"
)

func newFS(t *testing.T, files map[string]string) *filesystem.MemoryFileSystem {
	t.Helper()
	mfs := filesystem.NewMemoryFileSystem()
	for p, content := range files {
		mfs.AddFile(p, content)
	}
	require.NoError(t, mfs.MkdirAll("/tmp", 0o755))
	return mfs
}

func readTable(t *testing.T, fsys filesystem.FileSystem, path string) *csvio.Table {
	t.Helper()
	tbl, err := csvio.ReadAll(fsys, path)
	require.NoError(t, err)
	return tbl
}

func assertTable(t *testing.T, want *csvio.Table, fsys filesystem.FileSystem, path string) {
	t.Helper()
	if diff := cmp.Diff(want, readTable(t, fsys, path)); diff != "" {
		t.Errorf("%s mismatch (-want +got):\n%s", path, diff)
	}
}

func TestEndToEndExample(t *testing.T) {
	ctx := context.Background()
	mfs := newFS(t, map[string]string{"/raw/movies.csv": moviesCSV, "/raw/ratings.csv": ratingsCSV})

	kept, err := CleanMovies(ctx, mfs, "/raw/movies.csv", "/tmp/movies_clean.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, kept)

	kept, err = CleanRatings(ctx, mfs, "/raw/ratings.csv", "/tmp/ratings_clean.csv", moviepipe.DefaultMinRating)
	require.NoError(t, err)
	assert.Equal(t, 2, kept)

	merged, err := Merge(ctx, mfs, "/tmp/ratings_clean.csv", "/tmp/movies_clean.csv", "/tmp/merged_data.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	assertTable(t, &csvio.Table{
		Header: []string{"movieId", "title", "genres"},
		Rows:   [][]string{{"1", "A", "x"}},
	}, mfs, "/tmp/movies_clean.csv")

	assertTable(t, &csvio.Table{
		Header: []string{"userId", "movieId", "rating", "timestamp"},
		Rows:   [][]string{{"10", "1", "4.0", "100"}, {"12", "2", "5.0", "102"}},
	}, mfs, "/tmp/ratings_clean.csv")

	assertTable(t, &csvio.Table{
		Header: []string{"userId", "movieId", "rating", "timestamp", "title", "genres"},
		Rows:   [][]string{{"10", "1", "4.0", "100", "A", "x"}},
	}, mfs, "/tmp/merged_data.csv")
}

func TestCleanMovies(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "blank and whitespace titles dropped",
			input: "movieId,title,genres\n1,Heat (1995),Action\n2,,Drama\n3,   ,Comedy\n4,\"Heat, The\",\n",
			want:  [][]string{{"1", "Heat (1995)", "Action"}, {"4", "Heat, The", ""}},
		},
		{
			name:  "short row has no title",
			input: "movieId,title,genres\n5\n6,Six,Drama\n",
			want:  [][]string{{"6", "Six", "Drama"}},
		},
		{
			name:  "header only",
			input: "movieId,title,genres\n",
			want:  nil,
		},
		{
			name:  "all null",
			input: "movieId,title,genres\n1,,x\n2,,y\n",
			want:  nil,
		},
		{
			name:  "extra columns preserved",
			input: "movieId,title,genres,year\n1,A,x,1999\n",
			want:  [][]string{{"1", "A", "x", "1999"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := newFS(t, map[string]string{"/raw/movies.csv": tt.input})

			kept, err := CleanMovies(context.Background(), mfs, "/raw/movies.csv", "/tmp/movies_clean.csv")
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), kept)

			got := readTable(t, mfs, "/tmp/movies_clean.csv")
			if diff := cmp.Diff(tt.want, got.Rows); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCleanMovies_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		mfs := newFS(t, nil)
		_, err := CleanMovies(ctx, mfs, "/raw/movies.csv", "/tmp/movies_clean.csv")
		assert.ErrorIs(t, err, moviepipe.ErrSourceMissing)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("missing title column", func(t *testing.T) {
		mfs := newFS(t, map[string]string{"/raw/movies.csv": "movieId,name\n1,A\n"})
		_, err := CleanMovies(ctx, mfs, "/raw/movies.csv", "/tmp/movies_clean.csv")
		assert.ErrorIs(t, err, moviepipe.ErrMalformedInput)
	})

	t.Run("cancelled context", func(t *testing.T) {
		mfs := newFS(t, map[string]string{"/raw/movies.csv": moviesCSV})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := CleanMovies(cctx, mfs, "/raw/movies.csv", "/tmp/movies_clean.csv")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCleanRatings_Threshold(t *testing.T) {
	tests := []struct {
		rating string
		keep   bool
	}{
		{"0.5", false},
		{"2.5", false},
		{"2.50", false},
		{"2.5000001", true},
		{"3", true},
		{"5.0", true},
		{"", false},
		{"  ", false},
		{"NaN", false},
	}

	for _, tt := range tests {
		t.Run("rating="+tt.rating, func(t *testing.T) {
			mfs := newFS(t, map[string]string{
				"/raw/ratings.csv": "userId,movieId,rating,timestamp\n1,1," + tt.rating + ",100\n",
			})

			kept, err := CleanRatings(context.Background(), mfs, "/raw/ratings.csv", "/tmp/ratings_clean.csv", moviepipe.DefaultMinRating)
			require.NoError(t, err)
			if tt.keep {
				assert.Equal(t, 1, kept)
			} else {
				assert.Equal(t, 0, kept)
			}
		})
	}
}

func TestCleanRatings_CustomThresholdAndShortRows(t *testing.T) {
	mfs := newFS(t, map[string]string{
		"/raw/ratings.csv": "userId,movieId,rating,timestamp\n1,1,4.0,100\n2,1\n3,2,4.5,300\n",
	})

	kept, err := CleanRatings(context.Background(), mfs, "/raw/ratings.csv", "/tmp/ratings_clean.csv", 4.0)
	require.NoError(t, err)
	assert.Equal(t, 1, kept)

	got := readTable(t, mfs, "/tmp/ratings_clean.csv")
	assert.Equal(t, [][]string{{"3", "2", "4.5", "300"}}, got.Rows)
}

func TestCleanRatings_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("non-numeric rating", func(t *testing.T) {
		mfs := newFS(t, map[string]string{"/raw/ratings.csv": "userId,movieId,rating,timestamp\n1,1,good,100\n"})
		_, err := CleanRatings(ctx, mfs, "/raw/ratings.csv", "/tmp/ratings_clean.csv", moviepipe.DefaultMinRating)
		assert.ErrorIs(t, err, moviepipe.ErrMalformedInput)
		assert.Contains(t, err.Error(), "data row 1")
	})

	t.Run("missing rating column", func(t *testing.T) {
		mfs := newFS(t, map[string]string{"/raw/ratings.csv": "userId,movieId,score\n1,1,4\n"})
		_, err := CleanRatings(ctx, mfs, "/raw/ratings.csv", "/tmp/ratings_clean.csv", moviepipe.DefaultMinRating)
		assert.ErrorIs(t, err, moviepipe.ErrMalformedInput)
	})

	t.Run("missing file", func(t *testing.T) {
		mfs := newFS(t, nil)
		_, err := CleanRatings(ctx, mfs, "/raw/ratings.csv", "/tmp/ratings_clean.csv", moviepipe.DefaultMinRating)
		assert.ErrorIs(t, err, moviepipe.ErrSourceMissing)
	})
}

func TestMerge_InnerJoinPairs(t *testing.T) {
	mfs := newFS(t, map[string]string{
		"/tmp/movies_clean.csv": "movieId,title,genres\n" +
			"1,One,a\n" +
			"2,Two,b\n" +
			"2,Two again,c\n" +
			"4,Unrated,d\n",
		"/tmp/ratings_clean.csv": "userId,movieId,rating,timestamp\n" +
			"10,2,3.0,1\n" +
			"11,3,4.0,2\n" +
			"12,1,5.0,3\n" +
			"13,02,4.5,4\n",
	})

	n, err := Merge(context.Background(), mfs, "/tmp/ratings_clean.csv", "/tmp/movies_clean.csv", "/tmp/merged_data.csv")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assertTable(t, &csvio.Table{
		Header: []string{"userId", "movieId", "rating", "timestamp", "title", "genres"},
		Rows: [][]string{
			{"10", "2", "3.0", "1", "Two", "b"},
			{"10", "2", "3.0", "1", "Two again", "c"},
			{"12", "1", "5.0", "3", "One", "a"},
			{"13", "02", "4.5", "4", "Two", "b"},
			{"13", "02", "4.5", "4", "Two again", "c"},
		},
	}, mfs, "/tmp/merged_data.csv")
}

func TestMerge_EmptyResultIsNotAnError(t *testing.T) {
	mfs := newFS(t, map[string]string{
		"/tmp/movies_clean.csv":  "movieId,title,genres\n1,One,a\n",
		"/tmp/ratings_clean.csv": "userId,movieId,rating,timestamp\n10,9,3.0,1\n",
	})

	n, err := Merge(context.Background(), mfs, "/tmp/ratings_clean.csv", "/tmp/movies_clean.csv", "/tmp/merged_data.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got := readTable(t, mfs, "/tmp/merged_data.csv")
	assert.Equal(t, []string{"userId", "movieId", "rating", "timestamp", "title", "genres"}, got.Header)
	assert.Empty(t, got.Rows)
}

func TestMerge_IntegralFloatKeyJoinsInteger(t *testing.T) {
	mfs := newFS(t, map[string]string{
		"/tmp/movies_clean.csv":  "movieId,title,genres\n1,A,Comedy\n",
		"/tmp/ratings_clean.csv": "userId,movieId,rating,timestamp\n1,1.0,3.0,0\n",
	})

	n, err := Merge(context.Background(), mfs, "/tmp/ratings_clean.csv", "/tmp/movies_clean.csv", "/tmp/merged_data.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := readTable(t, mfs, "/tmp/merged_data.csv")
	assert.Equal(t, [][]string{{"1", "1", "3.0", "0", "A", "Comedy"}}, got.Rows)
}

func TestMerge_DuplicateColumnsGetSuffixes(t *testing.T) {
	mfs := newFS(t, map[string]string{
		"/tmp/movies_clean.csv":  "movieId,title,timestamp\n1,One,1999\n",
		"/tmp/ratings_clean.csv": "userId,movieId,rating,timestamp\n10,1,3.0,100\n",
	})

	_, err := Merge(context.Background(), mfs, "/tmp/ratings_clean.csv", "/tmp/movies_clean.csv", "/tmp/merged_data.csv")
	require.NoError(t, err)

	got := readTable(t, mfs, "/tmp/merged_data.csv")
	assert.Equal(t, []string{"userId", "movieId", "rating", "timestamp_x", "title", "timestamp_y"}, got.Header)
	assert.Equal(t, [][]string{{"10", "1", "3.0", "100", "One", "1999"}}, got.Rows)
}

func TestMerge_MissingInputs(t *testing.T) {
	ctx := context.Background()

	mfs := newFS(t, map[string]string{"/tmp/movies_clean.csv": "movieId,title,genres\n"})
	_, err := Merge(ctx, mfs, "/tmp/ratings_clean.csv", "/tmp/movies_clean.csv", "/tmp/merged_data.csv")
	assert.ErrorIs(t, err, moviepipe.ErrSourceMissing)

	mfs = newFS(t, map[string]string{
		"/tmp/movies_clean.csv":  "id,title\n",
		"/tmp/ratings_clean.csv": "userId,movieId,rating,timestamp\n",
	})
	_, err = Merge(ctx, mfs, "/tmp/ratings_clean.csv", "/tmp/movies_clean.csv", "/tmp/merged_data.csv")
	assert.ErrorIs(t, err, moviepipe.ErrMalformedInput)
}

func TestJoinKey(t *testing.T) {
	tests := []struct {
		cell   string
		want   string
		wantOK bool
	}{
		{"7", "i:7", true},
		{" 007 ", "i:7", true},
		{"-3", "i:-3", true},
		{"1.0", "i:1", true},
		{" 42.000 ", "i:42", true},
		{"1.5", "s:1.5", true},
		{"tt0114369", "s:tt0114369", true},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		got, ok := joinKey([]string{tt.cell}, 0)
		assert.Equal(t, tt.wantOK, ok, tt.cell)
		assert.Equal(t, tt.want, got, tt.cell)
	}
}
