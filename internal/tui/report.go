package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// RenderTopRated renders the analysis result as a table.
func RenderTopRated(top []moviepipe.TitleAverage) string {
	if len(top) == 0 {
		return MutedStyle.Render("No rated titles in " + moviepipe.TableName)
	}

	rows := make([][]string, len(top))
	for i, t := range top {
		rows[i] = []string{strconv.Itoa(i + 1), t.Title, strconv.FormatFloat(t.AverageRating, 'f', 2, 64)}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(MutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle
			case col == 1:
				return CellStyle
			default:
				return NumberCellStyle
			}
		}).
		Headers("#", "Title", "Avg rating").
		Rows(rows...).
		String()
}

// RenderSummary renders the row counts and timing of a run.
func RenderSummary(r *moviepipe.RunReport) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Run " + r.RunID.String()))
	b.WriteString("\n")

	lines := []struct {
		label string
		value string
	}{
		{"movies kept", strconv.Itoa(r.MoviesKept)},
		{"ratings kept", strconv.Itoa(r.RatingsKept)},
		{"merged rows", strconv.Itoa(r.MergedRows)},
		{"loaded rows", strconv.Itoa(r.LoadedRows)},
		{"duration", r.Duration().Round(time.Millisecond).String()},
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "%s %s\n", SubtitleStyle.Width(14).Render(l.label), l.value)
	}
	return b.String()
}

// RenderGraph renders the task graph one stage per line.
func RenderGraph(stages [][]string) string {
	var b strings.Builder
	for i, stage := range stages {
		if i > 0 {
			b.WriteString(MutedStyle.Render("  " + SymbolArrowRight))
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s", MutedStyle.Render(strconv.Itoa(i+1)+"."), strings.Join(stage, " "+SymbolBullet+" "))
		if len(stage) > 1 {
			b.WriteString(MutedStyle.Render("  (parallel)"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
