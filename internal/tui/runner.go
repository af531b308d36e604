package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/moviepipe/moviepipe/internal/pipeline"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// RunFunc executes one pipeline run, reporting progress to obs.
type RunFunc func(ctx context.Context, obs pipeline.Observer) (*moviepipe.RunReport, error)

// RunWithProgress executes run while drawing the progress view on out.
// Pressing the cancel key cancels the run's context. The run's own result is
// returned; a failure of the view itself does not fail the run.
func RunWithProgress(ctx context.Context, out io.Writer, run RunFunc, opts ...tea.ProgramOption) (*moviepipe.RunReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithOutput(out), tea.WithoutSignalHandler()}, opts...)
	p := tea.NewProgram(NewProgressModel(cancel), opts...)

	var (
		report *moviepipe.RunReport
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, runErr = run(ctx, NewProgramObserver(p.Send))
		// Runs rejected before starting never report RunFinished.
		p.Send(runFinishedMsg{report: report, err: runErr})
	}()

	_, _ = p.Run()
	<-done
	return report, runErr
}
