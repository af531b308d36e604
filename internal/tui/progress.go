package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/moviepipe/moviepipe/internal/pipeline"
	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

type taskState int

const (
	taskPending taskState = iota
	taskRunning
	taskSucceeded
	taskFailed
	taskSkipped
)

type taskRow struct {
	name    string
	state   taskState
	elapsed time.Duration
	err     error
}

// Messages sent from the pipeline to the progress model.
type runStartedMsg struct{ runID uuid.UUID }

type taskStartedMsg struct{ task string }

type taskFinishedMsg struct {
	task    string
	status  pipeline.Status
	elapsed time.Duration
	err     error
}

type runFinishedMsg struct {
	report *moviepipe.RunReport
	err    error
}

// ProgressModel renders the task graph while a run executes.
type ProgressModel struct {
	runID     uuid.UUID
	tasks     []taskRow
	index     map[string]int
	spinner   spinner.Model
	keys      KeyMap
	cancel    func()
	canceling bool
	done      bool
	report    *moviepipe.RunReport
	err       error
}

// NewProgressModel creates a model listing every task as pending. cancel is
// called when the user presses the cancel key.
func NewProgressModel(cancel func()) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	tasks := pipeline.Tasks()
	m := ProgressModel{
		tasks:   make([]taskRow, len(tasks)),
		index:   make(map[string]int, len(tasks)),
		spinner: s,
		keys:    DefaultKeyMap(),
		cancel:  cancel,
	}
	for i, name := range tasks {
		m.tasks[i] = taskRow{name: name}
		m.index[name] = i
	}
	return m
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) && !m.canceling && !m.done {
			m.canceling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case runStartedMsg:
		m.runID = msg.runID
		return m, nil

	case taskStartedMsg:
		if i, ok := m.index[msg.task]; ok {
			m.tasks[i].state = taskRunning
		}
		return m, nil

	case taskFinishedMsg:
		if i, ok := m.index[msg.task]; ok {
			row := &m.tasks[i]
			row.elapsed = msg.elapsed
			row.err = msg.err
			switch msg.status {
			case pipeline.StatusSucceeded:
				row.state = taskSucceeded
			case pipeline.StatusFailed:
				row.state = taskFailed
			case pipeline.StatusSkipped:
				row.state = taskSkipped
			}
		}
		return m, nil

	case runFinishedMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	var b strings.Builder

	title := "Running " + moviepipe.PipelineName
	if m.runID != uuid.Nil {
		title += " " + SubtitleStyle.Render(m.runID.String())
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	for _, row := range m.tasks {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	switch {
	case m.done && m.err != nil:
		b.WriteString(ErrorStyle.Render(SymbolCross + " run failed"))
		b.WriteString("\n")
	case m.done && m.report != nil:
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s run finished in %s", SymbolCheck, m.report.Duration().Round(time.Millisecond))))
		b.WriteString("\n")
	case m.done:
		b.WriteString(SuccessStyle.Render(SymbolCheck + " run finished"))
		b.WriteString("\n")
	case m.canceling:
		b.WriteString(WarningStyle.Render("canceling..."))
		b.WriteString("\n")
	default:
		b.WriteString(HelpStyle.Render(m.keys.HelpText()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m ProgressModel) renderRow(row taskRow) string {
	name := TaskStyle.Render(row.name)
	elapsed := MutedStyle.Render(row.elapsed.Round(time.Millisecond).String())

	switch row.state {
	case taskRunning:
		return m.spinner.View() + " " + name
	case taskSucceeded:
		return SuccessStyle.Render(SymbolCheck) + " " + name + elapsed
	case taskFailed:
		return ErrorStyle.Render(SymbolCross) + " " + name + ErrorStyle.Render(fmt.Sprint(row.err))
	case taskSkipped:
		return MutedStyle.Render(SymbolSkipped + " " + name + "skipped")
	default:
		return MutedStyle.Render(SymbolPending + " " + row.name)
	}
}

// Done reports whether the run has finished.
func (m ProgressModel) Done() bool {
	return m.done
}

// ProgramObserver forwards pipeline events to a running tea.Program.
type ProgramObserver struct {
	send func(tea.Msg)
}

// NewProgramObserver creates an observer that calls send for every event.
// (*tea.Program).Send is the usual argument.
func NewProgramObserver(send func(tea.Msg)) *ProgramObserver {
	return &ProgramObserver{send: send}
}

func (o *ProgramObserver) RunStarted(runID uuid.UUID) {
	o.send(runStartedMsg{runID: runID})
}

func (o *ProgramObserver) TaskStarted(task string) {
	o.send(taskStartedMsg{task: task})
}

func (o *ProgramObserver) TaskFinished(task string, status pipeline.Status, elapsed time.Duration, err error) {
	o.send(taskFinishedMsg{task: task, status: status, elapsed: elapsed, err: err})
}

func (o *ProgramObserver) RunFinished(report *moviepipe.RunReport, err error) {
	o.send(runFinishedMsg{report: report, err: err})
}
