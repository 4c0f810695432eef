// Package tui shows a live view of a running solve: each iteration
// streams into a bubbletea program that charts the KKT residual while
// the engine works.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RobotXiaoFeng/acado/internal/sqp"
	"github.com/RobotXiaoFeng/acado/internal/viz"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	lineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type recordMsg sqp.IterationRecord

type doneMsg struct{ res *sqp.Result }

// Monitor bridges the engine callbacks into the program's message loop.
type Monitor struct {
	model   string
	records chan sqp.IterationRecord
	done    chan *sqp.Result
}

func NewMonitor(model string) *Monitor {
	return &Monitor{
		model:   model,
		records: make(chan sqp.IterationRecord, 64),
		done:    make(chan *sqp.Result, 1),
	}
}

// OnIteration is handed to the engine options; it never blocks the
// solver.
func (m *Monitor) OnIteration(rec sqp.IterationRecord) {
	select {
	case m.records <- rec:
	default:
	}
}

// Finish delivers the final result and ends the program.
func (m *Monitor) Finish(res *sqp.Result) {
	m.done <- res
}

// Run blocks until the solve finishes and the user quits.
func (m *Monitor) Run() error {
	p := tea.NewProgram(newLiveModel(m))
	_, err := p.Run()
	return err
}

type liveModel struct {
	monitor *Monitor
	history []sqp.IterationRecord
	result  *sqp.Result
}

func newLiveModel(m *Monitor) liveModel {
	return liveModel{monitor: m}
}

func (lm liveModel) Init() tea.Cmd {
	return lm.wait()
}

func (lm liveModel) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case rec := <-lm.monitor.records:
			return recordMsg(rec)
		case res := <-lm.monitor.done:
			return doneMsg{res}
		}
	}
}

func (lm liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return lm, tea.Quit
		}
	case recordMsg:
		lm.history = append(lm.history, sqp.IterationRecord(msg))
		return lm, lm.wait()
	case doneMsg:
		lm.result = msg.res
		// drain anything the callback pushed before Finish
		for {
			select {
			case rec := <-lm.monitor.records:
				lm.history = append(lm.history, rec)
			default:
				return lm, nil
			}
		}
	}
	return lm, nil
}

func (lm liveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("solving %s", lm.monitor.model)))
	b.WriteString("\n\n")

	if len(lm.history) > 0 {
		last := lm.history[len(lm.history)-1]
		b.WriteString(lineStyle.Render(fmt.Sprintf(
			"iter %3d   obj %12.6g   kkt %10.3g   step %.3g",
			last.Iter, last.Objective, last.KKT, last.StepSize)))
		b.WriteString("\n")
		b.WriteString(viz.Convergence(lm.history, 60, 8))
		b.WriteString("\n")
	} else {
		b.WriteString(lineStyle.Render("waiting for the first iteration..."))
		b.WriteString("\n")
	}

	if lm.result != nil {
		b.WriteString("\n")
		b.WriteString(doneStyle.Render(viz.Summary(lm.monitor.model, lm.result)))
		b.WriteString(helpStyle.Render("q to quit"))
	} else {
		b.WriteString(helpStyle.Render("q to abort the view"))
	}
	b.WriteString("\n")
	return b.String()
}
