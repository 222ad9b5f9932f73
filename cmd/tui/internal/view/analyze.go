package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

const analyzeTimeout = 5 * time.Minute

type analyzeState int

const (
	analyzeStateWindow analyzeState = iota
	analyzeStateRunning
	analyzeStateResult
)

type AnalyzeModel struct {
	CommonModel
	analysisService *analysis.Service

	state   analyzeState
	picker  WindowPicker
	spinner spinner.Model

	run *analysis.Run
	err error
}

func NewAnalyzeModel(svc *analysis.Service) AnalyzeModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return AnalyzeModel{
		analysisService: svc,
		picker:          NewWindowPicker(),
		spinner:         s,
	}
}

func (m AnalyzeModel) Title() string { return "Run Analysis" }

func (m AnalyzeModel) ShortHelp() string {
	switch m.state {
	case analyzeStateRunning:
		return "Analyzing..."
	case analyzeStateResult:
		return "Esc: back to menu"
	}
	return "Esc: back | Enter: confirm"
}

func (m AnalyzeModel) Init() tea.Cmd {
	return nil
}

func (m AnalyzeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sel, ok := msg.(WindowSelectedMsg); ok {
		filter := transaction.ListFilter{}
		if !sel.All {
			filter.StartDate = &sel.Start
			filter.EndDate = &sel.End
		}

		m.state = analyzeStateRunning
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, m.runCmd(filter))
	}

	switch m.state {
	case analyzeStateWindow:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.picker.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case analyzeStateRunning:
		if result, ok := msg.(analyzeResultMsg); ok {
			m.state = analyzeStateResult
			m.run = result.run
			m.err = result.err
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case analyzeStateResult:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m AnalyzeModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case analyzeStateWindow:
		return style.Render(m.picker.View())

	case analyzeStateRunning:
		return style.Render(fmt.Sprintf("%s Scoring customers...", m.spinner.View()))

	case analyzeStateResult:
		return style.Render(m.viewResult())
	}

	return ""
}

func (m AnalyzeModel) viewResult() string {
	if m.err != nil {
		msg := errorText(m.err)
		if errors.Is(m.err, rfm.ErrInsufficientData) {
			msg += "\n\nImport transactions or widen the date range first."
		}
		return msg + "\n\n(Esc to go back)"
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("46")).
		Render(fmt.Sprintf("Analysis %s (as of %s)", m.run.ID, FormatDate(m.run.AnalysisDate)))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		report.GenerateSummary(m.run.Portfolio, m.run.ChurnThresholdDays),
		SegmentTable(m.run.Segments),
		"",
		"(Esc to go back)",
	)
}

// SegmentTable renders the segment summary as a static table.
func SegmentTable(segments []rfm.SegmentSummary) string {
	rows := make([][]string, len(segments))
	for i, s := range segments {
		rows[i] = []string{
			string(s.Segment),
			strconv.Itoa(s.CustomerCount),
			fmt.Sprintf("%.2f", s.AvgRecency),
			fmt.Sprintf("%.2f", s.AvgFrequency),
			FormatAmount(s.TotalRevenue),
			FormatAmount(s.AvgRevenuePerCustomer),
			FormatPercent(s.Percentage),
		}
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("Segment", "Customers", "Avg Recency", "Avg Frequency", "Revenue", "Avg Revenue", "Share").
		Rows(rows...).
		String()
}

type analyzeResultMsg struct {
	run *analysis.Run
	err error
}

func (m AnalyzeModel) runCmd(filter transaction.ListFilter) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
		defer cancel()

		run, err := m.analysisService.Run(ctx, filter)
		return analyzeResultMsg{run: run, err: err}
	}
}
