package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

const runListLimit = 50

type runsState int

const (
	runsStateRuns runsState = iota
	runsStateSegments
	runsStateCustomers
)

// RunsModel browses stored runs, then the segments of one run, then the customers of one segment.
type RunsModel struct {
	CommonModel
	analysisService *analysis.Service

	state   runsState
	loading bool
	err     error

	runs      []*analysis.Run
	runTable  table.Model
	run       *analysis.Run
	segTable  table.Model
	segment   rfm.Segment
	custTable table.Model
}

func NewRunsModel(svc *analysis.Service) RunsModel {
	return RunsModel{
		analysisService: svc,
		loading:         true,
		runTable: newTable([]table.Column{
			{Title: "Run", Width: 36},
			{Title: "Created", Width: 20},
			{Title: "As Of", Width: 12},
			{Title: "Customers", Width: 10},
			{Title: "Revenue", Width: 14},
			{Title: "Churn", Width: 8},
		}, 15),
		segTable: newTable([]table.Column{
			{Title: "Segment", Width: 20},
			{Title: "Customers", Width: 10},
			{Title: "Avg Recency", Width: 12},
			{Title: "Avg Frequency", Width: 14},
			{Title: "Revenue", Width: 14},
			{Title: "Share", Width: 8},
		}, 10),
		custTable: newTable([]table.Column{
			{Title: "Customer", Width: 12},
			{Title: "Recency", Width: 8},
			{Title: "Frequency", Width: 10},
			{Title: "Monetary", Width: 12},
			{Title: "R", Width: 3},
			{Title: "F", Width: 3},
			{Title: "M", Width: 3},
			{Title: "RFM", Width: 4},
		}, 15),
	}
}

func (m RunsModel) Title() string { return "Analysis Runs" }

func (m RunsModel) ShortHelp() string {
	if m.state == runsStateCustomers {
		return "Esc: back"
	}
	return "Esc: back | Enter: open | r: refresh"
}

func (m RunsModel) Init() tea.Cmd {
	return m.loadRunsCmd()
}

func (m RunsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.runs = msg.runs
		m.runTable.SetRows(runRows(msg.runs))
		return m, nil

	case runLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.run = msg.run
			m.segTable.SetRows(segmentRows(msg.run.Segments))
			m.segTable.SetCursor(0)
			m.state = runsStateSegments
		}
		return m, nil

	case customersLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.custTable.SetRows(customerRows(msg.customers))
			m.custTable.SetCursor(0)
			m.state = runsStateCustomers
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m.up()
		case "r":
			if m.state == runsStateRuns {
				m.loading = true
				return m, m.loadRunsCmd()
			}
		case "enter":
			return m.open()
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case runsStateRuns:
		m.runTable, cmd = m.runTable.Update(msg)
	case runsStateSegments:
		m.segTable, cmd = m.segTable.Update(msg)
	case runsStateCustomers:
		m.custTable, cmd = m.custTable.Update(msg)
	}

	return m, cmd
}

func (m RunsModel) up() (tea.Model, tea.Cmd) {
	m.err = nil

	switch m.state {
	case runsStateCustomers:
		m.state = runsStateSegments
		return m, nil
	case runsStateSegments:
		m.state = runsStateRuns
		return m, nil
	}

	return m, Back
}

func (m RunsModel) open() (tea.Model, tea.Cmd) {
	switch m.state {
	case runsStateRuns:
		idx := m.runTable.Cursor()
		if idx < 0 || idx >= len(m.runs) {
			return m, nil
		}

		m.loading = true
		return m, m.loadRunCmd(m.runs[idx].ID)

	case runsStateSegments:
		idx := m.segTable.Cursor()
		if m.run == nil || idx < 0 || idx >= len(m.run.Segments) {
			return m, nil
		}

		m.segment = m.run.Segments[idx].Segment
		m.loading = true
		return m, m.loadCustomersCmd(m.run.ID, m.segment)
	}

	return m, nil
}

func (m RunsModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	if m.loading {
		return style.Render("Loading...")
	}

	if m.err != nil {
		return style.Render(errorText(m.err) + "\n\n(Esc to go back)")
	}

	switch m.state {
	case runsStateRuns:
		if len(m.runs) == 0 {
			return style.Render("No analysis runs yet.\n\n(Esc to go back)")
		}
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%d most recent runs", len(m.runs)),
			boxed(m.runTable.View()),
		))

	case runsStateSegments:
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("Run %s, %d customers, churn %.1f%%", m.run.ID, m.run.Portfolio.TotalCustomers, m.run.Portfolio.ChurnRate*100),
			boxed(m.segTable.View()),
		))

	case runsStateCustomers:
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%s by revenue", activeStyle(string(m.segment))),
			boxed(m.custTable.View()),
		))
	}

	return ""
}

func runRows(runs []*analysis.Run) []table.Row {
	rows := make([]table.Row, len(runs))
	for i, r := range runs {
		rows[i] = table.Row{
			r.ID.String(),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			FormatDate(r.AnalysisDate),
			strconv.Itoa(r.Portfolio.TotalCustomers),
			FormatAmount(r.Portfolio.TotalRevenue),
			fmt.Sprintf("%.1f%%", r.Portfolio.ChurnRate*100),
		}
	}
	return rows
}

func segmentRows(segments []rfm.SegmentSummary) []table.Row {
	rows := make([]table.Row, len(segments))
	for i, s := range segments {
		rows[i] = table.Row{
			string(s.Segment),
			strconv.Itoa(s.CustomerCount),
			fmt.Sprintf("%.2f", s.AvgRecency),
			fmt.Sprintf("%.2f", s.AvgFrequency),
			FormatAmount(s.TotalRevenue),
			FormatPercent(s.Percentage),
		}
	}
	return rows
}

func customerRows(customers []rfm.ScoredCustomer) []table.Row {
	rows := make([]table.Row, len(customers))
	for i, c := range customers {
		rows[i] = table.Row{
			c.CustomerID,
			strconv.Itoa(c.Recency),
			strconv.Itoa(c.Frequency),
			FormatAmount(c.Monetary),
			strconv.Itoa(c.RScore),
			strconv.Itoa(c.FScore),
			strconv.Itoa(c.MScore),
			strconv.Itoa(c.RFMScore),
		}
	}
	return rows
}

// Messages

type runsLoadedMsg struct {
	runs []*analysis.Run
	err  error
}

type runLoadedMsg struct {
	run *analysis.Run
	err error
}

type customersLoadedMsg struct {
	customers []rfm.ScoredCustomer
	err       error
}

func (m RunsModel) loadRunsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		runs, err := m.analysisService.List(ctx, runListLimit)
		return runsLoadedMsg{runs: runs, err: err}
	}
}

func (m RunsModel) loadRunCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		run, err := m.analysisService.Get(ctx, id)
		return runLoadedMsg{run: run, err: err}
	}
}

func (m RunsModel) loadCustomersCmd(id uuid.UUID, segment rfm.Segment) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		customers, err := m.analysisService.Customers(ctx, id, analysis.CustomerFilter{
			Segments: []rfm.Segment{segment},
			OrderBy:  analysis.OrderByMonetaryDesc,
		})
		return customersLoadedMsg{customers: customers, err: err}
	}
}
