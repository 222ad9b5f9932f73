package view

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

type exportState int

const (
	exportStateLoading exportState = iota
	exportStateForm
	exportStateExporting
	exportStateResult
)

const (
	exportTimeout   = 2 * time.Minute
	workbookName    = "Customer_Segmentation_Analysis"
	exportRunsLimit = 20
)

// exportChoice is written by the form.
type exportChoice struct {
	runID uuid.UUID
	path  string
}

type ExportModel struct {
	CommonModel
	analysisService *analysis.Service
	txService       *transaction.Service
	publisher       *report.Publisher

	state   exportState
	err     error
	form    *huh.Form
	spinner spinner.Model

	runs      []*analysis.Run
	choice    *exportChoice
	outputDir string

	written   string
	published bool
	status    string
}

func NewExportModel(analysisSvc *analysis.Service, txSvc *transaction.Service, publisher *report.Publisher, outputDir string) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return ExportModel{
		analysisService: analysisSvc,
		txService:       txSvc,
		publisher:       publisher,
		outputDir:       outputDir,
		spinner:         s,
	}
}

func (m ExportModel) Title() string { return "Export Workbook" }

func (m ExportModel) ShortHelp() string {
	switch m.state {
	case exportStateResult:
		return "p: publish | Esc: back to menu"
	case exportStateExporting:
		return "Exporting..."
	}
	return "Esc: back | Enter: confirm"
}

func (m ExportModel) Init() tea.Cmd {
	return m.loadRunsCmd()
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.state != exportStateExporting {
		return m, Back
	}

	switch m.state {
	case exportStateLoading:
		if loaded, ok := msg.(exportRunsMsg); ok {
			if loaded.err != nil {
				m.state = exportStateResult
				m.err = loaded.err
				return m, nil
			}

			if len(loaded.runs) == 0 {
				m.state = exportStateResult
				m.err = errors.New("no analysis runs to export, run an analysis first")
				return m, nil
			}

			m.runs = loaded.runs
			m.choice = &exportChoice{runID: loaded.runs[0].ID, path: m.outputDir}
			m.form = buildExportForm(loaded.runs, m.choice)
			m.state = exportStateForm
			return m, m.form.Init()
		}
		return m, nil

	case exportStateForm:
		return m.updateForm(msg)

	case exportStateExporting:
		return m.updateExporting(msg)

	case exportStateResult:
		return m.updateResult(msg)
	}

	return m, nil
}

func (m ExportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = exportStateExporting
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.runExportCmd(m.choice.runID, m.choice.path))
}

func (m ExportModel) updateExporting(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch result := msg.(type) {
	case exportResultMsg:
		m.state = exportStateResult
		m.err = result.err
		m.written = result.path
		return m, nil

	case publishResultMsg:
		m.state = exportStateResult
		if result.err != nil {
			m.status = fmt.Sprintf("Publish failed: %v", result.err)
			return m, nil
		}
		m.published = true
		m.status = "Published to webhook."
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m ExportModel) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "p" && m.err == nil && !m.published {
		m.state = exportStateExporting
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, m.publishCmd(m.choice.runID))
	}
	return m, nil
}

func buildExportForm(runs []*analysis.Run, choice *exportChoice) *huh.Form {
	options := make([]huh.Option[uuid.UUID], len(runs))
	for i, r := range runs {
		label := fmt.Sprintf("%s  as of %s  %d customers",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			FormatDate(r.AnalysisDate),
			r.Portfolio.TotalCustomers,
		)
		options[i] = huh.NewOption(label, r.ID)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().
				Title("Analysis Run").
				Options(options...).
				Value(&choice.runID),

			huh.NewInput().
				Key("path").
				Title("Output Directory").
				Description("Directory will be created if it doesn't exist").
				Placeholder("./excel").
				Value(&choice.path),
		),
	).WithWidth(60).WithShowHelp(false)
}

func (m ExportModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.state {
	case exportStateLoading:
		return style.Render("Loading analysis runs...")

	case exportStateForm:
		return style.Render(m.form.View())

	case exportStateExporting:
		return style.Render(fmt.Sprintf("%s Working...", m.spinner.View()))

	case exportStateResult:
		return style.Render(m.viewResult())
	}

	return ""
}

func (m ExportModel) viewResult() string {
	if m.err != nil {
		return errorText(m.err) + "\n\n(Esc to go back)"
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("46")).
		Render("Export Complete!")

	lines := []string{header, "", "Workbook: " + m.written}
	if m.status != "" {
		lines = append(lines, "", m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Messages

type exportRunsMsg struct {
	runs []*analysis.Run
	err  error
}

type exportResultMsg struct {
	path string
	err  error
}

type publishResultMsg struct {
	err error
}

func (m ExportModel) loadRunsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		runs, err := m.analysisService.List(ctx, exportRunsLimit)
		return exportRunsMsg{runs: runs, err: err}
	}
}

func (m ExportModel) runExportCmd(id uuid.UUID, dir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		data, err := workbookData(ctx, m.analysisService, m.txService, id)
		if err != nil {
			return exportResultMsg{err: err}
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportResultMsg{err: fmt.Errorf("creating output directory: %w", err)}
		}

		path := report.TimestampedFilename(dir, workbookName, "xlsx", time.Now())
		if err := report.SaveWorkbook(path, data); err != nil {
			return exportResultMsg{err: err}
		}

		return exportResultMsg{path: path}
	}
}

func (m ExportModel) publishCmd(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		run, err := m.analysisService.Get(ctx, id)
		if err != nil {
			return publishResultMsg{err: err}
		}

		payload := report.NewPayload(run.ID.String(), run.AnalysisDate, run.Portfolio, run.Segments, time.Now())
		return publishResultMsg{err: m.publisher.Publish(ctx, payload)}
	}
}

// workbookData loads everything the workbook needs for one run.
func workbookData(ctx context.Context, analyses *analysis.Service, txs *transaction.Service, id uuid.UUID) (report.Data, error) {
	run, err := analyses.Get(ctx, id)
	if err != nil {
		return report.Data{}, fmt.Errorf("loading run: %w", err)
	}

	customers, err := analyses.Customers(ctx, id, analysis.CustomerFilter{OrderBy: analysis.OrderByCustomerID})
	if err != nil {
		return report.Data{}, fmt.Errorf("loading customers: %w", err)
	}

	transactions, err := txs.List(ctx, run.SnapshotFilter())
	if err != nil {
		return report.Data{}, fmt.Errorf("loading transactions: %w", err)
	}

	return report.Data{
		AnalysisDate:       run.AnalysisDate,
		ChurnThresholdDays: run.ChurnThresholdDays,
		Portfolio:          run.Portfolio,
		Segments:           run.Segments,
		Customers:          customers,
		Transactions:       transactions,
	}, nil
}
