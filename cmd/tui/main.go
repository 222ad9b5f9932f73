package main

import (
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/rfmseg/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	analysisStore "github.com/MrJamesThe3rd/rfmseg/internal/analysis/store"
	"github.com/MrJamesThe3rd/rfmseg/internal/config"
	"github.com/MrJamesThe3rd/rfmseg/internal/database"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
	txStore "github.com/MrJamesThe3rd/rfmseg/internal/transaction/store"
)

type model struct {
	txService       *transaction.Service
	importService   *importer.Service
	analysisService *analysis.Service
	publisher       *report.Publisher
	outputDir       string

	currentView View

	importView  view.ImportModel
	listView    view.ListModel
	analyzeView view.AnalyzeModel
	runsView    view.RunsModel
	exportView  view.ExportModel
}

type View int

const (
	ViewMenu    View = 0
	ViewImport  View = 1
	ViewList    View = 2
	ViewAnalyze View = 3
	ViewRuns    View = 4
	ViewExport  View = 5
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := view.DbCtx()
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	txSvc := transaction.NewService(txStore.New(db))
	impSvc := importer.NewService()
	anSvc := analysis.NewService(analysisStore.New(db), txSvc, analysis.Options{
		ChurnThresholdDays: cfg.Analysis.ChurnThresholdDays,
		Workers:            cfg.Analysis.Workers,
		CacheTTL:           cfg.Analysis.CacheTTL,
	})
	pub := report.NewPublisher(cfg.Report.WebhookURL, cfg.Report.WebhookToken)

	return model{
		txService:       txSvc,
		importService:   impSvc,
		analysisService: anSvc,
		publisher:       pub,
		outputDir:       cfg.Report.OutputDir,
		currentView:     ViewMenu,
		importView:      view.NewImportModel(txSvc, impSvc),
	}
}

// setupLogger sends logs to a file so they do not draw over the screen.
func setupLogger(cfg *config.Config) {
	f, err := os.OpenFile(filepath.Join(os.TempDir(), "rfmseg-tui.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel()})))
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.txService, m.importService)

				return m, m.importView.Init()
			case "2":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.txService)

				return m, m.listView.Init()
			case "3":
				m.currentView = ViewAnalyze
				m.analyzeView = view.NewAnalyzeModel(m.analysisService)

				return m, m.analyzeView.Init()
			case "4":
				m.currentView = ViewRuns
				m.runsView = view.NewRunsModel(m.analysisService)

				return m, m.runsView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.analysisService, m.txService, m.publisher, m.outputDir)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewAnalyze:
		var newModel tea.Model
		newModel, cmd = m.analyzeView.Update(msg)
		m.analyzeView = newModel.(view.AnalyzeModel)
	case ViewRuns:
		var newModel tea.Model
		newModel, cmd = m.runsView.Update(msg)
		m.runsView = newModel.(view.RunsModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	var screen view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"RFM Customer Segmentation\n\n" +
				"1. Import Transactions\n" +
				"2. Browse Transactions\n" +
				"3. Run Analysis\n" +
				"4. Analysis Runs\n" +
				"5. Export Workbook\n\n" +
				"q. Quit",
		)
	case ViewImport:
		screen = m.importView
	case ViewList:
		screen = m.listView
	case ViewAnalyze:
		screen = m.analyzeView
	case ViewRuns:
		screen = m.runsView
	case ViewExport:
		screen = m.exportView
	default:
		return "Unknown View"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Padding(1, 1, 0).Render(screen.Title()),
		screen.View(),
		lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(screen.ShortHelp()),
	)
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
