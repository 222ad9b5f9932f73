package view

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

const importTimeout = 2 * time.Minute

type importStep int

const (
	importStepFormat importStep = iota
	importStepFile
	importStepWorking
	importStepConflicts
	importStepDone
)

// ImportModel loads a CSV export into the transaction store. When some
// transaction IDs are already stored the user reviews them and can import
// only the remaining rows.
type ImportModel struct {
	CommonModel
	txService     *transaction.Service
	importService *importer.Service

	step       importStep
	form       *huh.Form
	format     *importer.Format
	filePicker filepicker.Model

	pending   []transaction.CreateParams
	conflicts table.Model
	nConflict int

	status string
	err    error
}

func NewImportModel(txSvc *transaction.Service, impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	m := ImportModel{
		txService:     txSvc,
		importService: impSvc,
		filePicker:    fp,
		conflicts: newTable([]table.Column{
			{Title: "Transaction", Width: 14},
			{Title: "Incoming", Width: 36},
			{Title: "Stored", Width: 36},
		}, 12),
	}
	m.resetForm()

	return m
}

func (m *ImportModel) resetForm() {
	format := importer.FormatAuto
	m.format = &format

	options := make([]huh.Option[importer.Format], 0)
	for _, f := range m.importService.Formats() {
		options = append(options, huh.NewOption(string(f), f))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[importer.Format]().
				Title("CSV Format").
				Description("auto tries every known column layout").
				Options(options...).
				Value(m.format),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ImportModel) Title() string { return "Import Transactions" }

func (m ImportModel) ShortHelp() string {
	if m.step == importStepConflicts {
		return "Enter: import new rows only | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.back()
		}

	case importedMsg:
		return m.handleImported(msg), nil

	case confirmedMsg:
		m.step = importStepDone
		m.err = msg.err
		if msg.err == nil {
			m.status = fmt.Sprintf("Imported %d new transactions, skipped %d already stored.", msg.count, m.nConflict)
		}

		return m, nil
	}

	switch m.step {
	case importStepFormat:
		return m.updateForm(msg)
	case importStepFile:
		return m.updateFile(msg)
	case importStepConflicts:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
			m.step = importStepWorking
			m.status = "Importing new rows..."
			return m, m.confirmCmd()
		}

		var cmd tea.Cmd
		m.conflicts, cmd = m.conflicts.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ImportModel) back() (tea.Model, tea.Cmd) {
	switch m.step {
	case importStepFile, importStepConflicts, importStepDone:
		m.step = importStepFormat
		m.pending = nil
		m.err = nil
		m.status = ""
		m.resetForm()

		return m, m.form.Init()
	case importStepWorking:
		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.step = importStepFile
	return m, m.filePicker.Init()
}

func (m ImportModel) updateFile(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if ok, path := m.filePicker.DidSelectFile(msg); ok {
		m.step = importStepWorking
		m.status = fmt.Sprintf("Importing %s as %s...", path, *m.format)

		return m, m.importCmd(*m.format, path)
	}

	return m, cmd
}

func (m ImportModel) handleImported(msg importedMsg) ImportModel {
	if msg.err != nil || len(msg.result.Conflicts) == 0 {
		m.step = importStepDone
		m.err = msg.err
		if msg.err == nil {
			m.status = fmt.Sprintf("Imported %d transactions.", len(msg.result.Imported))
		}

		return m
	}

	m.pending = msg.result.New
	m.nConflict = len(msg.result.Conflicts)
	m.conflicts.SetRows(conflictRows(msg.result.Conflicts))
	m.conflicts.SetCursor(0)
	m.step = importStepConflicts

	return m
}

func (m ImportModel) View() string {
	style := lipgloss.NewStyle().Padding(1)

	switch m.step {
	case importStepFormat:
		return style.Render(m.form.View())
	case importStepFile:
		return style.Render(fmt.Sprintf("Select a %s file:\n\n%s", *m.format, m.filePicker.View()))
	case importStepWorking:
		return style.Render(m.status)
	case importStepConflicts:
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%d transaction IDs are already stored, %d rows are new.", m.nConflict, len(m.pending)),
			boxed(m.conflicts.View()),
		))
	case importStepDone:
		if m.err != nil {
			return style.Render(errorText(m.err) + "\n\n(Esc to go back)")
		}

		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status) + "\n\n(Esc to go back)",
		)
	}

	return ""
}

func conflictRows(conflicts []transaction.Conflict) []table.Row {
	rows := make([]table.Row, len(conflicts))
	for i, c := range conflicts {
		rows[i] = table.Row{
			c.Incoming.ID,
			fmt.Sprintf("%s %s %s", FormatDate(c.Incoming.Date), c.Incoming.CustomerID, FormatAmount(c.Incoming.Amount)),
			fmt.Sprintf("%s %s %s", FormatDate(c.Existing.Date), c.Existing.CustomerID, FormatAmount(c.Existing.Amount)),
		}
	}

	return rows
}

// Messages

type importedMsg struct {
	result *transaction.ImportResult
	err    error
}

type confirmedMsg struct {
	count int
	err   error
}

func (m ImportModel) importCmd(format importer.Format, path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importedMsg{err: err}
		}
		defer f.Close()

		params, err := m.importService.Import(format, f)
		if err != nil {
			return importedMsg{err: fmt.Errorf("parsing %s: %w", path, err)}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.txService.ImportBatch(ctx, params)
		return importedMsg{result: result, err: err}
	}
}

func (m ImportModel) confirmCmd() tea.Cmd {
	pending := m.pending

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := m.txService.CreateBatch(ctx, pending)
		return confirmedMsg{count: len(txs), err: err}
	}
}
