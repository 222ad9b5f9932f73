package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateFilter
	listStateDelete
)

type ListModel struct {
	CommonModel
	txService *transaction.Service

	state listState
	table table.Model
	txs   []*transaction.Transaction
	form  *huh.Form

	dateFilterIdx int

	filter  transaction.ListFilter
	loading bool
	err     error
	status  string

	fields *listFields
}

// listFields holds the form bindings. Models are copied on every update, so
// the form writes through a pointer.
type listFields struct {
	customer string
	category string
	country  string
	confirm  bool
}

func NewListModel(txSvc *transaction.Service) ListModel {
	columns := []table.Column{
		{Title: "Transaction", Width: 14},
		{Title: "Date", Width: 12},
		{Title: "Customer", Width: 12},
		{Title: "Amount", Width: 10},
		{Title: "Qty", Width: 5},
		{Title: "Category", Width: 14},
		{Title: "Payment", Width: 14},
		{Title: "Country", Width: 10},
	}

	return ListModel{
		txService: txSvc,
		table:     newTable(columns, 15),
		loading:   true,
	}
}

func (m ListModel) Title() string { return "Transactions" }
func (m ListModel) ShortHelp() string {
	if m.state != listStateBrowse {
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | f: filter | d: date filter | x: delete | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.txs = msg.txs
		m.refreshTable()
		return m, nil

	case listDeleteMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error deleting: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Deleted %s", msg.id)
		}
		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateFilter, listStateDelete:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTxsCmd()
		case "f":
			return m.enterFilterMode()
		case "x":
			return m.enterDeleteMode()
		case "d":
			m.dateFilterIdx = (m.dateFilterIdx + 1) % 3
			m.applyDateFilter(time.Now())
			return m, m.loadTxsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ListModel) enterFilterMode() (tea.Model, tea.Cmd) {
	m.fields = &listFields{
		customer: deref(m.filter.CustomerID),
		category: deref(m.filter.Category),
		country:  deref(m.filter.Country),
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("customer_id").
				Title("Customer ID").
				Placeholder("any").
				Value(&m.fields.customer),

			huh.NewInput().
				Key("category").
				Title("Category").
				Placeholder("any").
				Value(&m.fields.category),

			huh.NewInput().
				Key("country").
				Title("Country").
				Placeholder("any").
				Value(&m.fields.country),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateFilter
	m.table.Blur()
	return m, m.form.Init()
}

func (m ListModel) enterDeleteMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return m, nil
	}

	m.fields = &listFields{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s?", m.txs[idx].ID)).
				Affirmative("Delete").
				Negative("Keep").
				Value(&m.fields.confirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateDelete
	m.table.Blur()
	return m, m.form.Init()
}

func (m ListModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc {
			return m.leaveForm(), nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	state := m.state
	m = m.leaveForm()

	if state == listStateDelete {
		if !m.fields.confirm {
			return m, nil
		}
		return m, m.deleteCmd()
	}

	m.filter.CustomerID = optional(m.fields.customer)
	m.filter.Category = optional(m.fields.category)
	m.filter.Country = optional(m.fields.country)
	m.loading = true
	return m, m.loadTxsCmd()
}

func (m ListModel) leaveForm() ListModel {
	m.state = listStateBrowse
	m.form = nil
	m.table.Focus()
	return m
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorText(m.err))
	}

	dateLabels := []string{"All Time", "This Month", "Last Month"}

	header := fmt.Sprintf(
		"%d transactions | [f] Customer: %s Category: %s Country: %s | [d] Date: %s",
		len(m.txs),
		activeStyle(orAny(m.filter.CustomerID)),
		activeStyle(orAny(m.filter.Category)),
		activeStyle(orAny(m.filter.Country)),
		activeStyle(dateLabels[m.dateFilterIdx]),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	if m.state != listStateBrowse && m.form != nil {
		title := "Filter Transactions"
		if m.state == listStateDelete {
			title = "Delete Transaction"
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(fmt.Sprintf("%s\n\n%s", title, m.form.View()))

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orAny(s *string) string {
	if s == nil {
		return "any"
	}
	return *s
}

func (m *ListModel) applyDateFilter(now time.Time) {
	switch m.dateFilterIdx {
	case 1:
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		e := s.AddDate(0, 1, 0).Add(-time.Nanosecond)
		m.filter.StartDate = &s
		m.filter.EndDate = &e
	case 2:
		s := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		e := s.AddDate(0, 1, 0).Add(-time.Nanosecond)
		m.filter.StartDate = &s
		m.filter.EndDate = &e
	default:
		m.filter.StartDate = nil
		m.filter.EndDate = nil
	}
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		rows = append(rows, table.Row{
			tx.ID,
			FormatDate(tx.Date),
			tx.CustomerID,
			FormatAmount(tx.Amount),
			strconv.Itoa(tx.Quantity),
			tx.Category,
			tx.PaymentMethod,
			tx.Country,
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadListMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m ListModel) loadTxsCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.List(ctx, filter)
		return loadListMsg{txs: txs, err: err}
	}
}

type listDeleteMsg struct {
	id  string
	err error
}

func (m ListModel) deleteCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	id := m.txs[idx].ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return listDeleteMsg{id: id, err: m.txService.Delete(ctx, id)}
	}
}
