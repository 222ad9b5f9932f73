package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

// Window is the transaction date range an analysis run is computed over.
type Window int

const (
	WindowAll Window = iota
	WindowLast12Months
	WindowLast6Months
	WindowLast3Months
	WindowCustom
)

func (w Window) String() string {
	switch w {
	case WindowAll:
		return "All Transactions"
	case WindowLast12Months:
		return "Last 12 Months"
	case WindowLast6Months:
		return "Last 6 Months"
	case WindowLast3Months:
		return "Last 3 Months"
	case WindowCustom:
		return "Custom Range"
	}

	return "Unknown"
}

func (w Window) months() int {
	switch w {
	case WindowLast12Months:
		return 12
	case WindowLast6Months:
		return 6
	case WindowLast3Months:
		return 3
	}

	return 0
}

// WindowRange resolves a relative window against now. Ok is false for
// WindowAll and WindowCustom.
func WindowRange(w Window, now time.Time) (start, end time.Time, ok bool) {
	n := w.months()
	if n == 0 {
		return time.Time{}, time.Time{}, false
	}

	start, end = normalizeDateRange(now.AddDate(0, -n, 1), now)

	return start, end, true
}

// normalizeDateRange widens the range to whole UTC days.
func normalizeDateRange(start, end time.Time) (time.Time, time.Time) {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		transaction.EndOfDay(time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC))
}

// WindowSelectedMsg is emitted once a valid range is chosen.
// Start and End are zero values when All is true.
type WindowSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

type windowState int

const (
	windowStateSelect windowState = iota
	windowStateCustom
)

// WindowPicker selects the date range of an analysis run.
type WindowPicker struct {
	state    windowState
	selected Window
	now      func() time.Time

	startInput textinput.Model
	endInput   textinput.Model
	focusIndex int

	err error
}

func NewWindowPicker() WindowPicker {
	si := textinput.New()
	si.Placeholder = "YYYY-MM-DD"
	si.CharLimit = 10
	si.Width = 12
	si.Prompt = "Start Date: "

	ei := textinput.New()
	ei.Placeholder = "YYYY-MM-DD"
	ei.CharLimit = 10
	ei.Width = 12
	ei.Prompt = "End Date:   "

	return WindowPicker{
		state:      windowStateSelect,
		selected:   WindowAll,
		now:        time.Now,
		startInput: si,
		endInput:   ei,
	}
}

func (m WindowPicker) Init() tea.Cmd {
	return nil
}

func (m WindowPicker) Update(msg tea.Msg) (WindowPicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case windowStateSelect:
			return m.updateSelect(keyMsg)
		case windowStateCustom:
			if next, cmd, handled := m.updateCustom(keyMsg); handled {
				return next, cmd
			}
		}
	}

	if m.state == windowStateCustom {
		return m.updateInputs(msg)
	}

	return m, nil
}

func (m WindowPicker) updateSelect(msg tea.KeyMsg) (WindowPicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > WindowAll {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < WindowCustom {
			m.selected++
		}
	case tea.KeyEnter:
		if m.selected == WindowCustom {
			m.state = windowStateCustom
			m.startInput.Focus()
			m.focusIndex = 0
			return m, textinput.Blink
		}

		start, end, ok := WindowRange(m.selected, m.now())
		return m, func() tea.Msg {
			return WindowSelectedMsg{Start: start, End: end, All: !ok}
		}
	}

	return m, nil
}

func (m WindowPicker) updateCustom(msg tea.KeyMsg) (WindowPicker, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focusIndex = (m.focusIndex + 1) % 2
		m.startInput.Blur()
		m.endInput.Blur()
		if m.focusIndex == 0 {
			m.startInput.Focus()
			return m, textinput.Blink, true
		}
		m.endInput.Focus()
		return m, textinput.Blink, true

	case "enter":
		start, end, err := parseCustomRange(m.startInput.Value(), m.endInput.Value())
		if err != nil {
			m.err = err
			return m, nil, true
		}

		m.err = nil
		return m, func() tea.Msg {
			return WindowSelectedMsg{Start: start, End: end}
		}, true

	case "esc":
		m.state = windowStateSelect
		m.err = nil
		return m, nil, true
	}

	return m, nil, false
}

func parseCustomRange(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, startValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date (YYYY-MM-DD)")
	}

	end, err := time.Parse(time.DateOnly, endValue)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date (YYYY-MM-DD)")
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date is before start date")
	}

	start, end = normalizeDateRange(start, end)

	return start, end, nil
}

func (m WindowPicker) updateInputs(msg tea.Msg) (WindowPicker, tea.Cmd) {
	var cmds []tea.Cmd
	var c tea.Cmd

	m.startInput, c = m.startInput.Update(msg)
	cmds = append(cmds, c)
	m.endInput, c = m.endInput.Update(msg)
	cmds = append(cmds, c)

	return m, tea.Batch(cmds...)
}

func (m WindowPicker) View() string {
	errStr := ""
	if m.err != nil {
		errStr = "\n\n" + errorText(m.err)
	}

	if m.state == windowStateCustom {
		return fmt.Sprintf(
			"Enter Custom Range:\n\n%s\n%s\n\n(Enter to confirm, Tab to switch, Esc to back)%s",
			m.startInput.View(),
			m.endInput.View(),
			errStr,
		)
	}

	s := "Analyze Transactions From:\n\n"
	for w := WindowAll; w <= WindowCustom; w++ {
		cursor := " "
		line := w.String()
		if m.selected == w {
			cursor = ">"
			line = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(line)
		}
		s += fmt.Sprintf("%s %s\n", cursor, line)
	}
	s += "\n(Enter to select, Esc to back)"

	return s + errStr
}

// IsSelecting reports whether the picker is showing the window list rather than the custom inputs.
func (m WindowPicker) IsSelecting() bool {
	return m.state == windowStateSelect
}

func (m *WindowPicker) Reset() {
	m.state = windowStateSelect
	m.selected = WindowAll
	m.err = nil
	m.startInput.SetValue("")
	m.endInput.SetValue("")
}
