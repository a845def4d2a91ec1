package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jobsift/jobsift/internal/cache"
	"github.com/jobsift/jobsift/internal/model"
)

// Lines per entry in the list pane (title + subtitle + blank separator).
const entryItemHeight = 3

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	entryTitleStyle = lipgloss.NewStyle().
			Bold(true)

	entrySubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedEntryTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedEntrySubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

type browseModel struct {
	entries       []cache.Entry
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=list, 1=detail
	cursor        int
	pinned        int // entry whose detail stays in the right pane, -1 follows the cursor
	width         int
	height        int
	ready         bool
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "left", "right":
			m.activePane = 1 - m.activePane
			m.recalcContent()
			return m, nil
		case "up", "k", "down", "j":
			if m.activePane == 1 {
				break
			}
			delta := 1
			if s := msg.String(); s == "up" || s == "k" {
				delta = -1
			}
			m.cursor = clamp(m.cursor+delta, 0, max(len(m.entries)-1, 0))
			m.recalcContent()
			m.ensureCursorVisible()
			return m, nil
		case "enter":
			if m.pinned == m.cursor {
				m.pinned = -1
			} else {
				m.pinned = m.cursor
			}
			m.recalcContent()
			return m, nil
		}

		// Forward remaining keys (pgup/pgdn/home/end, detail scrolling) to the
		// active viewport.
		var cmd tea.Cmd
		if m.activePane == 0 {
			m.leftViewport, cmd = m.leftViewport.Update(msg)
		} else {
			m.rightViewport, cmd = m.rightViewport.Update(msg)
		}
		return m, cmd
	}

	return m, nil
}

func (m *browseModel) ensureCursorVisible() {
	cursorTop := m.cursor * entryItemHeight
	cursorBottom := cursorTop + entryItemHeight - 1

	if cursorTop < m.leftViewport.YOffset {
		m.leftViewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.leftViewport.YOffset+m.leftViewport.Height {
		m.leftViewport.SetYOffset(cursorBottom - m.leftViewport.Height + 1)
	}
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	m.leftViewport.SetContent(renderEntries(m.entries, m.cursor, m.activePane == 0))
	m.rightViewport.SetContent(m.renderDetail())
}

// detailIndex is the entry shown in the right pane: the pinned one if any,
// otherwise whatever the cursor is on.
func (m browseModel) detailIndex() int {
	if m.pinned >= 0 && m.pinned < len(m.entries) {
		return m.pinned
	}
	return m.cursor
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" Cache Entries (%d)", len(m.entries))
	rightHeader := " Result Detail"
	if m.pinned >= 0 {
		rightHeader += " (pinned)"
	}

	var leftHeaderRendered, rightHeaderRendered string
	var leftBorder, rightBorder lipgloss.Style

	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		rightHeaderRendered = inactiveHeaderStyle.Render(rightHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
		rightBorder = inactiveBorderStyle.Width(paneWidth)
	} else {
		leftHeaderRendered = inactiveHeaderStyle.Render(leftHeader)
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		leftBorder = inactiveBorderStyle.Width(paneWidth)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	leftPane := leftBorder.Render(m.leftViewport.View())
	rightPane := rightBorder.Render(m.rightViewport.View())

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, " ", rightPane)

	analyzed, lowConf := 0, 0
	for _, e := range m.entries {
		switch e.Result.Status {
		case model.StatusAnalyzed:
			analyzed++
		case model.StatusLowConfidence:
			lowConf++
		}
	}
	statusText := fmt.Sprintf(" %d entries | %d analyzed | %d low-confidence    ←/→/Tab switch  ↑/↓ cursor  Enter pin  q quit",
		len(m.entries), analyzed, lowConf)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	if len(m.entries) == 0 {
		return "  (cache is empty)"
	}
	e := m.entries[m.detailIndex()]
	r := e.Result

	var b strings.Builder
	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Fingerprint", e.Fingerprint)
	addField("Status", string(r.Status))
	addField("Analyzed At", r.AnalyzedAt.Local().Format("2006-01-02 15:04"))
	addField("Cached", humanize.Time(e.CreatedAt))
	addField("Size", humanize.Bytes(uint64(e.SizeBytes)))

	wrapWidth := max(m.rightViewport.Width-4, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	b.WriteByte('\n')
	b.WriteString(divider("── Salary ") + "\n\n")
	switch {
	case r.Salary != nil:
		addField("Range", formatSalaryRange(r.Salary))
		addField("Confidence", fmt.Sprintf("%.0f%%", r.Salary.Confidence*100))
	case r.Status == model.StatusLowConfidence:
		b.WriteString(hintStyle.Render("  estimate discarded: below confidence threshold") + "\n")
	default:
		b.WriteString(hintStyle.Render("  no salary information detected") + "\n")
	}

	if sim := r.Similarity; sim != nil {
		b.WriteByte('\n')
		b.WriteString(divider("── Resume Match ") + "\n\n")
		addField("Score", fmt.Sprintf("%.2f", sim.Score))
		if sim.Explanation != "" {
			b.WriteByte('\n')
			b.WriteString(detailValueStyle.Render(wordWrap(sim.Explanation, wrapWidth)) + "\n")
		}
		if len(sim.KeyMatches) > 0 {
			b.WriteByte('\n')
			b.WriteString(detailLabelStyle.Render("Matches") + "\n")
			for _, km := range sim.KeyMatches {
				b.WriteString(detailValueStyle.Render("  • "+km) + "\n")
			}
		}
		if len(sim.MissingRequirements) > 0 {
			b.WriteByte('\n')
			b.WriteString(detailLabelStyle.Render("Missing") + "\n")
			for _, mr := range sim.MissingRequirements {
				b.WriteString(detailValueStyle.Render("  • "+mr) + "\n")
			}
		}
	}

	return b.String()
}

func formatSalaryRange(est *model.SalaryEstimate) string {
	currency := est.Currency
	if currency == "" {
		currency = "USD"
	}
	lo := humanize.Comma(int64(est.Min))
	hi := humanize.Comma(int64(est.Max))
	if lo == hi {
		return fmt.Sprintf("%s %s", currency, lo)
	}
	return fmt.Sprintf("%s %s - %s", currency, lo, hi)
}

func renderEntries(entries []cache.Entry, cursor int, isActive bool) string {
	if len(entries) == 0 {
		return "  (no entries)"
	}

	var b strings.Builder
	for i, e := range entries {
		isSelected := isActive && i == cursor

		titleSt := entryTitleStyle
		subtitleSt := entrySubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedEntryTitleStyle
			subtitleSt = selectedEntrySubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(fmt.Sprintf("%s  %s", shortFingerprint(e.Fingerprint), e.Result.Status)))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s", humanize.Time(e.CreatedAt), humanize.Bytes(uint64(e.SizeBytes)))))
		b.WriteByte('\n')

		if i < len(entries)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RunBrowser launches the interactive split-pane cache browser.
func RunBrowser(entries []cache.Entry) error {
	m := browseModel{entries: entries, pinned: -1}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
