// Package tui provides a Bubble Tea TUI for browsing RUM session reports.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/rumsession/internal/report"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	kindViewStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	kindActionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindResourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)

	activeBadgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabSessions
	tabViews
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{"Summary", "Sessions", "Views", "Timeline"}

// ── Timeline entries ───────────────────

type entryKind string

const (
	kindViewStart entryKind = "VIEW"
	kindViewEnd   entryKind = "END"
	kindAction    entryKind = "ACTION"
)

type timelineEntry struct {
	ts      time.Time
	kind    entryKind
	session int
	text    string
}

// viewRef locates a view inside the report.
type viewRef struct {
	session int
	view    int
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	report    *report.Report
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	timeline  []timelineEntry
	// Views tab: every view of every session, cursor and expanded set
	views         []viewRef
	viewCursor    int
	expandedViews map[int]bool
}

// New creates a new TUI model for the given report and source filename.
func New(r *report.Report, filename string) Model {
	m := Model{
		report:        r,
		filename:      filepath.Base(filename),
		sortAsc:       true,
		expandedViews: make(map[int]bool),
	}
	for si, s := range r.Sessions {
		for vi := range s.Views {
			m.views = append(m.views, viewRef{session: si, view: vi})
		}
	}
	m.timeline = buildTimeline(r)
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.rebuildTimelineViewport()
			}
		case "up", "k":
			if m.activeTab == tabViews && m.viewCursor > 0 {
				m.viewCursor--
				m.rebuildViewsViewport()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabViews && m.viewCursor < len(m.views)-1 {
				m.viewCursor++
				m.rebuildViewsViewport()
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabViews && len(m.views) > 0 {
				if m.expandedViews[m.viewCursor] {
					delete(m.expandedViews, m.viewCursor)
				} else {
					m.expandedViews[m.viewCursor] = true
				}
				m.rebuildViewsViewport()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  rumsession  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-4 jump  q quit"
	if m.activeTab == tabTimeline {
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	}
	if m.activeTab == tabViews {
		hint += "  ↑/↓ select  enter expand/collapse"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildTimelineViewport() {
	m.viewports[tabTimeline].SetContent(m.renderTab(tabTimeline))
	m.viewports[tabTimeline].GotoTop()
}

func (m *Model) rebuildViewsViewport() {
	m.viewports[tabViews].SetContent(m.renderTab(tabViews))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabSessions:
		return m.renderSessions()
	case tabViews:
		return m.renderViews()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func bullet(text string) string {
	return bulletStyle.Render("  •") + "  " + text + "\n"
}

func row(sb *strings.Builder, label, value string) {
	sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", label)) + "  " + value + "\n")
}

func (m *Model) renderSummary() string {
	r := m.report
	var sb strings.Builder
	sb.WriteString(heading("Report Summary"))

	app := r.ApplicationID
	if app == "" {
		app = "(unknown)"
	}
	row(&sb, "Application:", app)
	row(&sb, "Events:", fmt.Sprintf("%d", r.Events))
	row(&sb, "Sessions:", fmt.Sprintf("%d", len(r.Sessions)))
	row(&sb, "Views:", fmt.Sprintf("%d", len(m.views)))

	if len(r.Sessions) > 0 {
		first := r.Sessions[0].Start
		last := r.Sessions[0].End()
		errors := 0
		for _, s := range r.Sessions {
			if s.Start.Before(first) {
				first = s.Start
			}
			if s.End().After(last) {
				last = s.End()
			}
			errors += s.Errors
		}
		row(&sb, "Errors:", fmt.Sprintf("%d", errors))
		row(&sb, "First view:", first.UTC().Format("2006-01-02 15:04:05.000 MST"))
		row(&sb, "Last seen:", last.UTC().Format("2006-01-02 15:04:05.000 MST"))
	}
	return sb.String()
}

func (m *Model) renderSessions() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Sessions (%d)", len(m.report.Sessions))))
	if len(m.report.Sessions) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for i, s := range m.report.Sessions {
		sb.WriteString(sectionHeader.Render(fmt.Sprintf("  %d. %s", i+1, s.ID)) + "\n")
		row(&sb, "Precondition:", orDash(s.Precondition))
		row(&sb, "Start:", timeStyle.Render(s.Start.UTC().Format("15:04:05.000")))
		row(&sb, "Duration:", s.Duration.String())
		row(&sb, "TTID:", formatDuration(s.TTID))
		row(&sb, "Errors:", fmt.Sprintf("%d", s.Errors))
		row(&sb, "Views:", strings.Join(s.ViewNames(), " → "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderViews() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Views (%d)", len(m.views))))
	if len(m.views) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for i, ref := range m.views {
		v := m.report.Sessions[ref.session].Views[ref.view]
		ts := timeStyle.Render(v.Start.UTC().Format("15:04:05.000"))

		toggle := dimStyle.Render("  ▶ ")
		if m.expandedViews[i] {
			toggle = dimStyle.Render("  ▼ ")
		}
		state := dimStyle.Render("stopped")
		if v.IsActive {
			state = activeBadgeStyle.Render("active")
		}

		line := fmt.Sprintf("%s%s  S%d  %-20s %10s  %s", toggle, ts, ref.session+1, v.Name, v.TimeSpent, state)
		if i == m.viewCursor {
			line = selectedRowStyle.Width(m.width - 2).Render(line)
		}
		sb.WriteString(line + "\n")

		if m.expandedViews[i] {
			sb.WriteString(renderViewDetails(v))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderViewDetails lists a view's metrics, actions and resources.
func renderViewDetails(v report.View) string {
	var sb strings.Builder
	sb.WriteString("\n")
	row(&sb, "URL:", orDash(v.URL))
	row(&sb, "Version:", fmt.Sprintf("%d", v.DocumentVersion))
	row(&sb, "Loading time:", formatDuration(v.LoadingTime))
	row(&sb, "TNS:", formatDuration(v.NetworkSettledTime))
	row(&sb, "INV:", formatDuration(v.InteractionToNextViewTime))
	row(&sb, "Counts:", fmt.Sprintf("%d actions, %d resources, %d errors, %d long tasks",
		v.ActionCount, v.ResourceCount, v.ErrorCount, v.LongTaskCount))
	if len(v.Actions) > 0 {
		sb.WriteString(heading("Actions"))
		for _, a := range v.Actions {
			sb.WriteString(bullet(fmt.Sprintf("%s  %s %s (%s)",
				timeStyle.Render(a.Date.UTC().Format("15:04:05.000")), a.Type, a.Name, formatDuration(a.LoadingTime))))
		}
	}
	if len(v.Resources) > 0 {
		sb.WriteString(heading("Resources"))
		for _, r := range v.Resources {
			status := "-"
			if r.StatusCode != 0 {
				status = fmt.Sprintf("%d", r.StatusCode)
			}
			sb.WriteString(bullet(fmt.Sprintf("%s %s  %s  %s", r.Method, r.URL, status, r.Duration)))
		}
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder

	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))

	entries := make([]timelineEntry, len(m.timeline))
	copy(entries, m.timeline)
	if m.sortAsc {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts.Before(entries[j].ts) })
	} else {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts.After(entries[j].ts) })
	}

	if len(entries) == 0 {
		sb.WriteString(dimStyle.Render("  (no views in this report)") + "\n")
		return sb.String()
	}

	for _, e := range entries {
		ts := timeStyle.Render(e.ts.UTC().Format("15:04:05.000"))
		var badge string
		switch e.kind {
		case kindViewStart, kindViewEnd:
			badge = kindViewStyle.Render(fmt.Sprintf("  %-8s", string(e.kind)))
		case kindAction:
			badge = kindActionStyle.Render(fmt.Sprintf("  %-8s", string(e.kind)))
		}
		sess := kindResourceStyle.Render(fmt.Sprintf("S%d", e.session+1))
		sb.WriteString(ts + badge + "  " + sess + "  " + e.text + "\n")
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func buildTimeline(r *report.Report) []timelineEntry {
	var entries []timelineEntry
	for si, s := range r.Sessions {
		for _, v := range s.Views {
			entries = append(entries, timelineEntry{ts: v.Start, kind: kindViewStart, session: si, text: v.Name})
			for _, a := range v.Actions {
				text := a.Type
				if a.Name != "" {
					text += " " + a.Name
				}
				entries = append(entries, timelineEntry{ts: a.Date, kind: kindAction, session: si, text: text})
			}
			if !v.IsActive {
				entries = append(entries, timelineEntry{ts: v.End(), kind: kindViewEnd, session: si, text: v.Name})
			}
		}
	}
	return entries
}

func formatDuration(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Run starts the TUI for the given report.
func Run(r *report.Report, filename string) error {
	p := tea.NewProgram(New(r, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
