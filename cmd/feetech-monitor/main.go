package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/feetech-drivers/servobus/feetech"
)

const (
	headerHeight = 2
	legendHeight = 2
	footerHeight = 7
	maxLogs      = 5
	borderSize   = 2
	listWidth    = 28
)

var palette = []string{"196", "208", "226", "46", "51", "201", "99", "135"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	listStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// servoItem is one row of the servo list panel, implementing list.Item.
type servoItem struct {
	id       int
	position float64
	load     float64
	stale    bool
}

func (s servoItem) Title() string {
	if s.stale {
		return fmt.Sprintf("servo %d (no data)", s.id)
	}
	return fmt.Sprintf("servo %d", s.id)
}

func (s servoItem) Description() string {
	if s.stale {
		return "—"
	}
	return fmt.Sprintf("pos %+.3f rad  load %+.0f%%", s.position, s.load)
}

func (s servoItem) FilterValue() string { return fmt.Sprintf("servo %d", s.id) }

type pollMsg struct {
	positions feetech.PositionMap
	loads     feetech.PositionMap
	err       error
}

type tickMsg struct{}

type model struct {
	group    *feetech.ServoGroup
	colors   map[int]string
	chart    *streamlinechart.Model
	servoList list.Model
	interval time.Duration
	width    int
	height   int
	logs     []string
	quitting bool
	lastErr  error
}

func (m *model) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *model) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - listWidth - borderSize - 4
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *model) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
	_, listHeight := m.chartSize()
	m.servoList.SetSize(listWidth, listHeight)
}

func poll(group *feetech.ServoGroup) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		positions, err := group.Positions(ctx)
		if err != nil {
			return pollMsg{err: err}
		}
		loads, err := group.ReadRegister(ctx, "present_load", feetech.Converted)
		if err != nil {
			return pollMsg{positions: positions, err: err}
		}
		return pollMsg{positions: positions, loads: feetech.PositionMap(loads)}
	}
}

func tickEvery(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{} })
}

func initialModel(group *feetech.ServoGroup, interval time.Duration) model {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-3.2, 3.2),
	)

	colors := make(map[int]string, len(group.IDs()))
	items := make([]list.Item, 0, len(group.IDs()))
	ids := append([]int(nil), group.IDs()...)
	sort.Ints(ids)
	for i, id := range ids {
		color := palette[i%len(palette)]
		colors[id] = color
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(fmt.Sprintf("servo %d", id), runes.ThinLineStyle, style)
		items = append(items, servoItem{id: id, stale: true})
	}

	delegate := list.NewDefaultDelegate()
	servoList := list.New(items, delegate, listWidth, 10)
	servoList.Title = "Servos"
	servoList.SetShowStatusBar(false)
	servoList.SetShowHelp(false)
	servoList.SetFilteringEnabled(false)

	return model{
		group:     group,
		colors:    colors,
		chart:     &chart,
		servoList: servoList,
		interval:  interval,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(poll(m.group), tickEvery(m.interval), tea.EnterAltScreen)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.servoList, cmd = m.servoList.Update(msg)
		return m, cmd

	case tickMsg:
		return m, tea.Batch(poll(m.group), tickEvery(m.interval))

	case pollMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			m.addLog(fmt.Sprintf("poll error: %v", msg.err))
			return m, nil
		}
		m.lastErr = nil
		for id, pos := range msg.positions {
			m.chart.PushDataSet(fmt.Sprintf("servo %d", id), pos)
		}
		m.chart.DrawAll()
		m.updateServoList(msg.positions, msg.loads)
	}

	return m, nil
}

func (m *model) updateServoList(positions, loads feetech.PositionMap) {
	items := m.servoList.Items()
	updated := make([]list.Item, len(items))
	for i, it := range items {
		s := it.(servoItem)
		if pos, ok := positions[s.id]; ok {
			s.position = pos
			s.stale = false
		} else {
			s.stale = true
		}
		if load, ok := loads[s.id]; ok {
			s.load = load
		}
		updated[i] = s
	}
	m.servoList.SetItems(updated)
}

func (m model) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Feetech Servo Monitor"))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	row := lipgloss.JoinHorizontal(lipgloss.Top,
		listStyle.Render(m.servoList.View()),
		chartStyle.Render(m.chart.View()),
	)
	sb.WriteString(row)
	sb.WriteString("\n")

	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)

	var logLines string
	switch {
	case m.lastErr != nil:
		logLines = errorStyle.Render(m.lastErr.Error())
	case len(m.logs) == 0:
		logLines = statusStyle.Render("Press 'q' to quit")
	default:
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m model) renderLegend() string {
	ids := append([]int(nil), m.group.IDs()...)
	sort.Ints(ids)
	var items []string
	for _, id := range ids {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.colors[id])).Bold(true)
		items = append(items, style.Render("━━")+fmt.Sprintf(" servo %d", id))
	}
	return strings.Join(items, "  ")
}

func main() {
	var (
		port = flag.String("port", "", "serial port device")
		baud = flag.Int("baud", 1_000_000, "baud rate")
		ids  = flag.String("ids", "1", "comma-separated servo IDs to monitor")
		hz   = flag.Int("hz", 20, "poll frequency")
	)
	flag.Parse()

	if *port == "" {
		fmt.Fprintln(os.Stderr, "missing -port")
		os.Exit(1)
	}

	idList, err := parseIDs(*ids)
	if err != nil {
		log.Fatalf("invalid -ids: %v", err)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{Port: *port, BaudRate: *baud})
	if err != nil {
		log.Fatalf("failed to open bus: %v", err)
	}
	defer bus.Close()

	group := feetech.NewServoGroupByIDs(bus, idList)
	interval := time.Second / time.Duration(*hz)

	p := tea.NewProgram(initialModel(group, interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("error running program: %v", err)
	}
}

func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(part, "%d", &id); err != nil {
			return nil, fmt.Errorf("bad id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids given")
	}
	return ids, nil
}
