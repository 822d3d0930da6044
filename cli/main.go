package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)
)

// Model defines the application state
type Model struct {
	mainMenu    list.Model
	floorView   table.Model
	kitchenView table.Model
	spinner     spinner.Model
	client      *ApiClient
	stats       map[string]interface{}
	currentView string
	error       string
}

// item represents a list item
type item struct {
	title, desc string
}

// FilterValue implements list.Item interface
func (i item) FilterValue() string { return i.title }

// Title implements list.Item interface
func (i item) Title() string { return i.title }

// Description implements list.Item interface
func (i item) Description() string { return i.desc }

// Initialize the model
func initialModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	items := []list.Item{
		item{title: "Floor", desc: "View the current table map"},
		item{title: "Kitchen", desc: "View the undelivered ticket queue"},
		item{title: "Stats", desc: "Gateway and reconciliation stats"},
		item{title: "Refresh All", desc: "Mark every cached view stale"},
		item{title: "Exit", desc: "Exit the terminal"},
	}

	mainMenu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "Comanda Terminal"

	floorTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Mesa", Width: 6},
			{Title: "Capacidad", Width: 10},
			{Title: "Estado", Width: 22},
			{Title: "Cuenta", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	kitchenTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Pedido", Width: 8},
			{Title: "Mesa", Width: 6},
			{Title: "Platillo", Width: 24},
			{Title: "Cant", Width: 5},
			{Title: "Estado", Width: 12},
			{Title: "Espera", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return Model{
		mainMenu:    mainMenu,
		floorView:   floorTable,
		kitchenView: kitchenTable,
		spinner:     s,
		client:      NewApiClient(),
		currentView: "main",
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tea.EnterAltScreen)
}

// Update handles UI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			if m.currentView == "main" {
				selected, ok := m.mainMenu.SelectedItem().(item)
				if ok {
					switch selected.title {
					case "Exit":
						return m, tea.Quit
					case "Floor":
						m.currentView = "floor"
						return m, fetchTables(m.client, false)
					case "Kitchen":
						m.currentView = "kitchen"
						return m, fetchKitchen(m.client, false)
					case "Stats":
						m.currentView = "stats"
						return m, fetchStats(m.client)
					case "Refresh All":
						return m, refreshAll(m.client)
					}
				}
			}
		case "esc":
			if m.currentView != "main" {
				m.currentView = "main"
				m.error = ""
			}
		case "r":
			// manual refresh; the only path for non-kitchen views while the
			// push channel is down
			switch m.currentView {
			case "floor":
				return m, fetchTables(m.client, true)
			case "kitchen":
				return m, fetchKitchen(m.client, true)
			case "stats":
				return m, fetchStats(m.client)
			}
		}
	case tablesMsg:
		m.error = ""
		m.floorView.SetRows(tableRows(msg.tables))
		return m, nil
	case kitchenMsg:
		m.error = ""
		m.kitchenView.SetRows(ticketRows(msg.tickets))
		return m, nil
	case statsMsg:
		m.error = ""
		m.stats = msg.stats
		return m, nil
	case errorMsg:
		m.error = msg.err
		return m, nil
	case confirmMsg:
		m.error = ""
		return m, nil
	}

	var cmd tea.Cmd
	switch m.currentView {
	case "main":
		m.mainMenu, cmd = m.mainMenu.Update(msg)
	case "floor":
		m.floorView, cmd = m.floorView.Update(msg)
	case "kitchen":
		m.kitchenView, cmd = m.kitchenView.Update(msg)
	}

	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	help := "\nPress 'r' to refresh, 'esc' to go back\n"
	if m.error != "" {
		help += errorStyle.Render(m.error) + "\n"
	}

	switch m.currentView {
	case "main":
		return docStyle.Render(m.mainMenu.View())
	case "floor":
		return docStyle.Render(titleStyle.Render("Floor") + "\n\n" + m.floorView.View() + help)
	case "kitchen":
		return docStyle.Render(titleStyle.Render("Kitchen Queue") + "\n\n" + m.kitchenView.View() + help)
	case "stats":
		return docStyle.Render(titleStyle.Render("Stats") + "\n\n" + statsView(m.stats) + help)
	default:
		return "Loading..."
	}
}

// Custom message types for the tea.Model
type tablesMsg struct {
	tables []Table
}

type kitchenMsg struct {
	tickets []Ticket
}

type statsMsg struct {
	stats map[string]interface{}
}

type errorMsg struct {
	err string
}

type confirmMsg struct {
	message string
}

// fetchTables retrieves the floor snapshot from the gateway
func fetchTables(client *ApiClient, refresh bool) tea.Cmd {
	return func() tea.Msg {
		tables, err := client.GetTables(refresh)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching tables: %v", err)}
		}
		return tablesMsg{tables: tables}
	}
}

// fetchKitchen retrieves the ticket queue from the gateway
func fetchKitchen(client *ApiClient, refresh bool) tea.Cmd {
	return func() tea.Msg {
		tickets, err := client.GetKitchen(refresh)
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching kitchen queue: %v", err)}
		}
		return kitchenMsg{tickets: tickets}
	}
}

// fetchStats retrieves the gateway stats view
func fetchStats(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		stats, err := client.GetStats()
		if err != nil {
			return errorMsg{err: fmt.Sprintf("Error fetching stats: %v", err)}
		}
		return statsMsg{stats: stats}
	}
}

// refreshAll asks the gateway to mark every cached view stale
func refreshAll(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		if err := client.RefreshAll(); err != nil {
			return errorMsg{err: fmt.Sprintf("Error refreshing: %v", err)}
		}
		return confirmMsg{message: "All views marked stale"}
	}
}

// tableRows converts tables into rows for the floor view
func tableRows(tables []Table) []table.Row {
	rows := make([]table.Row, len(tables))
	for i, t := range tables {
		account := "-"
		if t.ActiveAccountID != nil {
			account = fmt.Sprintf("#%d", *t.ActiveAccountID)
		}
		state := t.State
		if t.ParentTableID != nil {
			state = fmt.Sprintf("%s (mesa %d)", t.State, *t.ParentTableID)
		}
		rows[i] = table.Row{
			fmt.Sprintf("%d", t.Number),
			fmt.Sprintf("%d", t.Capacity),
			state,
			account,
		}
	}
	return rows
}

// ticketRows converts tickets into rows for the kitchen view
func ticketRows(tickets []Ticket) []table.Row {
	rows := make([]table.Row, len(tickets))
	for i, t := range tickets {
		wait := "-"
		if !t.CreatedAt.IsZero() {
			wait = time.Since(t.CreatedAt).Round(time.Minute).String()
		}
		rows[i] = table.Row{
			fmt.Sprintf("#%d", t.ID),
			fmt.Sprintf("%d", t.TableNumber),
			t.DishName,
			fmt.Sprintf("%d", t.Quantity),
			t.State,
			wait,
		}
	}
	return rows
}

// statsView renders the stats map in key order
func statsView(stats map[string]interface{}) string {
	if stats == nil {
		return "No stats loaded yet. Press 'r'.\n"
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var view string
	for _, k := range keys {
		view += fmt.Sprintf("%s: %v\n", k, stats[k])
	}
	if degraded, ok := stats["degraded"].(bool); ok && degraded {
		view += "\n" + infoStyle.Render("Push channel down: refresh views manually") + "\n"
	}
	return view
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}
