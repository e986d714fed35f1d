// Package tui provides the interactive Bubble Tea dashboard for emplac.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/denigris/emplacamentos/internal/cadence"
	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/store"
	"github.com/denigris/emplacamentos/internal/tui/components"
	"github.com/denigris/emplacamentos/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// DataLoadedMsg is sent when the initial load finishes.
type DataLoadedMsg struct {
	Dataset  *pipeline.Dataset
	Err      error
	LoadTime time.Duration
}

// ProgressMsg reports workbook parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background reload completes.
type RefreshDataMsg struct {
	Dataset  *pipeline.Dataset
	Err      error
	LoadTime time.Duration
}

// Options configures a dashboard run.
type Options struct {
	// DataPath is an explicit workbook or directory; empty restores the
	// active dataset and falls back to FallbackPath.
	DataPath     string
	FallbackPath string
	NoCache      bool

	Filter pipeline.Filter
	Report pipeline.ReportOptions

	AutoRefresh     bool
	RefreshInterval time.Duration

	// Today pins the reference date; zero uses the wall clock.
	Today time.Time
}

const (
	tabSearch = iota
	tabSummary
	tabFilters
)

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	dataset  *pipeline.Dataset
	loaded   bool
	loadErr  error
	loadTime time.Duration

	// Pre-computed for the current filter
	filter   pipeline.Filter
	filtered []model.Registration
	stats    model.SummaryStats
	years    []model.YearCount
	pivot    model.BrandYearTable
	brands   []string // options across the whole dataset
	segments []string

	// Auto-refresh state
	lastRefresh time.Time
	refreshing  bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	flash     string
	flashErr  bool

	// Per-tab state
	search  searchState
	filters filtersState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	// Loading: progress and completion arrive through loadSub
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
)

// loadConfigOrDefault loads config, returning defaults on error so the
// dashboard can always start.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates a new dashboard model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 30 * time.Second
	}

	return App{
		opts:      opts,
		filter:    opts.Filter,
		search:    newSearchState(),
		needSetup: !config.Exists(),
		spinner:   sp,
		loadSub:   make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

func (a App) today() time.Time {
	if !a.opts.Today.IsZero() {
		return cadence.Today(a.opts.Today)
	}
	return cadence.Today(time.Now())
}

// recompute derives everything the tabs show from the dataset and filter.
func (a *App) recompute() {
	var all []model.Registration
	if a.dataset != nil {
		all = a.dataset.Records
	}
	a.brands, a.segments = pipeline.FilterOptions(all)
	a.filtered = pipeline.ApplyFilter(all, a.filter)
	a.stats = pipeline.Summarize(a.filtered)
	a.years = pipeline.CountByYear(a.filtered)
	a.pivot = pipeline.BrandYearPivot(a.filtered)
	a.filters.clamp(len(a.brands) + len(a.segments))

	if a.search.query != "" {
		a.runSearch(a.search.query)
	}
}

// setDataset swaps in a freshly loaded dataset.
func (a *App) setDataset(ds *pipeline.Dataset, took time.Duration) {
	a.dataset = ds
	a.loadTime = took
	a.lastRefresh = time.Now()
	a.recompute()
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || (a.needSetup && a.setupForm != nil) {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return a, tea.Quit
		}

		if a.needSetup && a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		if !a.loaded {
			if key == "q" {
				return a, tea.Quit
			}
			return a, nil
		}

		if a.activeTab == tabSearch && a.search.input.Focused() {
			return a.updateSearchInput(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		a.flash = ""

		switch a.activeTab {
		case tabSearch:
			if m, cmd, ok := a.updateSearchKeys(key); ok {
				return m, cmd
			}
		case tabFilters:
			if m, cmd, ok := a.updateFilterKeys(key); ok {
				return m, cmd
			}
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "u":
			if !a.refreshing {
				a.refreshing = true
				return a, refreshDataCmd(a.opts, a.currentPath())
			}
			return a, nil
		case "A":
			a.opts.AutoRefresh = !a.opts.AutoRefresh
			cfg := loadConfigOrDefault()
			cfg.TUI.AutoRefresh = a.opts.AutoRefresh
			_ = config.Save(cfg)
			return a, nil
		case "left":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
			return a, nil
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
			return a, nil
		}
		if len(key) == 1 {
			if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
				a.activeTab = idx
			}
		}
		return a, nil

	case DataLoadedMsg:
		a.loaded = true
		a.loadErr = msg.Err
		if msg.Dataset != nil {
			a.setDataset(msg.Dataset, msg.LoadTime)
		} else {
			a.recompute()
		}

		if a.needSetup {
			a.setupVals = DefaultSetupValues(loadConfigOrDefault())
			a.setupForm = NewSetupForm(len(a.filtered), &a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		if msg.Err != nil {
			a.flash, a.flashErr = "Falha ao recarregar: "+msg.Err.Error(), true
			return a, nil
		}
		a.loadErr = nil
		a.setDataset(msg.Dataset, msg.LoadTime)
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.opts.AutoRefresh && !a.refreshing && a.currentPath() != "" &&
			time.Since(a.lastRefresh) >= a.opts.RefreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.opts, a.currentPath()))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.search.input.Focused() {
		var cmd tea.Cmd
		a.search.input, cmd = a.search.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// currentPath is the file or directory a reload reads; empty for uploads.
func (a App) currentPath() string {
	if a.dataset != nil && a.dataset.Path != "" {
		return a.dataset.Path
	}
	return a.opts.DataPath
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabSearch && a.search.scroll > 0 {
			a.search.scroll--
		}
		return a, nil
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabSearch {
			a.search.scroll++
		}
		return a, nil
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionRelease && msg.Y == 0 {
			if idx := a.tabAtX(msg.X); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal estreito demais (%d colunas)\n\n  O emplac precisa de pelo menos %d colunas.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ emplac"))
	b.WriteString(subtitleStyle.Render(" · Emplacamentos Comercial De Nigris"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := min(max(a.width-30, 20), 40)
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Lendo planilhas\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(a.progress)))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(a.progressMax)))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Procurando planilhas..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navegação", []struct{ key, desc string }{
			{"b r f", "Ir para Busca, Resumo, Filtros"},
			{"← →", "Aba anterior / próxima"},
			{"j k", "Mover na lista"},
			{"J K", "Rolar o relatório"},
		}},
		{"Ações", []struct{ key, desc string }{
			{"/", "Buscar nome, CNPJ ou placa"},
			{"Espaço", "Marcar filtro"},
			{"c", "Limpar filtros"},
			{"s", "Salvar filtros como padrão"},
			{"u", "Recarregar planilha"},
			{"A", "Liga/desliga recarga automática"},
			{"?", "Ajuda"},
			{"q", "Sair"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Atalhos"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			b.WriteString("  ")
			b.WriteString(keyStyle.Width(10).Render(bind.key))
			b.WriteString(descStyle.Render(bind.desc))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Qualquer tecla fecha"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)

	status := components.Status{
		Reloading:  a.refreshing,
		Filtered:   !a.filter.Empty(),
		Message:    a.flash,
		MessageErr: a.flashErr,
	}
	if a.dataset != nil {
		status.Source = a.dataset.SourceName
		status.Records = cli.FormatNumber(len(a.filtered))
		status.LoadTime = fmt.Sprintf("%.1fs", a.loadTime.Seconds())
	}
	statusBar := components.RenderStatusBar(w, status)

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.dataset == nil:
		content = a.renderNoData(cw)
	case a.activeTab == tabSearch:
		content = a.renderSearchTab(cw, contentH)
	case a.activeTab == tabSummary:
		content = a.renderSummaryTab(cw)
	case a.activeTab == tabFilters:
		content = a.renderFiltersTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderNoData(cw int) string {
	t := theme.Active
	body := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(model.NoDataMessage)
	if a.loadErr != nil {
		body += "\n\n" + lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render(a.loadErr.Error())
	}
	body += "\n\n" + lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).
		Render("Use `emplac load <arquivo.xlsx>` ou `emplac tui -f <arquivo.xlsx>`.")
	return components.ContentCard("Nenhuma planilha carregada", body, cw, true)
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// openCache opens the registration cache unless the run disabled it.
// A cache that cannot be opened degrades to uncached loading.
func openCache(opts Options) *store.Cache {
	if opts.NoCache {
		return nil
	}
	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		return nil
	}
	return cache
}

// loadDataCmd starts loading in a background goroutine. It streams
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(opts Options, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking send so parsing never stalls on the UI.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			cache := openCache(opts)
			ds, err := pipeline.Open(cache, opts.DataPath, opts.FallbackPath, progressFn)
			if err == nil && cache != nil {
				_ = pipeline.Activate(cache, ds)
			}
			if cache != nil {
				_ = cache.Close()
			}
			sub <- DataLoadedMsg{Dataset: ds, Err: err, LoadTime: time.Since(start)}
		}()

		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd rereads path in the background without progress.
func refreshDataCmd(opts Options, path string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		if path == "" {
			return RefreshDataMsg{Err: pipeline.ErrNoDataset}
		}
		cache := openCache(opts)
		ds, err := pipeline.Open(cache, path, "", nil)
		if cache != nil {
			_ = cache.Close()
		}
		return RefreshDataMsg{Dataset: ds, Err: err, LoadTime: time.Since(start)}
	}
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the same widths RenderTabBar draws.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}
