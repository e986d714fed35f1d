package cmd

import (
	"fmt"
	"time"

	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/tui"
	"github.com/denigris/emplacamentos/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Abrir o painel interativo",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	theme.SetActive(cfg.Appearance.Theme)

	today := time.Time{}
	if flagToday != "" {
		t, err := referenceDate()
		if err != nil {
			return err
		}
		today = t
	}

	// Force TrueColor so background fills always produce ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		DataPath:        flagFile,
		FallbackPath:    config.DataPath(cfg),
		NoCache:         flagNoCache,
		Filter:          activeFilter(cfg),
		Report:          reportOptions(cfg),
		AutoRefresh:     cfg.TUI.AutoRefresh,
		RefreshInterval: time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second,
		Today:           today,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("erro no painel: %w", err)
	}
	return nil
}
