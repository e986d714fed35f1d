package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/source"
	"github.com/denigris/emplacamentos/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// SetupValues is what the first-run form edits.
type SetupValues struct {
	DataFile       string
	Theme          string
	ShowPrediction bool
}

// DefaultSetupValues seeds the form from cfg.
func DefaultSetupValues(cfg config.Config) SetupValues {
	dataFile := cfg.General.DataFile
	if cfg.General.DataDir != "" {
		dataFile = cfg.General.DataDir
	}
	return SetupValues{
		DataFile:       dataFile,
		Theme:          cfg.Appearance.Theme,
		ShowPrediction: cfg.Report.ShowPrediction,
	}
}

// validateDataPath accepts an existing .xlsx workbook or a directory.
func validateDataPath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("informe o caminho da planilha")
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("não encontrado: %s", s)
	}
	if !info.IsDir() && !source.IsWorkbookName(s) {
		return errors.New("use um arquivo .xlsx ou uma pasta")
	}
	return nil
}

// NewSetupForm builds the first-run form. records is how many registrations
// the initial load found.
func NewSetupForm(records int, vals *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], len(theme.All))
	for i, t := range theme.All {
		themeOpts[i] = huh.NewOption(t.Label, t.Name)
	}

	welcome := "Nenhuma planilha carregada ainda."
	if records > 0 {
		welcome = fmt.Sprintf("%s registros de emplacamento carregados.", cli.FormatNumber(records))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Bem-vindo ao emplac!").
				Description(welcome+"\nVamos configurar algumas coisas."),
			huh.NewInput().
				Title("Planilha de emplacamentos").
				Description("Arquivo .xlsx ou pasta com várias planilhas.").
				Value(&vals.DataFile).
				Validate(validateDataPath),
			huh.NewSelect[string]().
				Title("Tema de cores").
				Options(themeOpts...).
				Value(&vals.Theme),
			huh.NewConfirm().
				Title("Mostrar previsão da próxima compra?").
				Affirmative("Sim").
				Negative("Não").
				Value(&vals.ShowPrediction),
		),
	).WithShowHelp(false)
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		if err := a.saveSetupConfig(); err != nil {
			a.flash, a.flashErr = "Falha ao salvar configuração: "+err.Error(), true
		} else {
			a.flash, a.flashErr = "Configuração salva em "+config.ConfigPath(), false
		}
		a.needSetup = false
		a.setupForm = nil
		a.recompute()
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// ApplySetup copies the form values into cfg.
func ApplySetup(cfg *config.Config, vals SetupValues) {
	path := strings.TrimSpace(vals.DataFile)
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		cfg.General.DataDir = path
	} else {
		cfg.General.DataFile = path
		cfg.General.DataDir = ""
	}
	cfg.Appearance.Theme = vals.Theme
	cfg.Report.ShowPrediction = vals.ShowPrediction
}

// saveSetupConfig persists the form values and applies the ones that take
// effect immediately.
func (a *App) saveSetupConfig() error {
	cfg := loadConfigOrDefault()
	ApplySetup(&cfg, a.setupVals)

	theme.SetActive(cfg.Appearance.Theme)
	a.opts.Report.ShowPrediction = cfg.Report.ShowPrediction
	if a.opts.DataPath == "" {
		a.opts.FallbackPath = config.DataPath(cfg)
	}

	return config.Save(cfg)
}
