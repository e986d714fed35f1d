// Package cmd implements the emplac CLI commands.
package cmd

import (
	"fmt"
	"strings"

	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/pipeline"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Mostrar a configuração atual",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Arquivo de configuração: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: carregado")
	} else {
		fmt.Println("  Status: usando padrões (sem arquivo)")
	}
	fmt.Printf("  Cache: %s\n", pipeline.CachePath())
	fmt.Println()

	fmt.Println("  [Geral]")
	fmt.Printf("    Planilha: %s\n", cfg.General.DataFile)
	if cfg.General.DataDir != "" {
		fmt.Printf("    Pasta:    %s (usada no lugar da planilha)\n", cfg.General.DataDir)
	}
	fmt.Println()

	fmt.Println("  [Relatório]")
	fmt.Printf("    Colunas:          %s\n", strings.Join(cfg.Report.Columns, ", "))
	fmt.Printf("    Colunas de moda:  %s\n", strings.Join(cfg.Report.ModeColumns, ", "))
	fmt.Printf("    Previsão:         %s\n", yesNo(cfg.Report.ShowPrediction))
	fmt.Printf("    Mais frequentes:  %s\n", yesNo(cfg.Report.ShowModes))
	fmt.Printf("    Máx. clientes:    %d\n", cfg.Report.MaxClients)
	fmt.Println()

	fmt.Println("  [Filtros padrão]")
	if len(cfg.Filters.Brands) == 0 && len(cfg.Filters.Segments) == 0 {
		fmt.Println("    nenhum")
	} else {
		fmt.Printf("    Marcas:    %s\n", strings.Join(cfg.Filters.Brands, ", "))
		fmt.Printf("    Segmentos: %s\n", strings.Join(cfg.Filters.Segments, ", "))
	}
	fmt.Println()

	fmt.Println("  [Servidor]")
	fmt.Printf("    Endereço:      %s\n", cfg.Server.Addr)
	fmt.Printf("    Verificação:   a cada %ds\n", cfg.Server.PollIntervalSec)
	fmt.Printf("    Upload máx.:   %d MB\n", cfg.Server.MaxUploadMB)
	fmt.Printf("    Log:           %s\n", cfg.Server.LogLevel)
	fmt.Println()

	fmt.Println("  [Painel]")
	fmt.Printf("    Atualização automática: %s (a cada %ds)\n", yesNo(cfg.TUI.AutoRefresh), cfg.TUI.RefreshIntervalSec)
	fmt.Printf("    Tema: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Rode `emplac setup` para reconfigurar.")
	return nil
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}
