package cmd

import (
	"errors"
	"fmt"

	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Assistente de configuração",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()

	records := 0
	cache := openCache()
	if ds, err := pipeline.Open(cache, flagFile, config.DataPath(cfg), nil); err == nil {
		records = len(ds.Records)
	}
	if cache != nil {
		_ = cache.Close()
	}

	vals := tui.DefaultSetupValues(cfg)
	if err := tui.NewSetupForm(records, &vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Configuração não alterada.")
			return nil
		}
		return err
	}

	tui.ApplySetup(&cfg, vals)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("salvando configuração: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Salvo em %s\n", config.ConfigPath())
	fmt.Println("  Rode `emplac setup` quando quiser reconfigurar.")
	fmt.Println()
	return nil
}
