package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <nome | CNPJ | placa>",
	Short: "Buscar clientes por nome, CNPJ/CPF ou placa",
	Long: "Busca por trecho do nome (sem diferenciar maiúsculas e acentos), CNPJ/CPF ou\n" +
		"placa (com ou sem pontuação) e mostra o relatório de cada cliente encontrado.",
	RunE: runSearch,
}

var clientCmd = &cobra.Command{
	Use:   "client <CNPJ>",
	Short: "Relatório de um cliente pelo CNPJ/CPF",
	Args:  cobra.ExactArgs(1),
	RunE:  runClient,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(clientCmd)
}

func runSearch(_ *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		fmt.Println("  " + model.EmptyQueryMessage)
		return nil
	}

	cfg := loadConfig()
	today, err := referenceDate()
	if err != nil {
		return err
	}
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	records := pipeline.ApplyFilter(ds.Records, activeFilter(cfg))
	rep, err := pipeline.BuildSearchReport(records, query, reportOptions(cfg), today)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(rep)
	}
	fmt.Println()
	fmt.Print(cli.RenderSearchReport(rep))
	return nil
}

func runClient(_ *cobra.Command, args []string) error {
	cfg := loadConfig()
	today, err := referenceDate()
	if err != nil {
		return err
	}
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	records := pipeline.ApplyFilter(ds.Records, activeFilter(cfg))
	rep, err := pipeline.BuildClientReport(records, args[0], reportOptions(cfg), today)
	if errors.Is(err, pipeline.ErrClientNotFound) {
		fmt.Println("  " + model.NoResultsMessage)
		return nil
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(rep)
	}
	fmt.Println()
	fmt.Print(cli.RenderClientReport(rep))
	return nil
}
