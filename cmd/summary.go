package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Resumo geral: totais, registros por ano e marca x ano",
	RunE:  runSummary,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Saída em JSON")
	rootCmd.AddCommand(summaryCmd)
}

// summaryOutput is the --json shape of the summary.
type summaryOutput struct {
	Dataset model.DatasetInfo    `json:"dataset"`
	Filter  pipeline.Filter      `json:"filter"`
	Summary model.SummaryStats   `json:"summary"`
	Years   []model.YearCount    `json:"years"`
	Pivot   model.BrandYearTable `json:"brand_year"`
}

func runSummary(_ *cobra.Command, _ []string) error {
	cfg := loadConfig()
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	f := activeFilter(cfg)
	records := pipeline.ApplyFilter(ds.Records, f)
	stats := pipeline.Summarize(records)
	years := pipeline.CountByYear(records)
	pivot := pipeline.BrandYearPivot(records)

	if flagJSON {
		return writeJSON(summaryOutput{
			Dataset: ds.Info(),
			Filter:  f,
			Summary: stats,
			Years:   years,
			Pivot:   pivot,
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("EMPLACAMENTOS  " + ds.SourceName))
	fmt.Println()
	if stats.TotalRegistrations == 0 {
		fmt.Println("  " + model.NoDataMessage)
		return nil
	}
	if !f.Empty() {
		fmt.Printf("  Filtro: %s\n\n", describeFilter(f))
	}
	fmt.Print(cli.RenderSummary(stats, years, pivot))
	return nil
}

func describeFilter(f pipeline.Filter) string {
	var parts []string
	if len(f.Brands) > 0 {
		parts = append(parts, "marcas "+strings.Join(f.Brands, ", "))
	}
	if len(f.Segments) > 0 {
		parts = append(parts, "segmentos "+strings.Join(f.Segments, ", "))
	}
	return strings.Join(parts, "; ")
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
