package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/export"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagExportOut    string
	flagExportSearch string
	flagExportAll    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exportar resumo, busca ou registros para .xlsx",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportOut, "output", "o", "", "Arquivo de saída (padrão: emplac-<tipo>-<data>.xlsx)")
	exportCmd.Flags().StringVar(&flagExportSearch, "search", "", "Exportar o resultado desta busca")
	exportCmd.Flags().BoolVar(&flagExportAll, "all", false, "Exportar todos os registros filtrados")
	exportCmd.MarkFlagsMutuallyExclusive("search", "all")
	rootCmd.AddCommand(exportCmd)
}

var exportColumns = []string{
	model.ColDate, model.ColClient, model.ColTaxID, model.ColPlate,
	model.ColBrand, model.ColModel, model.ColSegment,
}

func runExport(_ *cobra.Command, _ []string) error {
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

	kind := "resumo"
	switch {
	case flagExportSearch != "":
		kind = "busca"
	case flagExportAll:
		kind = "registros"
	}
	out := flagExportOut
	if out == "" {
		out = fmt.Sprintf("emplac-%s-%s.xlsx", kind, time.Now().Format("20060102-150405"))
	}

	f, err := os.Create(out) //nolint:gosec // output path comes from the local user
	if err != nil {
		return fmt.Errorf("criando %s: %w", out, err)
	}

	var n int
	switch kind {
	case "busca":
		var rep model.SearchReport
		rep, err = pipeline.BuildSearchReport(records, flagExportSearch, reportOptions(cfg), today)
		if err == nil {
			n = len(rep.Matches)
			err = export.WriteSearchReport(f, rep)
		}
	case "registros":
		n = len(records)
		err = export.WriteRegistrations(f, records, exportColumns)
	default:
		n = len(records)
		err = export.WriteSummary(f, pipeline.Summarize(records), pipeline.CountByYear(records), pipeline.BrandYearPivot(records))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return err
	}

	fmt.Printf("  %s registros exportados para %s\n", cli.FormatNumber(n), out)
	return nil
}
