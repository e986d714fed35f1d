package cmd

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/denigris/emplacamentos/internal/cadence"
	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/store"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	flagFile     string
	flagBrands   []string
	flagSegments []string
	flagNoCache  bool
	flagQuiet    bool
	flagToday    string
)

var rootCmd = &cobra.Command{
	Use:   "emplac",
	Short: "Consulta de emplacamentos da Comercial De Nigris",
	Long: "Busca clientes nas planilhas de emplacamento, mostra o histórico de compras\n" +
		"e estima quando cada cliente deve comprar de novo.",
	SilenceUsage: true,
	RunE:         runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagFile, "file", "f", "", "Planilha .xlsx ou pasta de planilhas (padrão: dataset ativo)")
	pf.StringSliceVarP(&flagBrands, "brand", "b", nil, "Filtrar por marca (repetível)")
	pf.StringSliceVarP(&flagSegments, "segment", "s", nil, "Filtrar por segmento (repetível)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Ignorar o cache SQLite e reler as planilhas")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Sem barra de progresso")
	pf.StringVar(&flagToday, "today", "", "Data de referência das previsões (AAAA-MM-DD)")
}

// loadConfig returns the saved config, or defaults when none is readable.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "  Aviso: %v (usando padrões)\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

// openCache opens the registration cache unless --no-cache is set. A nil
// cache means workbooks are read directly.
func openCache() *store.Cache {
	if flagNoCache {
		return nil
	}
	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Cache indisponível, lendo planilhas diretamente\n")
		}
		return nil
	}
	return cache
}

// loadDataset is the shared data loading path used by all commands. It
// prefers --file, then the active dataset, then the configured workbook.
func loadDataset(cfg config.Config) (*pipeline.Dataset, error) {
	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	progress := newProgress()
	ds, err := pipeline.Open(cache, flagFile, config.DataPath(cfg), progress.update)
	progress.finish()
	if err != nil {
		return nil, err
	}

	if !flagQuiet {
		switch {
		case ds.FromCache:
			fmt.Fprintf(os.Stderr, "  %s registros carregados do cache (%s)\n",
				cli.FormatNumber(len(ds.Records)), ds.SourceName)
		case ds.Reparsed > 0 && ds.CacheHits > 0:
			fmt.Fprintf(os.Stderr, "  %d planilha(s) do cache + %d relida(s), %s registros\n",
				ds.CacheHits, ds.Reparsed, cli.FormatNumber(len(ds.Records)))
		default:
			fmt.Fprintf(os.Stderr, "  %s registros lidos de %s\n",
				cli.FormatNumber(len(ds.Records)), ds.SourceName)
		}
		if ds.FileErrors > 0 {
			fmt.Fprintf(os.Stderr, "  %d planilha(s) não puderam ser lidas\n", ds.FileErrors)
		}
	}
	return ds, nil
}

// loadProgress draws a progress bar on stderr once the first callback says
// how much work there is. Callbacks may arrive from several goroutines.
type loadProgress struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newProgress() *loadProgress {
	return &loadProgress{}
}

func (p *loadProgress) update(current, total int) {
	if flagQuiet || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("  Lendo planilhas"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(current)
}

func (p *loadProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// activeFilter returns the flag filters, or the configured defaults when no
// filter flag was given.
func activeFilter(cfg config.Config) pipeline.Filter {
	if len(flagBrands) > 0 || len(flagSegments) > 0 {
		return pipeline.Filter{Brands: flagBrands, Segments: flagSegments}
	}
	return pipeline.Filter{Brands: cfg.Filters.Brands, Segments: cfg.Filters.Segments}
}

func reportOptions(cfg config.Config) pipeline.ReportOptions {
	return pipeline.ReportOptions{
		Columns:        cfg.Report.Columns,
		ModeColumns:    cfg.Report.ModeColumns,
		ShowPrediction: cfg.Report.ShowPrediction,
		ShowModes:      cfg.Report.ShowModes,
		MaxClients:     cfg.Report.MaxClients,
	}
}

// referenceDate returns the date predictions are measured from.
func referenceDate() (time.Time, error) {
	if flagToday == "" {
		return cadence.Today(time.Now()), nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006"} {
		if t, err := time.Parse(layout, flagToday); err == nil {
			return cadence.Today(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("data inválida em --today: %q (use AAAA-MM-DD)", flagToday)
}
