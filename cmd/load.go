package cmd

import (
	"errors"
	"fmt"

	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagLoadList   bool
	flagLoadClear  bool
	flagLoadForget string
)

var loadCmd = &cobra.Command{
	Use:   "load [planilha | pasta]",
	Short: "Carregar uma planilha e torná-la o dataset ativo",
	Long: "Lê a planilha (ou todas as planilhas de uma pasta), guarda no cache e a marca\n" +
		"como dataset ativo dos próximos comandos. Sem argumentos, mostra o dataset ativo.",
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().BoolVar(&flagLoadList, "list", false, "Listar planilhas no cache")
	loadCmd.Flags().BoolVar(&flagLoadClear, "clear", false, "Esquecer o dataset ativo")
	loadCmd.Flags().StringVar(&flagLoadForget, "forget", "", "Remover do cache a planilha com este ID")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(_ *cobra.Command, args []string) error {
	if flagNoCache {
		return errors.New("load precisa do cache; remova --no-cache")
	}
	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		return fmt.Errorf("abrindo cache: %w", err)
	}
	defer func() { _ = cache.Close() }()

	switch {
	case flagLoadClear:
		if err := cache.ClearActive(); err != nil {
			return err
		}
		fmt.Println("  Dataset ativo esquecido.")
		return nil
	case flagLoadForget != "":
		if err := cache.DeleteWorkbook(flagLoadForget); err != nil {
			return err
		}
		fmt.Printf("  Removido do cache: %s\n", flagLoadForget)
		return nil
	case flagLoadList:
		return listWorkbooks(cache)
	case len(args) == 0:
		return showActive(cache)
	}

	progress := newProgress()
	ds, err := pipeline.LoadWithCache(args[0], cache, progress.update)
	progress.finish()
	if err != nil {
		return err
	}
	if err := pipeline.Activate(cache, ds); err != nil {
		return fmt.Errorf("ativando dataset: %w", err)
	}

	fmt.Printf("  Dataset ativo: %s\n", ds.SourceName)
	fmt.Printf("  Registros:     %s\n", cli.FormatNumber(len(ds.Records)))
	if ds.Files > 1 {
		fmt.Printf("  Planilhas:     %d (%d do cache, %d relidas)\n", ds.Files, ds.CacheHits, ds.Reparsed)
	}
	if ds.InvalidDates > 0 {
		fmt.Printf("  Datas inválidas: %s\n", cli.FormatNumber(ds.InvalidDates))
	}
	if ds.FileErrors > 0 {
		fmt.Printf("  Planilhas com erro: %d\n", ds.FileErrors)
	}
	return nil
}

func showActive(cache *store.Cache) error {
	active, ok, err := cache.Active()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("  Nenhum dataset ativo. Use `emplac load <planilha>`.")
		return nil
	}
	fmt.Printf("  Dataset ativo: %s\n", active.SourceID)
	if active.Path != "" {
		fmt.Printf("  Caminho:       %s\n", active.Path)
	}
	fmt.Printf("  Ativado em:    %s\n", active.SetAt.Local().Format("02/01/2006 15:04"))
	return nil
}

func listWorkbooks(cache *store.Cache) error {
	books, err := cache.Workbooks()
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Println("  Cache vazio.")
		return nil
	}
	active, _, _ := cache.Active()

	rows := make([][]string, 0, len(books))
	for _, w := range books {
		mark := ""
		if w.SourceID == active.SourceID || (active.Path != "" && w.Path == active.Path) {
			mark = "●"
		}
		rows = append(rows, []string{
			mark,
			w.SourceID,
			cli.Truncate(w.Name, 40),
			cli.FormatNumber(w.RowCount),
			w.ParsedAt.Local().Format("02/01/2006 15:04"),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Planilhas no cache",
		Headers:  []string{"", "ID", "Nome", "Registros", "Lida em"},
		Rows:     rows,
		LeftCols: 3,
	}))
	return nil
}
