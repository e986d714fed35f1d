package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/denigris/emplacamentos/internal/cli"
	"github.com/denigris/emplacamentos/internal/config"
	"github.com/denigris/emplacamentos/internal/logging"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/server"

	"github.com/spf13/cobra"
)

type serverRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataPath  string    `json:"data_path"`
}

var (
	flagServeAddr         string
	flagServeInterval     time.Duration
	flagServeDetach       bool
	flagServePIDFile      string
	flagServeLogFile      string
	flagServeEventsBuffer int
	flagServeLogLevel     string
	flagServeChild        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Servir a API HTTP de consulta (com SSE)",
	RunE:  runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Mostrar o processo e o estado da API",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Parar o servidor em execução",
	RunE:  runServeStop,
}

func init() {
	defaultPID := filepath.Join(pipeline.CacheDir(), "emplacd.pid")
	defaultLog := filepath.Join(pipeline.CacheDir(), "emplacd.log")

	pf := serveCmd.PersistentFlags()
	pf.StringVar(&flagServeAddr, "addr", "", "Endereço HTTP (padrão: server.addr da configuração)")
	pf.DurationVar(&flagServeInterval, "interval", 0, "Intervalo de verificação da planilha")
	pf.StringVar(&flagServePIDFile, "pid-file", defaultPID, "Arquivo de PID")
	pf.StringVar(&flagServeLogFile, "log-file", defaultLog, "Arquivo de log no modo --detach")
	pf.IntVar(&flagServeEventsBuffer, "events-buffer", 0, "Eventos mantidos em memória")
	pf.StringVar(&flagServeLogLevel, "log-level", "", "Nível de log: debug, info, warn, error")

	serveCmd.Flags().BoolVar(&flagServeDetach, "detach", false, "Rodar em segundo plano")
	serveCmd.Flags().BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = serveCmd.Flags().MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

// serverConfig merges flags over the [server] section of the config.
func serverConfig(cfg config.Config) (server.Config, error) {
	today, err := referenceDate()
	if err != nil {
		return server.Config{}, err
	}
	var now func() time.Time
	if flagToday != "" {
		now = func() time.Time { return today }
	}

	sc := server.Config{
		DataPath:       flagFile,
		Addr:           cfg.Server.Addr,
		Interval:       time.Duration(cfg.Server.PollIntervalSec) * time.Second,
		EventsBuffer:   cfg.Server.EventsBuffer,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Filter:         activeFilter(cfg),
		Report:         reportOptions(cfg),
		Now:            now,
	}
	if sc.DataPath == "" {
		sc.DataPath = config.DataPath(cfg)
	}
	if flagServeAddr != "" {
		sc.Addr = flagServeAddr
	}
	if flagServeInterval > 0 {
		sc.Interval = flagServeInterval
	}
	if flagServeEventsBuffer > 0 {
		sc.EventsBuffer = flagServeEventsBuffer
	}
	return sc, nil
}

func serveAddr() string {
	if flagServeAddr != "" {
		return flagServeAddr
	}
	return loadConfig().Server.Addr
}

func runServe(_ *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid serve launch mode")
	}

	if flagServeDetach {
		return startServerDetached()
	}

	return runServeForeground()
}

func startServerDetached() error {
	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("create server log directory: %w", err)
	}

	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open server log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	cmd := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached server: %w", err)
	}

	fmt.Printf("  Servidor iniciado (pid %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID: %s\n", flagServePIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", serveAddr())
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func runServeForeground() error {
	cfg := loadConfig()
	sc, err := serverConfig(cfg)
	if err != nil {
		return err
	}

	levelName := cfg.Server.LogLevel
	if flagServeLogLevel != "" {
		levelName = flagServeLogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	log := logging.New(os.Stderr, level)

	if err := ensureServerNotRunning(flagServePIDFile); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}

	pid := os.Getpid()
	if err := writePID(flagServePIDFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagServePIDFile) }()

	state := serverRuntimeState{
		PID:       pid,
		Addr:      sc.Addr,
		StartedAt: time.Now(),
		DataPath:  sc.DataPath,
	}
	_ = writeState(statePath(flagServePIDFile), state)
	defer func() { _ = os.Remove(statePath(flagServePIDFile)) }()

	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	// Restore the active dataset; the service takes over reloading it.
	session := pipeline.NewSession(nil)
	if ds, err := pipeline.Open(cache, flagFile, "", nil); err == nil {
		session.Replace(ds)
	} else if !errors.Is(err, pipeline.ErrNoDataset) {
		log.Warn("active dataset unavailable", logging.Err(err))
	}

	svc := server.New(sc, session, cache, log)

	fmt.Printf("  emplac servindo em http://%s\n", sc.Addr)
	fmt.Printf("  Verificando %s a cada %s\n", sc.DataPath, sc.Interval)
	fmt.Printf("  Para parar: emplac serve stop --pid-file %s\n", flagServePIDFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		fmt.Printf("  Servidor: parado (sem arquivo de PID)\n")
		return nil
	}

	if !processAlive(pid) {
		fmt.Printf("  Servidor: PID antigo (pid %d não está vivo)\n", pid)
		return nil
	}

	addr := serveAddr()
	if st, err := readState(statePath(flagServePIDFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Printf("  PID: %d\n", pid)
	fmt.Printf("  Endereço: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API: inacessível (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st server.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API: resposta inválida (%v)\n", err)
		return nil
	}

	if st.LastPollAt.IsZero() {
		fmt.Printf("  Última verificação: pendente\n")
	} else {
		fmt.Printf("  Última verificação: %s\n", st.LastPollAt.Local().Format("02/01/2006 15:04:05"))
	}
	fmt.Printf("  Verificações: %d\n", st.PollCount)
	if st.Dataset != nil {
		fmt.Printf("  Dataset: %s\n", st.Dataset.SourceName)
	}
	fmt.Printf("  Registros: %s\n", cli.FormatNumber(st.Summary.TotalRegistrations))
	fmt.Printf("  Clientes: %s\n", cli.FormatNumber(st.Summary.UniqueClients))
	fmt.Printf("  Assinantes SSE: %d\n", st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Último erro: %s\n", st.LastError)
	}
	return nil
}

func runServeStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagServePIDFile)
	if err != nil {
		return errors.New("servidor não está rodando")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find server process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal server process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagServePIDFile)
			_ = os.Remove(statePath(flagServePIDFile))
			fmt.Printf("  Servidor parado (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("servidor (pid %d) não terminou a tempo", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureServerNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("servidor já está rodando (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st serverRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (serverRuntimeState, error) {
	var st serverRuntimeState
	//nolint:gosec // state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
