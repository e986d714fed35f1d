// Package server provides the local HTTP lookup service over the active
// registration dataset.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/denigris/emplacamentos/internal/logging"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/source"
	"github.com/denigris/emplacamentos/internal/store"
)

// Config controls the service runtime behavior.
type Config struct {
	DataPath       string // workbook or directory reloaded when it changes
	Interval       time.Duration
	Addr           string
	EventsBuffer   int
	MaxUploadBytes int64
	Filter         pipeline.Filter
	Report         pipeline.ReportOptions
	Now            func() time.Time
}

// Event is emitted whenever the dataset is loaded, replaced or fails to reload.
type Event struct {
	ID        int64              `json:"id"`
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Dataset   model.DatasetInfo  `json:"dataset"`
	Summary   model.SummaryStats `json:"summary"`
	Error     string             `json:"error,omitempty"`
}

// Event types.
const (
	EventLoaded     = "dataset_loaded"
	EventReloaded   = "dataset_reloaded"
	EventReplaced   = "dataset_replaced"
	EventLoadFailed = "load_failed"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time          `json:"started_at"`
	LastPollAt      time.Time          `json:"last_poll_at,omitzero"`
	PollIntervalSec int                `json:"poll_interval_sec"`
	PollCount       int64              `json:"poll_count"`
	DataPath        string             `json:"data_path"`
	Dataset         *model.DatasetInfo `json:"dataset,omitempty"`
	Summary         model.SummaryStats `json:"summary"`
	LastError       string             `json:"last_error,omitempty"`
	EventCount      int                `json:"event_count"`
	SubscriberCount int                `json:"subscriber_count"`
}

// Service provides the lookup API and the reload loop.
type Service struct {
	cfg     Config
	log     *slog.Logger
	session *pipeline.Session
	cache   *store.Cache // nil disables caching
	loader  func(path string) (*pipeline.Dataset, error)

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	fingerprint string
	generation  uint64 // bumped by every upload
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a service answering from session. cache may be nil.
func New(cfg Config, session *pipeline.Session, cache *store.Cache, log *slog.Logger) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8765"
	}
	if cfg.MaxUploadBytes < 1 {
		cfg.MaxUploadBytes = 50 << 20
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Report.Columns == nil && cfg.Report.ModeColumns == nil {
		cfg.Report = pipeline.DefaultReportOptions()
	}
	if session == nil {
		session = pipeline.NewSession(nil)
	}

	s := &Service{
		cfg:       cfg,
		log:       log,
		session:   session,
		cache:     cache,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	s.loader = s.load
	if ds, err := session.Current(); err == nil && ds.Path != "" {
		s.fingerprint, _ = fingerprint(ds.Path)
	}
	return s
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/summary", s.handleSummary)
	mux.HandleFunc("GET /v1/filters", s.handleFilters)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/clients/{taxid}", s.handleClient)
	mux.HandleFunc("POST /v1/dataset", s.handleUpload)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	return mux
}

// Run serves HTTP and polls the data path until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("serving", "addr", s.cfg.Addr, "data_path", s.cfg.DataPath, "poll", s.cfg.Interval)

	// Seed the dataset so lookups work immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.log.Info("shutting down")
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}
	}
}

// pollOnce reloads the watched workbook when it changed on disk. An uploaded
// dataset stays active until another upload replaces it.
func (s *Service) pollOnce() {
	now := time.Now()
	path := s.watchedPath()

	s.mu.Lock()
	s.lastPollAt = now
	s.pollCount++
	prevStamp := s.fingerprint
	gen := s.generation
	s.mu.Unlock()

	if path == "" {
		return
	}

	stamp, err := fingerprint(path)
	if err != nil {
		s.fail(path, now, err)
		return
	}
	if _, cerr := s.session.Current(); cerr == nil && stamp == prevStamp {
		return
	}

	ds, err := s.loader(path)
	if err != nil {
		s.fail(path, now, err)
		return
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.log.Debug("discarding reload, dataset was uploaded meanwhile", "path", path)
		return
	}
	prev := s.session.Replace(ds)
	s.fingerprint = stamp
	s.lastError = ""
	s.mu.Unlock()

	evType := EventLoaded
	if prev != nil {
		evType = EventReloaded
	}
	s.log.Info("dataset loaded", "source", ds.SourceID, "records", len(ds.Records),
		"invalid_dates", ds.InvalidDates, "from_cache", ds.FromCache)
	s.publishEvent(Event{
		Type:      evType,
		Timestamp: now,
		Dataset:   ds.Info(),
		Summary:   pipeline.Summarize(ds.Records),
	})
}

// fail records a load error. Repeats of the same error are not re-published.
func (s *Service) fail(path string, at time.Time, err error) {
	s.mu.Lock()
	repeated := s.lastError == err.Error()
	s.lastError = err.Error()
	s.mu.Unlock()

	if repeated {
		return
	}
	s.log.Error("reload failed", "path", path, logging.Err(err))
	s.publishEvent(Event{Type: EventLoadFailed, Timestamp: at, Error: err.Error()})
}

// watchedPath is the path of the active dataset, or the configured one
// when nothing file-backed is loaded yet.
func (s *Service) watchedPath() string {
	ds, err := s.session.Current()
	if err != nil {
		return s.cfg.DataPath
	}
	if strings.HasPrefix(ds.SourceID, "upload:") {
		return ""
	}
	return ds.Path
}

func (s *Service) load(path string) (*pipeline.Dataset, error) {
	if s.cache != nil {
		ds, err := pipeline.LoadWithCache(path, s.cache, nil)
		if err == nil {
			return ds, nil
		}
		s.log.Warn("cached load failed, parsing directly", "path", path, logging.Err(err))
	}
	return pipeline.Load(path, nil)
}

// fingerprint summarizes the mtime and size of a workbook, or of every
// workbook in a directory.
func fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	files := []source.DiscoveredFile{{
		Name:      info.Name(),
		MtimeNs:   info.ModTime().UnixNano(),
		SizeBytes: info.Size(),
	}}
	if info.IsDir() {
		if files, err = source.Discover(path); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s:%d:%d;", f.Name, f.MtimeNs, f.SizeBytes)
	}
	return b.String(), nil
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	st := Status{PollIntervalSec: int(s.cfg.Interval.Seconds()), DataPath: s.cfg.DataPath}
	if ds, err := s.session.Current(); err == nil {
		info := ds.Info()
		st.Dataset = &info
		st.Summary = pipeline.Summarize(ds.Records)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st.StartedAt = s.startedAt
	st.LastPollAt = s.lastPollAt
	st.PollCount = s.pollCount
	st.LastError = s.lastError
	st.EventCount = len(s.events)
	st.SubscriberCount = len(s.subs)
	return st
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
