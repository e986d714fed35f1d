package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/denigris/emplacamentos/internal/cadence"
	"github.com/denigris/emplacamentos/internal/logging"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/pipeline"
	"github.com/denigris/emplacamentos/internal/source"
)

// SummaryResponse is served at /v1/summary.
type SummaryResponse struct {
	Dataset model.DatasetInfo    `json:"dataset"`
	Filter  pipeline.Filter      `json:"filter"`
	Stats   model.SummaryStats   `json:"stats"`
	Years   []model.YearCount    `json:"years"`
	Brands  model.BrandYearTable `json:"brands"`
}

// SearchResponse is served at /v1/search.
type SearchResponse struct {
	model.SearchReport
	Message string `json:"message"`
}

// FiltersResponse lists the values available for filtering.
type FiltersResponse struct {
	Brands   []string `json:"brands"`
	Segments []string `json:"segments"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// failRequest maps pipeline errors to HTTP statuses.
func (s *Service) failRequest(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, model.EmptyQueryMessage)
	case errors.Is(err, pipeline.ErrClientNotFound):
		writeError(w, http.StatusNotFound, "Cliente não encontrado.")
	case errors.Is(err, pipeline.ErrNoDataset):
		writeError(w, http.StatusServiceUnavailable, "Nenhuma planilha carregada.")
	case source.IsFormatError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", "path", r.URL.Path, logging.Err(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// filtered returns the current dataset narrowed by the brand and segment
// query parameters, or by the configured filter when neither is given.
func (s *Service) filtered(r *http.Request) (*pipeline.Dataset, pipeline.Filter, []model.Registration, error) {
	ds, err := s.session.Current()
	if err != nil {
		return nil, pipeline.Filter{}, nil, err
	}
	q := r.URL.Query()
	f := s.cfg.Filter
	if q.Has("brand") || q.Has("segment") {
		f = pipeline.Filter{Brands: splitValues(q["brand"]), Segments: splitValues(q["segment"])}
	}
	return ds, f, pipeline.ApplyFilter(ds.Records, f), nil
}

// splitValues accepts both repeated parameters and comma-separated lists.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Service) today() time.Time {
	return cadence.Today(s.cfg.Now())
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, f, records, err := s.filtered(r)
	if err != nil {
		s.failRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Dataset: ds.Info(),
		Filter:  f,
		Stats:   pipeline.Summarize(records),
		Years:   pipeline.CountByYear(records),
		Brands:  pipeline.BrandYearPivot(records),
	})
}

func (s *Service) handleFilters(w http.ResponseWriter, r *http.Request) {
	ds, err := s.session.Current()
	if err != nil {
		s.failRequest(w, r, err)
		return
	}
	brands, segments := pipeline.FilterOptions(ds.Records)
	writeJSON(w, http.StatusOK, FiltersResponse{Brands: brands, Segments: segments})
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	_, _, records, err := s.filtered(r)
	if err != nil {
		s.failRequest(w, r, err)
		return
	}
	rep, err := pipeline.BuildSearchReport(records, r.URL.Query().Get("q"), s.cfg.Report, s.today())
	if err != nil {
		s.failRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{SearchReport: rep, Message: model.ResultMessage(len(rep.Matches))})
}

func (s *Service) handleClient(w http.ResponseWriter, r *http.Request) {
	_, _, records, err := s.filtered(r)
	if err != nil {
		s.failRequest(w, r, err)
		return
	}
	rep, err := pipeline.BuildClientReport(records, r.PathValue("taxid"), s.cfg.Report, s.today())
	if err != nil {
		s.failRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "Arquivo muito grande.")
			return
		}
		writeError(w, http.StatusBadRequest, "Envie a planilha no campo \"file\".")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds, err := pipeline.LoadUpload(header.Filename, data, s.cache)
	if err != nil {
		s.log.Warn("upload rejected", "name", header.Filename, logging.Err(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.cache != nil {
		if err := pipeline.Activate(s.cache, ds); err != nil {
			s.log.Warn("could not persist active dataset", logging.Err(err))
		}
	}

	s.mu.Lock()
	s.session.Replace(ds)
	s.generation++
	s.fingerprint = ""
	s.lastError = ""
	s.mu.Unlock()

	info := ds.Info()
	s.log.Info("dataset replaced by upload", "source", ds.SourceID, "records", info.Records)
	s.publishEvent(Event{
		Type:      EventReplaced,
		Timestamp: time.Now(),
		Dataset:   info,
		Summary:   pipeline.Summarize(ds.Records),
	})
	writeJSON(w, http.StatusCreated, info)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send the current dataset immediately.
	current := Event{Type: "snapshot", Timestamp: time.Now()}
	if ds, err := s.session.Current(); err == nil {
		current.Dataset = ds.Info()
		current.Summary = pipeline.Summarize(ds.Records)
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
