package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/app"
	"doctor_reputation/internal/domain"
)

const maxBody = 64 << 10

type Handlers struct{ Svc *app.Service }

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Post("/v1/query", h.query)
	s.mux.Get("/v1/search", h.search)
	s.mux.Get("/v1/report", h.report)
	s.mux.Get("/v1/speciality", h.speciality)
	s.mux.Get("/v1/reports/history", h.history)
	s.mux.Get("/v1/sources", h.sources)
}

// StatusFor maps an error kind to the HTTP status of its failure envelope.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidRequest, domain.KindInvalidSource, domain.KindSourceInactive:
		return http.StatusBadRequest
	case domain.KindNoResultsFound:
		return http.StatusNotFound
	case domain.KindSummarizationTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.KindSourceUnavailable, domain.KindSourceMalformed, domain.KindSummarizationFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeResponse sends the envelope. Successful bodies carry a weak ETag and honour If-None-Match.
func writeResponse(w http.ResponseWriter, r *http.Request, resp domain.Response) {
	status := http.StatusOK
	if !resp.Success {
		status = StatusFor(resp.ErrorKind)
		if status >= http.StatusInternalServerError {
			log.Warn().Str("kind", string(resp.ErrorKind)).Str("path", r.URL.Path).Msg(resp.Message)
		}
	}
	writeJSON(w, r, status, resp)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if status == http.StatusOK && etag != "" {
		// If client already has this version, short-circuit.
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response body")
	}
}

func failure(w http.ResponseWriter, r *http.Request, err error) {
	writeResponse(w, r, domain.Failure(err))
}

func (h *Handlers) query(w http.ResponseWriter, r *http.Request) {
	var req domain.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		failure(w, r, domain.E(domain.KindInvalidRequest, "request body must be a JSON object with mode, source and query", err))
		return
	}
	writeResponse(w, r, h.Svc.Execute(r.Context(), req))
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeResponse(w, r, h.Svc.Execute(r.Context(), domain.Request{Mode: domain.ModeSearch, Query: q.Get("query")}))
}

func (h *Handlers) report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeResponse(w, r, h.Svc.Execute(r.Context(), domain.Request{
		Mode:   domain.ModeReport,
		Source: q.Get("source"),
		Query:  q.Get("identifier"),
	}))
}

func (h *Handlers) speciality(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeResponse(w, r, h.Svc.Execute(r.Context(), domain.Request{
		Mode:   domain.ModeSpeciality,
		Source: q.Get("source"),
		Query:  q.Get("speciality"),
	}))
}

type historyResponse struct {
	Success bool                    `json:"success"`
	Reports []domain.ArchivedReport `json:"reports"`
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 20
	if ls := q.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 100 {
			failure(w, r, domain.E(domain.KindInvalidRequest, "limit must be an integer between 1 and 100", nil))
			return
		}
		limit = l
	}
	out, err := h.Svc.History(r.Context(), q.Get("source"), q.Get("identifier"), limit)
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			log.Error().Err(err).Msg("report history failed")
			err = domain.E(domain.KindInternal, "report history unavailable", err)
		}
		failure(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, historyResponse{Success: true, Reports: out})
}

func (h *Handlers) sources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "sources": h.Svc.Sources()})
}
