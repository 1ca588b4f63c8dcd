// Package service exposes timetable extraction and the saved timetables over
// a JSON HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/castlemilk/salahtime/backend/internal/auth"
	"github.com/castlemilk/salahtime/backend/internal/extraction"
	"github.com/castlemilk/salahtime/backend/internal/model"
	"github.com/castlemilk/salahtime/backend/internal/store"
)

// DefaultMaxUploadBytes caps the size of an uploaded timetable.
const DefaultMaxUploadBytes = 20 << 20

// Extractor is the extraction pipeline behind the API.
type Extractor interface {
	Extract(ctx context.Context, in extraction.Input, onProgress extraction.ProgressFunc) (*extraction.Result, error)
	StartAsync(in extraction.Input) (string, error)
	Job(id string) (extraction.Job, error)
	IsAIAvailable() bool
	IsOCRAvailable() bool
}

// Handler serves the extraction and timetable endpoints.
type Handler struct {
	extractor      Extractor
	store          store.Store
	maxUploadBytes int64
}

// NewHandler creates a Handler.
func NewHandler(extractor Extractor, st store.Store) *Handler {
	return &Handler{
		extractor:      extractor,
		store:          st,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /v1/extractions", h.createExtraction)
	mux.HandleFunc("GET /v1/extractions/{id}", h.getExtraction)
	mux.HandleFunc("GET /v1/timetables", h.listTimetables)
	mux.HandleFunc("GET /v1/timetables/{id}", h.getTimetable)
	mux.HandleFunc("GET /v1/timetables/{id}/csv", h.exportTimetable)
	mux.HandleFunc("DELETE /v1/timetables/{id}", h.deleteTimetable)
	mux.HandleFunc("GET /v1/mosques/{name}/timetable", h.latestTimetable)
	return mux
}

type healthResponse struct {
	Status string `json:"status"`
	AI     bool   `json:"ai"`
	OCR    bool   `json:"ocr"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		AI:     h.extractor.IsAIAvailable(),
		OCR:    h.extractor.IsOCRAvailable(),
	})
}

type asyncResponse struct {
	JobID  string               `json:"jobId"`
	Status extraction.JobStatus `json:"status"`
}

// streamEvent is one line of an NDJSON extraction stream.
type streamEvent struct {
	Progress *extraction.Progress `json:"progress,omitempty"`
	Result   *extraction.Result   `json:"result,omitempty"`
	Error    *errorDetail         `json:"error,omitempty"`
}

// createExtraction accepts a multipart upload with a "file" part and the
// form fields mosqueName, async, dryRun and stream.
func (h *Handler) createExtraction(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireAuth(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.UserID = claims.UID

	if formBool(r, "async") || extraction.ShouldProcessAsync(in.Data) {
		jobID, err := h.extractor.StartAsync(in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/extractions/"+jobID)
		writeJSON(w, http.StatusAccepted, asyncResponse{JobID: jobID, Status: extraction.JobPending})
		return
	}

	if formBool(r, "stream") {
		h.streamExtraction(w, r, in)
		return
	}

	result, err := h.extractor.Extract(r.Context(), in, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (extraction.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return extraction.Input{}, invalidRequest(fmt.Sprintf("could not read upload: %v", err))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return extraction.Input{}, invalidRequest("a timetable file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return extraction.Input{}, invalidRequest(fmt.Sprintf("could not read upload: %v", err))
	}

	return extraction.Input{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		MosqueName:  r.FormValue("mosqueName"),
		DryRun:      formBool(r, "dryRun"),
	}, nil
}

// streamExtraction runs the extraction within the request, writing each
// progress update and then the result or error as newline-delimited JSON.
func (h *Handler) streamExtraction(w http.ResponseWriter, r *http.Request, in extraction.Input) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	var mu sync.Mutex
	send := func(ev streamEvent) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(ev)
		if flusher != nil {
			flusher.Flush()
		}
	}

	result, err := h.extractor.Extract(r.Context(), in, func(p extraction.Progress) {
		send(streamEvent{Progress: &p})
	})
	if err != nil {
		_, detail := httpError(err)
		send(streamEvent{Error: &detail})
		return
	}
	send(streamEvent{Result: result})
}

func (h *Handler) getExtraction(w http.ResponseWriter, r *http.Request) {
	job, err := h.extractor.Job(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := auth.RequireUserAccess(r.Context(), job.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type listResponse struct {
	Timetables    []*model.Timetable `json:"timetables"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

func (h *Handler) listTimetables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var pageSize int32
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			writeError(w, r, invalidRequest("pageSize must be a non-negative integer"))
			return
		}
		pageSize = int32(n)
	}

	timetables, next, err := h.store.ListTimetables(r.Context(), q.Get("mosque"), pageSize, q.Get("pageToken"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if timetables == nil {
		timetables = []*model.Timetable{}
	}
	writeJSON(w, http.StatusOK, listResponse{Timetables: timetables, NextPageToken: next})
}

func (h *Handler) getTimetable(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTimetable(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) exportTimetable(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTimetable(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := extraction.MarshalCSV(t.Times)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := model.Slug(t.MosqueName)
	if name == "" {
		name = "timetable"
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	_, _ = w.Write(data)
}

func (h *Handler) deleteTimetable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.store.GetTimetable(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := auth.RequireUserAccess(r.Context(), t.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.DeleteTimetable(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) latestTimetable(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetLatestTimetable(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func invalidRequest(msg string) error {
	return &extraction.ExtractionError{Code: extraction.ErrInvalidRequest, Message: msg}
}

func formBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(r.FormValue(key)))
	return v
}
