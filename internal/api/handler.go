package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/0xPuncker/jobspec-watcher/internal/cron"
	"github.com/0xPuncker/jobspec-watcher/internal/definition"
	"github.com/0xPuncker/jobspec-watcher/pkg/types"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodySize = 1 << 20

type Handler struct {
	source    types.JobSource
	generator *definition.Generator
	logger    *logrus.Logger
	Scheduler *cron.Scheduler
}

func NewHandler(source types.JobSource, generator *definition.Generator, scheduler *cron.Scheduler, logger *logrus.Logger) *Handler {
	return &Handler{
		source:    source,
		generator: generator,
		logger:    logger,
		Scheduler: scheduler,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":              "ok",
		"supported_job_types": definition.SupportedJobTypes(),
	})
}

// GetSpecDefinition serves the JSON definition of a legacy spec held by the
// node. ?refresh=true bypasses the client cache.
func (h *Handler) GetSpecDefinition(w http.ResponseWriter, r *http.Request) {
	h.serveFetched(w, r, types.KindLegacy)
}

// GetJobDefinition serves the TOML definition of a typed job held by the
// node.
func (h *Handler) GetJobDefinition(w http.ResponseWriter, r *http.Request) {
	h.serveFetched(w, r, types.KindTyped)
}

func (h *Handler) serveFetched(w http.ResponseWriter, r *http.Request, kind types.JobKind) {
	id := mux.Vars(r)["id"]
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	def, err := h.generator.Fetch(r.Context(), h.source, kind, id, refresh)
	if err != nil {
		h.handleError(w, err, statusFor(err, http.StatusBadGateway))
		return
	}

	h.writeDefinition(w, def)
}

// PostLegacyDefinition renders a JSON:API spec document posted in the body.
func (h *Handler) PostLegacyDefinition(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	spec, err := types.DecodeJobSpec(body)
	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	def, err := h.generator.JSONDefinition(*spec)
	if err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	h.writeDefinition(w, def)
}

// PostTypedDefinition renders a JSON:API job document posted in the body.
func (h *Handler) PostTypedDefinition(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	job, err := types.DecodeJob(body)
	if err != nil {
		h.handleError(w, err, http.StatusBadRequest)
		return
	}

	def, err := h.generator.TOMLDefinition(*job)
	if err != nil {
		h.handleError(w, err, statusFor(err, http.StatusInternalServerError))
		return
	}

	h.writeDefinition(w, def)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.Scheduler.ListJobs()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jobs":    jobs,
		"running": h.Scheduler.IsRunning(),
	})
}

func (h *Handler) StartScheduler(w http.ResponseWriter, r *http.Request) {
	if err := h.Scheduler.Start(); err != nil {
		h.handleError(w, err, http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "scheduler started successfully",
	})
}

func (h *Handler) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.Scheduler.Stop()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "scheduler stopped successfully",
	})
}

func (h *Handler) writeDefinition(w http.ResponseWriter, def *definition.Definition) {
	w.Header().Set("Content-Type", def.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", def.FileName()))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, def.Text+"\n")
}

func (h *Handler) handleError(w http.ResponseWriter, err error, code int) {
	entry := h.logger.WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	})
}

func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, types.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, definition.ErrUnsupportedJobType),
		errors.Is(err, definition.ErrMissingVariantSpec):
		return http.StatusUnprocessableEntity
	}
	return fallback
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxBodySize)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}
	return body, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router := mux.NewRouter()
	SetupRoutes(router, h)
	router.ServeHTTP(w, r)
}

func durationString(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fµs", float64(d.Microseconds()))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Milliseconds()))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
