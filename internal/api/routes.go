package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func SetupRoutes(router *mux.Router, handler *Handler) {
	router.HandleFunc("/api/v1/health", handler.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/specs/{id}/definition", handler.GetSpecDefinition).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/jobs/{id}/definition", handler.GetJobDefinition).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/definitions/legacy", handler.PostLegacyDefinition).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/definitions/typed", handler.PostTypedDefinition).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/scheduler/jobs", handler.ListJobs).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/scheduler/start", handler.StartScheduler).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/scheduler/stop", handler.StopScheduler).Methods(http.MethodPost)
}
