package routes

import (
	"net/http"

	"github.com/medlocator/hospital-map/backend/internal/api/handlers"
	"github.com/medlocator/hospital-map/backend/internal/api/middleware"
	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	hospitalHandler *handlers.HospitalHandler
	searchHandler   *handlers.SearchHandler
	healthHandler   *handlers.HealthHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	hospitalHandler *handlers.HospitalHandler,
	searchHandler *handlers.SearchHandler,
	healthHandler *handlers.HealthHandler,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		hospitalHandler: hospitalHandler,
		searchHandler:   searchHandler,
		healthHandler:   healthHandler,
		allowedOrigins:  allowedOrigins,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /{$}", r.healthHandler.Root)
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)

	// Hospital endpoints
	r.mux.HandleFunc("POST /api/hospitals", r.hospitalHandler.CreateHospital)
	r.mux.HandleFunc("GET /api/hospitals", r.hospitalHandler.ListHospitals)
	r.mux.HandleFunc("GET /api/hospitals/count", r.hospitalHandler.CountHospitals)
	r.mux.HandleFunc("GET /api/hospitals/{id}", r.hospitalHandler.GetHospital)
	r.mux.HandleFunc("PUT /api/hospitals/{id}", r.hospitalHandler.UpdateHospital)
	r.mux.HandleFunc("DELETE /api/hospitals/{id}", r.hospitalHandler.DeleteHospital)

	// Legacy creation path used by the original map form
	r.mux.HandleFunc("POST /api/add/hospitals", r.hospitalHandler.CreateHospital)
	r.mux.HandleFunc("POST /api/add/hospitals/{$}", r.hospitalHandler.CreateHospital)

	// Facility search endpoints
	r.mux.HandleFunc("GET /api/facilities/search", r.searchHandler.SearchFacilities)
	r.mux.HandleFunc("GET /api/facilities/export", r.searchHandler.ExportFacilities)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.Compression(handler)
	handler = middleware.CORS(r.allowedOrigins)(handler)
	handler = middleware.Observability(r.metrics)(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)

	return handler
}
