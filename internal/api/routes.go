package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Securities and prices
	api.HandleFunc("/securities", handler.GetSecurities).Methods("GET")
	api.HandleFunc("/prices", handler.GetCurrentPrices).Methods("GET")
	api.HandleFunc("/prices/cached", handler.GetCachedPrices).Methods("GET")
	api.HandleFunc("/prices/cached/{ticker}", handler.GetCachedPrice).Methods("GET")

	// Operations
	api.HandleFunc("/operations", handler.GetOperations).Methods("GET")
	api.HandleFunc("/operations", handler.AddOperation).Methods("POST")
	api.HandleFunc("/calculate", handler.CalculateOperation).Methods("POST")

	// Triggers
	api.HandleFunc("/triggers/check", handler.CheckTriggers).Methods("POST")
	api.HandleFunc("/triggers/active", handler.GetActiveTriggers).Methods("GET")
	api.HandleFunc("/triggers/pending", handler.GetPendingTriggers).Methods("GET")
	api.HandleFunc("/triggers/{operationId:[0-9]+}/processed", handler.MarkTriggerProcessed).Methods("POST")

	// Archived trigger history
	api.HandleFunc("/triggers/history", handler.GetTriggerHistory).Methods("GET")
	api.HandleFunc("/triggers/history/pending", handler.GetArchivedPending).Methods("GET")
	api.HandleFunc("/triggers/history/{operationId:[0-9]+}", handler.GetArchivedTrigger).Methods("GET")

	return r
}

// NewHTTPHandler wraps the router with CORS for the given origins
func NewHTTPHandler(handler *Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(SetupRoutes(handler))
}
