package viatico

import (
	"net/http"

	"go.uber.org/zap"
)

// Server handles HTTP requests for viatico records and reports
type Server struct {
	service *Service
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, logger *zap.Logger) *Server {
	return NewServerWithMux(service, logger, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, logger *zap.Logger, mux *http.ServeMux) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: service,
		logger:  logger,
		mux:     mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to every response and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/viaticos/{id}/photos", s.handleUploadPhoto)
	s.mux.HandleFunc("POST /api/viaticos/{id}/photo-links", s.handleAddPhotoLink)
	s.mux.HandleFunc("DELETE /api/viaticos/{id}/photos/{index}", s.handleDeletePhoto)
	s.mux.HandleFunc("POST /api/viaticos/{id}/signature", s.handleSign)
	s.mux.HandleFunc("DELETE /api/viaticos/{id}/signature", s.handleClearSignature)

	s.mux.HandleFunc("GET /api/viaticos/{id}", s.handleGetRecord)
	s.mux.HandleFunc("PUT /api/viaticos/{id}", s.handleUpdateRecord)
	s.mux.HandleFunc("DELETE /api/viaticos/{id}", s.handleDeleteRecord)
	s.mux.HandleFunc("GET /api/viaticos", s.handleListRecords)
	s.mux.HandleFunc("POST /api/viaticos", s.handleCreateRecord)

	s.mux.HandleFunc("GET /api/stats", s.handleStats)

	s.mux.HandleFunc("GET /api/reports/{name}", s.handleGetReport)
	s.mux.HandleFunc("GET /api/reports", s.handleListReports)
	s.mux.HandleFunc("POST /api/reports", s.handleExportReport)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.mux).ServeHTTP(w, r)
}
