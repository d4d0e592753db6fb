package main

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/sebuszqo/PaymentWidget/internal/auth"
	"github.com/sebuszqo/PaymentWidget/internal/checkout"
	"github.com/sebuszqo/PaymentWidget/internal/logging"
	"github.com/sebuszqo/PaymentWidget/internal/metrics"
	"github.com/sebuszqo/PaymentWidget/internal/web"
	"log/slog"
	"net/http"
	"time"
)

type Response struct {
	Message string `json:"message"`
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.AppendCtx(r.Context(), slog.String("requestId", uuid.NewString()))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.InfoContext(ctx, "Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type Server struct {
	router          *http.ServeMux
	pages           *web.Pages
	checkoutHandler *checkout.Handler
	decoder         auth.TokenDecoder
	ready           func(r *http.Request) map[string]string
}

func NewServer(pages *web.Pages, checkoutHandler *checkout.Handler, decoder auth.TokenDecoder, ready func(r *http.Request) map[string]string) *Server {
	return &Server{
		pages:           pages,
		checkoutHandler: checkoutHandler,
		decoder:         decoder,
		ready:           ready,
		router:          http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ready"}
	if s.ready != nil {
		for k, v := range s.ready(r) {
			status[k] = v
		}
	}
	web.RespondJSON(w, http.StatusOK, status)
}

func (s *Server) RegisterRoutes() {
	// Pages and public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("GET /services", http.HandlerFunc(s.pages.Services))
	publicRoutes.Handle("GET /success", http.HandlerFunc(s.pages.Success))
	publicRoutes.Handle("GET /api/catalog", http.HandlerFunc(s.pages.Catalog))
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	publicRoutes.Handle("GET /metrics", http.HandlerFunc(metrics.Handler))
	publicRoutes.Handle("GET /static/", web.StaticHandler())

	// Checkout routes (widget token required)
	withToken := auth.WidgetTokenMiddleware(s.decoder)
	checkoutRoutes := http.NewServeMux()
	checkoutRoutes.Handle("POST /api/checkout", withToken(http.HandlerFunc(s.checkoutHandler.Open)))
	checkoutRoutes.Handle("GET /api/checkout/{checkoutID}", withToken(http.HandlerFunc(s.checkoutHandler.Get)))
	checkoutRoutes.Handle("DELETE /api/checkout/{checkoutID}", withToken(http.HandlerFunc(s.checkoutHandler.Close)))
	checkoutRoutes.Handle("PUT /api/checkout/{checkoutID}/fields", withToken(http.HandlerFunc(s.checkoutHandler.EditField)))
	checkoutRoutes.Handle("POST /api/checkout/{checkoutID}/account-check", withToken(http.HandlerFunc(s.checkoutHandler.CheckAccount)))
	checkoutRoutes.Handle("POST /api/checkout/{checkoutID}/submit", withToken(http.HandlerFunc(s.checkoutHandler.Submit)))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/services", publicRoutes)
	mainRouter.Handle("/success", publicRoutes)
	mainRouter.Handle("/metrics", publicRoutes)
	mainRouter.Handle("/static/", publicRoutes)
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/checkout", checkoutRoutes)
	mainRouter.Handle("/api/checkout/", checkoutRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func (s *Server) Handler(logger *slog.Logger) http.Handler {
	return loggingMiddleware(logger, s.router)
}
