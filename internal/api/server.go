package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/limbo/routinewidget/internal/repository"
	"github.com/limbo/routinewidget/internal/service"
	"github.com/limbo/routinewidget/pkg/httputil"
)

const defaultUpstreamTimeout = 10 * time.Second

type Server struct {
	mx              *chi.Mux
	srv             *http.Server
	gatewayService  service.GatewayServiceI
	logsRepo        repository.LogsRepositoryI
	upstreamTimeout time.Duration
}

type ServicesList struct {
	GatewayService service.GatewayServiceI
	// Optional. Debug logs are only written to the process log when nil.
	LogsRepository repository.LogsRepositoryI
	// Bound for one gateway call to Notion. Defaults to 10s.
	UpstreamTimeout time.Duration
}

func New(servicesOptions *ServicesList) *Server {
	if servicesOptions == nil || servicesOptions.GatewayService == nil {
		log.Fatal("provided nil gateway service")
	}
	s := &Server{
		mx:              chi.NewMux(),
		gatewayService:  servicesOptions.GatewayService,
		logsRepo:        servicesOptions.LogsRepository,
		upstreamTimeout: servicesOptions.UpstreamTimeout,
	}
	if s.upstreamTimeout <= 0 {
		s.upstreamTimeout = defaultUpstreamTimeout
	}
	s.MountEndpoints()
	return s
}

func (s *Server) MountEndpoints() {
	s.mx.Use(middleware.Recoverer)
	s.mx.Use(s.RequestIDMiddleware)
	s.mx.Use(s.SettingUpLoggerMiddleware)
	s.mx.Use(s.LoggerExtensionMiddleware)
	s.mx.Use(s.CORSMiddleware)
	s.mx.Use(s.RecoverMiddleware)

	s.mx.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusNotFound, "not found")
	})
	s.mx.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.mx.Get("/healthz", s.Healthz)
	s.mx.Route("/gateway", func(r chi.Router) {
		r.Post("/databases", s.ListDatabases)
		r.Post("/widget-data", s.WidgetData)
		r.Post("/random-praise", s.RandomPraise)
		r.Post("/save-routine", s.SaveRoutine)
	})
	s.mx.Post("/debug/log", s.DebugLog)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mx.ServeHTTP(w, r)
}

func (s *Server) Run(address string) error {
	s.srv = &http.Server{
		Addr:              address,
		Handler:           s.mx,
		ReadHeaderTimeout: 5 * time.Second,
	}
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
