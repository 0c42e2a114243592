package api

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/limbo/routinewidget/pkg/httputil"
)

type ctxKey string

var (
	requestIDKContextKey ctxKey = "Request-ID"
	loggerContextKey     ctxKey = "Logger"
)

// ClientHeader carries the widget instance id so logs of one embed can be grouped.
const ClientHeader = "X-Widget-Client"

func (s *Server) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New()
		ctx := context.WithValue(r.Context(), requestIDKContextKey, reqID.String())
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) SettingUpLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.Default()
		reqID, ok := r.Context().Value(requestIDKContextKey).(string)
		if ok && reqID != "" {
			logger = logger.With(slog.String("request_id", reqID))
		}
		logger = logger.With(slog.String("from", r.RemoteAddr))
		ctx := context.WithValue(r.Context(), loggerContextKey, logger)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) LoggerExtensionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := GetLoggerFromCtx(r.Context())
		logger = logger.With(slog.String("method", r.Method), slog.String("path", r.URL.Path))
		if client := r.Header.Get(ClientHeader); client != "" {
			logger = logger.With(slog.String("widget_client", client))
		}
		ctx := context.WithValue(r.Context(), loggerContextKey, logger)
		r = r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware answers every preflight itself and marks all other responses cross-origin readable.
func (s *Server) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			httputil.WritePreflight(w)
			return
		}
		httputil.SetCORSHeaders(w)
		next.ServeHTTP(w, r)
	})
}

// RecoverMiddleware turns a handler panic into the usual {error} response.
// chi's Recoverer stays outermost for panics in the middleware chain itself.
func (s *Server) RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			GetLoggerFromCtx(r.Context()).Error("handler panicked",
				slog.Any("panic", rec), slog.String("stack", string(debug.Stack())))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error")
		}()
		next.ServeHTTP(w, r)
	})
}

func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	if ok {
		return logger
	}
	return slog.Default()
}
