package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	errorvalues "github.com/limbo/routinewidget/internal/error_values"
	"github.com/limbo/routinewidget/internal/service"
	"github.com/limbo/routinewidget/pkg/httputil"
)

type RandomPraiseResponse struct {
	Praise string `json:"praise"`
}

type SaveRoutineResponse struct {
	Success bool `json:"success"`
}

// decodeBody reads a JSON request. An empty body decodes to the zero request so
// the missing fields are reported by validation.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return sonic.ConfigDefault.Unmarshal(raw, v)
}

// writeGatewayError maps service errors to 400 or 500. action prefixes the 500 message.
func writeGatewayError(w http.ResponseWriter, logger *slog.Logger, action string, err error) {
	switch {
	case errors.Is(err, errorvalues.ErrValidation):
		logger.Warn(action+" error: invalid request", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errorvalues.ErrUpstream):
		logger.Error(action+" error: upstream error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "failed to "+action+": "+err.Error())
	default:
		logger.Error(action+" error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "failed to "+action+": "+err.Error())
	}
}

func (s *Server) ListDatabases(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req service.DatabasesRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("listing databases error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()
	result, err := s.gatewayService.ListDatabases(ctx, &req)
	if err != nil {
		writeGatewayError(w, logger, "fetch databases", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, result)
	logger.Info("databases listed", slog.Int("count", len(result.Items)))
}

func (s *Server) WidgetData(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req service.WidgetDataRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("widget data error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()
	data, err := s.gatewayService.WidgetData(ctx, &req)
	if err != nil {
		writeGatewayError(w, logger, "fetch widget data", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, data)
	logger.Info("widget data served")
}

func (s *Server) RandomPraise(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req service.RandomPraiseRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("random praise error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()
	praise, err := s.gatewayService.RandomPraise(ctx, &req)
	if err != nil {
		writeGatewayError(w, logger, "fetch random praise", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, RandomPraiseResponse{Praise: praise})
}

func (s *Server) SaveRoutine(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req service.SaveRoutineRequest
	if err := decodeBody(r, &req); err != nil {
		logger.Error("saving routine error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()
	if err := s.gatewayService.SaveRoutine(ctx, &req); err != nil {
		writeGatewayError(w, logger, "save routine", err)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, SaveRoutineResponse{Success: true})
	logger.Info("routine saved", slog.Int("completed", req.CompletedCount), slog.Int("total", req.TotalCount))
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
