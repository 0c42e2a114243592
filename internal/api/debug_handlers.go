package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/limbo/routinewidget/pkg/entity"
	"github.com/limbo/routinewidget/pkg/httputil"
)

// MaxLogBody caps the debug sink request body in bytes.
const MaxLogBody = 10_000

const (
	ViewportHeader = "X-Widget-Viewport"
	ReferrerHeader = "X-Widget-Referrer"
)

type DebugLogResponse struct {
	OK bool `json:"ok"`
}

func headerOr(r *http.Request, name, fallback string) string {
	if v := r.Header.Get(name); v != "" {
		return v
	}
	return fallback
}

// sanitizeLog keeps the known entry fields and drops everything else.
func sanitizeLog(raw map[string]any) entity.LogEntry {
	entry := entity.LogEntry{Level: entity.LevelInfo}
	switch id := raw["id"].(type) {
	case string:
		entry.ID = id
	case float64:
		entry.ID = fmt.Sprint(int64(id))
	}
	if ts, ok := raw["timestamp"].(float64); ok {
		entry.Timestamp = int64(ts)
	}
	switch lvl := entity.LogLevel(fmt.Sprint(raw["level"])); lvl {
	case entity.LevelInfo, entity.LevelWarn, entity.LevelError:
		entry.Level = lvl
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
	} else if raw["message"] != nil {
		entry.Message = fmt.Sprint(raw["message"])
	}
	if meta, ok := raw["meta"].(map[string]any); ok {
		entry.Meta = meta
	}
	return entry
}

func (s *Server) DebugLog(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	if r.ContentLength > MaxLogBody {
		logger.Warn("debug log rejected: declared body too large", slog.Int64("length", r.ContentLength))
		httputil.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxLogBody+1))
	if err != nil {
		logger.Error("debug log error: reading body", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(body) > MaxLogBody {
		logger.Warn("debug log rejected: body too large")
		httputil.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	var payload map[string]any
	if err := sonic.Unmarshal(body, &payload); err != nil || payload == nil {
		logger.Warn("debug log rejected: invalid payload")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid payload")
		return
	}
	rawLog, ok := payload["log"].(map[string]any)
	if !ok {
		logger.Warn("debug log rejected: missing log")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "missing log payload")
		return
	}
	userAgent, _ := payload["userAgent"].(string)

	rec := entity.RemoteLog{
		Log:        sanitizeLog(rawLog),
		UserAgent:  userAgent,
		Viewport:   headerOr(r, ViewportHeader, "unknown"),
		Referrer:   headerOr(r, ReferrerHeader, "unknown"),
		ReceivedAt: time.Now().UTC(),
	}
	logger.Info("[widget-log]",
		slog.String("log_id", rec.Log.ID),
		slog.String("level", string(rec.Log.Level)),
		slog.String("message", rec.Log.Message),
		slog.Any("meta", rec.Log.Meta),
		slog.Int64("timestamp", rec.Log.Timestamp),
		slog.String("user_agent", rec.UserAgent),
		slog.String("viewport", rec.Viewport),
		slog.String("referrer", rec.Referrer),
	)

	if s.logsRepo != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if _, err := s.logsRepo.Save(ctx, &rec); err != nil {
			logger.Error("debug log error: storing log", slog.String("error", err.Error()))
		}
	}
	httputil.WriteJSONResponse(w, http.StatusOK, DebugLogResponse{OK: true})
}
