package httputil

import (
	"net/http"

	"github.com/bytedance/sonic"
)

// ErrorResponse is the single error shape every endpoint answers with.
type ErrorResponse struct {
	Error string `json:"error"`
}

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, User-Agent, X-Widget-Viewport, X-Widget-Referrer, X-Widget-Client",
}

func SetCORSHeaders(w http.ResponseWriter) {
	for k, v := range corsHeaders {
		w.Header().Set(k, v)
	}
}

// WritePreflight answers an OPTIONS request with no body.
func WritePreflight(w http.ResponseWriter) {
	SetCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	SetCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	sonic.ConfigFastest.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func WriteJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	SetCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		sonic.ConfigDefault.NewEncoder(w).Encode(body)
	}
}
