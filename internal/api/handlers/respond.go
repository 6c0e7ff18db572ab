package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/motia-studio/engine/internal/api/middleware"
	"github.com/motia-studio/engine/internal/api/types"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; project files travel inline.
const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{
		Success: true,
		Data:    data,
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

// writeError picks the status from the error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.HTTPStatus(appErr.CodeOf(err))
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed", zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   types.FromAppError(err),
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeErrorStr(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: string(appErr.CodeInvalid), Message: msg},
		Meta:    &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
