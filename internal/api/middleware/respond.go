package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/motia-studio/engine/internal/api/types"
	appErr "github.com/motia-studio/engine/pkg/errors"
)

func writeError(w http.ResponseWriter, r *http.Request, code appErr.Code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(types.HTTPStatus(code))
	_ = json.NewEncoder(w).Encode(types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: string(code), Message: msg},
		Meta:    &types.Meta{RequestID: GetRequestID(r.Context())},
	})
}
