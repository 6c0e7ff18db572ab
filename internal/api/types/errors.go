package types

import (
	"errors"
	"net/http"

	appErr "github.com/motia-studio/engine/pkg/errors"
)

func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if errors.As(err, &e) {
		return &APIError{Code: string(e.Code), Message: e.Message}
	}
	return &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
}

// HTTPStatus maps an error code to its response status.
func HTTPStatus(code appErr.Code) int {
	switch code {
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeNotReady, appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeConflict:
		return http.StatusConflict
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeRateLimited:
		return http.StatusTooManyRequests
	case appErr.CodeGenerationFailure:
		return http.StatusBadGateway
	case appErr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
