package httpadapter

import (
	"net/http"

	"github.com/brainquest/learning-platform/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrUnsupportedFormat),
		domain.IsKind(err, domain.ErrFileMissing):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrResourceNotFound),
		domain.IsKind(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAlreadyProcessing):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
