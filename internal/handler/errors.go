package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/repository"
)

// logError records a failed request on the request-scoped logger
func logError(c *gin.Context, event string, err error, fields map[string]interface{}) {
	logger := log.Ctx(c.Request.Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}
	logger.Error().
		Err(err).
		Str("event", event).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Fields(fields).
		Msg("request failed")
}

// respondError maps a domain or service error onto the HTTP error envelope
func respondError(c *gin.Context, event string, err error) {
	var (
		validation *domain.ValidationError
		fileRead   *domain.FileReadError
		storage    *domain.StorageError
	)

	switch {
	case errors.As(err, &validation):
		respondUnprocessableEntity(c, ErrValidation, newErrorDetails(validation.Fields)...)
	case domain.IsNotFound(err), errors.Is(err, repository.ErrOrderNotFound):
		respondNotFound(c, ErrResourceNotFound)
	case errors.Is(err, domain.ErrSessionBusy):
		respondConflict(c, ErrSessionBusy)
	case errors.Is(err, domain.ErrItemBusy):
		respondConflict(c, ErrItemBusy)
	case errors.Is(err, domain.ErrNoActiveRecord):
		respondConflict(c, ErrNoActiveRecord)
	case errors.Is(err, domain.ErrNothingToProcess):
		respondUnprocessableEntity(c, ErrNothingToProcess)
	case errors.As(err, &fileRead):
		respondUnprocessableEntity(c, ErrUnreadableFile, newErrorDetail(fileRead.Name, fileRead.Error()))
	case errors.As(err, &storage):
		logError(c, event, err, map[string]interface{}{"error_type": "storage_error", "op": storage.Op})
		respondInternalServerError(c, ErrStorage)
	default:
		logError(c, event, err, map[string]interface{}{"error_type": "internal_error"})
		respondInternalServerError(c, ErrInternalServer)
	}
}
