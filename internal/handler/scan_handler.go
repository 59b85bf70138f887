package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/model"
	"github.com/ridwanfathin/labellens-service/internal/session"
)

// Session is the scan flow driven by ScanHandler and ProductHandler
type Session interface {
	SelectFiles(ctx context.Context, uploads []session.Upload) (session.SelectResult, error)
	SelectQueued(ctx context.Context, ids []int64) error
	ChangeField(field, value string) error
	Confirm(ctx context.Context) (int64, error)
	Skip(ctx context.Context) error
	Cancel(ctx context.Context) error
	BeginEdit(timestamp int64, details domain.ProductDetails, imageRef string) error
	Snapshot() session.Snapshot
}

// prefill form keys mapped to the fields they populate
var prefillFormFields = map[string]domain.Field{
	"productName": domain.FieldProductName,
	"bagNo":       domain.FieldBagNo,
	"quantity":    domain.FieldQuantity,
}

// ScanHandler handles HTTP requests for the interactive scan flow
type ScanHandler struct {
	session Session
}

// NewScanHandler creates a new scan handler
func NewScanHandler(s Session) *ScanHandler {
	return &ScanHandler{session: s}
}

// SelectFiles handles the POST /v1/scan/files endpoint
// @Summary Select label images
// @Description Start a review batch with the uploaded images, or queue them when offline
// @Tags scan
// @Accept multipart/form-data
// @Produce json
// @Param images formData file true "Label images"
// @Param productName formData string false "Product name applied to every image"
// @Param bagNo formData string false "Bag number applied to every image"
// @Param quantity formData string false "Quantity applied to every image"
// @Success 202 {object} model.SelectFilesResponse
// @Failure 400 {object} model.ErrorResponse "No images"
// @Failure 409 {object} model.ErrorResponse "Session already active"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/scan/files [post]
func (h *ScanHandler) SelectFiles(c *gin.Context) {
	headers, err := getFormFiles(c, "images", "images[]")
	if err != nil {
		respondBadRequest(c, err.Error(), newErrorDetail("images", "At least one image is required"))
		return
	}

	prefilled := domain.PartialDetails{}
	for key, field := range prefillFormFields {
		if v := strings.TrimSpace(c.PostForm(key)); v != "" {
			prefilled[field] = v
		}
	}

	uploads := make([]session.Upload, 0, len(headers))
	for _, header := range headers {
		data, err := readFormFile(header)
		if err != nil {
			logError(c, "failed_to_read_upload", err, map[string]interface{}{
				"error_type": "file_read_error",
				"filename":   header.Filename,
			})
			respondBadRequest(c, ErrFileUpload, newErrorDetail(header.Filename, "could not be read"))
			return
		}
		uploads = append(uploads, session.Upload{Name: header.Filename, Data: data, Prefilled: prefilled})
	}

	result, err := h.session.SelectFiles(c.Request.Context(), uploads)
	if err != nil {
		respondError(c, "failed_to_select_files", err)
		return
	}

	respondAccepted(c, model.SelectFilesResponse{
		SelectResult: result,
		Session:      model.NewSessionResponse(h.session.Snapshot()),
	})
}

// SelectQueued handles the POST /v1/scan/queue endpoint
// @Summary Review queued images
// @Description Start a review batch from pending queue items; an empty list loads the whole queue
// @Tags scan
// @Accept json
// @Produce json
// @Param request body model.SelectQueuedRequest false "Queue ids"
// @Success 202 {object} model.SessionResponse
// @Failure 409 {object} model.ErrorResponse "Session already active"
// @Failure 422 {object} model.ErrorResponse "Nothing to process"
// @Router /v1/scan/queue [post]
func (h *ScanHandler) SelectQueued(c *gin.Context) {
	var req model.SelectQueuedRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			respondBadRequest(c, ErrInvalidInput)
			return
		}
	}

	if err := h.session.SelectQueued(c.Request.Context(), req.IDs); err != nil {
		respondError(c, "failed_to_select_queued", err)
		return
	}
	respondAccepted(c, model.NewSessionResponse(h.session.Snapshot()))
}

// GetSession handles the GET /v1/scan/session endpoint
// @Summary Current scan session
// @Tags scan
// @Produce json
// @Success 200 {object} model.SessionResponse
// @Router /v1/scan/session [get]
func (h *ScanHandler) GetSession(c *gin.Context) {
	respondOK(c, model.NewSessionResponse(h.session.Snapshot()))
}

// ChangeField handles the PATCH /v1/scan/session/fields endpoint
// @Summary Edit the record under review
// @Tags scan
// @Accept json
// @Produce json
// @Param request body model.ChangeFieldRequest true "Field and value"
// @Success 200 {object} model.SessionResponse
// @Failure 409 {object} model.ErrorResponse "No record under review"
// @Failure 422 {object} model.ErrorResponse "Unknown field"
// @Router /v1/scan/session/fields [patch]
func (h *ScanHandler) ChangeField(c *gin.Context) {
	var req model.ChangeFieldRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}

	if err := h.session.ChangeField(req.Field, req.Value); err != nil {
		respondError(c, "failed_to_change_field", err)
		return
	}
	respondOK(c, model.NewSessionResponse(h.session.Snapshot()))
}

// Confirm handles the POST /v1/scan/session/confirm endpoint
// @Summary Confirm the record under review
// @Tags scan
// @Produce json
// @Success 200 {object} model.ConfirmResponse
// @Failure 409 {object} model.ErrorResponse "No record under review"
// @Failure 422 {object} model.ErrorResponse "Required fields missing"
// @Failure 500 {object} model.ErrorResponse "Storage failure"
// @Router /v1/scan/session/confirm [post]
func (h *ScanHandler) Confirm(c *gin.Context) {
	ts, err := h.session.Confirm(c.Request.Context())
	if err != nil {
		respondError(c, "failed_to_confirm", err)
		return
	}
	respondOK(c, model.ConfirmResponse{
		Timestamp: ts,
		Session:   model.NewSessionResponse(h.session.Snapshot()),
	})
}

// Skip handles the POST /v1/scan/session/skip endpoint
// @Summary Skip the current item
// @Tags scan
// @Produce json
// @Success 200 {object} model.SessionResponse
// @Failure 409 {object} model.ErrorResponse "No active session"
// @Router /v1/scan/session/skip [post]
func (h *ScanHandler) Skip(c *gin.Context) {
	if err := h.session.Skip(c.Request.Context()); err != nil {
		respondError(c, "failed_to_skip", err)
		return
	}
	respondOK(c, model.NewSessionResponse(h.session.Snapshot()))
}

// Cancel handles the POST /v1/scan/session/cancel endpoint
// @Summary Cancel the current item
// @Tags scan
// @Produce json
// @Success 200 {object} model.SessionResponse
// @Failure 409 {object} model.ErrorResponse "No active session"
// @Router /v1/scan/session/cancel [post]
func (h *ScanHandler) Cancel(c *gin.Context) {
	if err := h.session.Cancel(c.Request.Context()); err != nil {
		respondError(c, "failed_to_cancel", err)
		return
	}
	respondOK(c, model.NewSessionResponse(h.session.Snapshot()))
}
