package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/model"
	"github.com/ridwanfathin/labellens-service/internal/service"
	"github.com/ridwanfathin/labellens-service/internal/syncer"
)

// Syncer runs an explicit drain pass
type Syncer interface {
	Trigger(ctx context.Context) (syncer.PassResult, error)
}

// QueueHandler handles HTTP requests for the pending queue, sync and connectivity
type QueueHandler struct {
	queueService service.QueueService
	syncer       Syncer
	monitor      *connectivity.Monitor
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueService service.QueueService, s Syncer, monitor *connectivity.Monitor) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		syncer:       s,
		monitor:      monitor,
	}
}

// ListQueue handles the GET /v1/queue endpoint
// @Summary List pending images
// @Description Items waiting for extraction, oldest first, with their sync status
// @Tags queue
// @Produce json
// @Success 200 {object} model.QueueListResponse
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/queue [get]
func (h *QueueHandler) ListQueue(c *gin.Context) {
	entries, err := h.queueService.List(c.Request.Context())
	if err != nil {
		respondError(c, "failed_to_list_queue", err)
		return
	}
	respondOK(c, model.QueueListResponse{Data: entries, Total: len(entries)})
}

// GetQueueImage handles the GET /v1/queue/:id/image endpoint
// @Summary Pending image bytes
// @Tags queue
// @Produce octet-stream
// @Param id path int true "Queue id"
// @Success 200 {file} binary
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Router /v1/queue/{id}/image [get]
func (h *QueueHandler) GetQueueImage(c *gin.Context) {
	id, err := getPathInt64(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidID, newErrorDetail("id", err.Error()))
		return
	}

	data, mimeType, err := h.queueService.Image(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed_to_get_queue_image", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(StatusOK, mimeType, data)
}

// UpdateQueueItem handles the PATCH /v1/queue/:id endpoint
// @Summary Edit prefilled fields of a pending image
// @Tags queue
// @Accept json
// @Produce json
// @Param id path int true "Queue id"
// @Param request body model.UpdateQueueFieldsRequest true "Fields to merge"
// @Success 204
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Failure 409 {object} model.ErrorResponse "Item is being processed"
// @Failure 422 {object} model.ErrorResponse "Unknown field"
// @Router /v1/queue/{id} [patch]
func (h *QueueHandler) UpdateQueueItem(c *gin.Context) {
	id, err := getPathInt64(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidID, newErrorDetail("id", err.Error()))
		return
	}

	var req model.UpdateQueueFieldsRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput)
		return
	}

	if err := h.queueService.UpdateFields(c.Request.Context(), id, req.ToPartial()); err != nil {
		respondError(c, "failed_to_update_queue_item", err)
		return
	}
	respondNoContent(c)
}

// DeleteQueueItem handles the DELETE /v1/queue/:id endpoint
// @Summary Remove a pending image
// @Tags queue
// @Param id path int true "Queue id"
// @Success 204
// @Failure 409 {object} model.ErrorResponse "Item is being processed"
// @Failure 422 {object} model.ErrorResponse "Invalid id"
// @Router /v1/queue/{id} [delete]
func (h *QueueHandler) DeleteQueueItem(c *gin.Context) {
	id, err := getPathInt64(c, "id")
	if err != nil {
		respondUnprocessableEntity(c, ErrInvalidID, newErrorDetail("id", err.Error()))
		return
	}

	if err := h.queueService.Remove(c.Request.Context(), id); err != nil {
		respondError(c, "failed_to_remove_queue_item", err)
		return
	}
	respondNoContent(c)
}

// Sync handles the POST /v1/sync endpoint
// @Summary Run a drain pass now
// @Description Runs one pass if online and idle; otherwise reports that no pass started
// @Tags queue
// @Produce json
// @Success 200 {object} model.SyncResponse
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/sync [post]
func (h *QueueHandler) Sync(c *gin.Context) {
	result, err := h.syncer.Trigger(c.Request.Context())
	if err != nil {
		respondError(c, "failed_to_sync", err)
		return
	}

	entries, err := h.queueService.List(c.Request.Context())
	if err != nil {
		respondError(c, "failed_to_list_queue", err)
		return
	}
	respondOK(c, model.SyncResponse{PassResult: result, Pending: len(entries)})
}

// GetConnectivity handles the GET /v1/connectivity endpoint
// @Summary Connectivity state
// @Tags connectivity
// @Produce json
// @Success 200 {object} model.ConnectivityResponse
// @Router /v1/connectivity [get]
func (h *QueueHandler) GetConnectivity(c *gin.Context) {
	respondOK(c, model.ConnectivityResponse{Online: h.monitor.Online()})
}

// SetConnectivity handles the PUT /v1/connectivity endpoint
// @Summary Set connectivity state
// @Description Going online triggers a drain pass
// @Tags connectivity
// @Accept json
// @Produce json
// @Param request body model.ConnectivityRequest true "State"
// @Success 200 {object} model.ConnectivityResponse
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Router /v1/connectivity [put]
func (h *QueueHandler) SetConnectivity(c *gin.Context) {
	var req model.ConnectivityRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("online", "is required"))
		return
	}

	h.monitor.Set(*req.Online)
	respondOK(c, model.ConnectivityResponse{Online: h.monitor.Online()})
}
