package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/labellens-service/internal/notify"
)

// NotificationHandler serves the notification feed to polling clients
type NotificationHandler struct {
	feed *notify.Feed
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(feed *notify.Feed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// ListNotifications handles the GET /v1/notifications endpoint
// @Summary Poll notifications
// @Tags notifications
// @Produce json
// @Param after query int false "Return notifications with a larger id"
// @Success 200 {array} notify.Notification
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Router /v1/notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	after, err := getQueryUint(c, "after", 0)
	if err != nil {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("after", err.Error()))
		return
	}
	respondOK(c, h.feed.Since(after))
}
