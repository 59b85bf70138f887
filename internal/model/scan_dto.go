package model

import (
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/service"
	"github.com/ridwanfathin/labellens-service/internal/session"
	"github.com/ridwanfathin/labellens-service/internal/syncer"
)

// SelectQueuedRequest starts a review batch from queued items
type SelectQueuedRequest struct {
	IDs []int64 `json:"ids"`
}

// ChangeFieldRequest edits one field of the record under review
type ChangeFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// SessionResponse is the scan session as seen by the client
type SessionResponse struct {
	session.Snapshot
	ImageURL string `json:"imageUrl,omitempty"`
}

// NewSessionResponse wraps a snapshot
func NewSessionResponse(s session.Snapshot) SessionResponse {
	resp := SessionResponse{Snapshot: s}
	if s.ImageRef != "" {
		resp.ImageURL = ImagePath + s.ImageRef
	}
	return resp
}

// SelectFilesResponse reports whether files started a batch or were queued
type SelectFilesResponse struct {
	session.SelectResult
	Session SessionResponse `json:"session"`
}

// ConfirmResponse is returned after a record is committed
type ConfirmResponse struct {
	Timestamp int64           `json:"timestamp"`
	Session   SessionResponse `json:"session"`
}

// QueueListResponse lists pending items
type QueueListResponse struct {
	Data  []service.QueueEntry `json:"data"`
	Total int                  `json:"total"`
}

// UpdateQueueFieldsRequest merges operator input into a queued item
type UpdateQueueFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// ToPartial converts the request to domain fields
func (r UpdateQueueFieldsRequest) ToPartial() domain.PartialDetails {
	out := make(domain.PartialDetails, len(r.Fields))
	for k, v := range r.Fields {
		out[domain.Field(k)] = v
	}
	return out
}

// SyncResponse reports an explicit drain pass
type SyncResponse struct {
	syncer.PassResult
	Pending int `json:"pending"`
}

// ConnectivityRequest sets the connectivity signal
type ConnectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// ConnectivityResponse reports the connectivity signal
type ConnectivityResponse struct {
	Online bool `json:"online"`
}
