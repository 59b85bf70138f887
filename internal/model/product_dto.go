package model

import (
	"time"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/history"
)

// ImagePath is the route prefix under which display references resolve
const ImagePath = "/v1/images/"

// ProductResponse represents one confirmed product in the history list
type ProductResponse struct {
	Serial    int                   `json:"serial"`
	Timestamp int64                 `json:"timestamp"`
	SavedAt   string                `json:"savedAt"`
	Details   domain.ProductDetails `json:"details"`
	ImageURL  string                `json:"imageUrl,omitempty"`
}

// ProductsListResponse represents a filtered, sorted history list
type ProductsListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int               `json:"total"`
	Shown int               `json:"shown"`
}

// ProductNamesResponse lists known product names, newest first
type ProductNamesResponse struct {
	Data []string `json:"data"`
}

// ApplySuggestionRequest picks a known product name for the record under review
type ApplySuggestionRequest struct {
	ProductName string `json:"productName" binding:"required"`
}

// FromEntry converts a history entry to a ProductResponse
func (dto *ProductResponse) FromEntry(e history.Entry) {
	dto.Serial = e.Serial
	dto.Timestamp = e.Timestamp
	dto.SavedAt = time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339)
	dto.Details = e.Details
	if e.ImageRef != "" {
		dto.ImageURL = ImagePath + e.ImageRef
	}
}

// NewProductsListResponse builds the list response for entries out of total
func NewProductsListResponse(entries []history.Entry, total int) ProductsListResponse {
	resp := ProductsListResponse{
		Data:  make([]ProductResponse, 0, len(entries)),
		Total: total,
		Shown: len(entries),
	}
	for _, e := range entries {
		var dto ProductResponse
		dto.FromEntry(e)
		resp.Data = append(resp.Data, dto)
	}
	return resp
}
