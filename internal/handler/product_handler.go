package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/history"
	"github.com/ridwanfathin/labellens-service/internal/model"
)

// History is the confirmed product list
type History interface {
	All() []history.Entry
	List(q history.Query) []history.Entry
	At(serial int) (history.Entry, error)
	Delete(ctx context.Context, serial int) error
	DeleteAll(ctx context.Context) error
	ProductNames(filter string) []string
	Suggest(name string) history.Suggestion
}

// ImageResolver resolves display references to image bytes
type ImageResolver interface {
	Resolve(ref string) ([]byte, string, bool)
}

// ProductHandler handles HTTP requests for the confirmed product history
type ProductHandler struct {
	history History
	session Session
	images  ImageResolver
}

// NewProductHandler creates a new product handler
func NewProductHandler(h History, s Session, images ImageResolver) *ProductHandler {
	return &ProductHandler{
		history: h,
		session: s,
		images:  images,
	}
}

// ListProducts handles the GET /v1/products endpoint
// @Summary List confirmed products
// @Description Newest first by default; serial numbers follow insertion order regardless of sort or filter
// @Tags products
// @Produce json
// @Param search query string false "Matches product name or batch number"
// @Param sort query string false "timestamp or a detail field name such as Expiry Date"
// @Param direction query string false "asc or desc"
// @Success 200 {object} model.ProductsListResponse
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Router /v1/products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	q := history.Query{
		Search:    c.Query("search"),
		SortKey:   c.Query("sort"),
		Direction: history.Direction(c.Query("direction")),
	}
	if !history.ValidSortKey(q.SortKey) {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("sort", "unknown sort key"))
		return
	}
	if q.Direction != "" && q.Direction != history.Ascending && q.Direction != history.Descending {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("direction", "must be asc or desc"))
		return
	}

	respondOK(c, model.NewProductsListResponse(h.history.List(q), len(h.history.All())))
}

// DeleteProduct handles the DELETE /v1/products/:serial endpoint
// @Summary Delete a confirmed product
// @Tags products
// @Param serial path int true "Serial number"
// @Success 204
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Failure 500 {object} model.ErrorResponse "Storage failure"
// @Router /v1/products/{serial} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	serial, err := strconv.Atoi(c.Param("serial"))
	if err != nil {
		respondBadRequest(c, ErrInvalidID, newErrorDetail("serial", "must be an integer"))
		return
	}

	if err := h.history.Delete(c.Request.Context(), serial); err != nil {
		respondError(c, "failed_to_delete_product", err)
		return
	}
	respondNoContent(c)
}

// DeleteAllProducts handles the DELETE /v1/products endpoint
// @Summary Delete every confirmed product
// @Tags products
// @Success 204
// @Failure 500 {object} model.ErrorResponse "Storage failure"
// @Router /v1/products [delete]
func (h *ProductHandler) DeleteAllProducts(c *gin.Context) {
	if err := h.history.DeleteAll(c.Request.Context()); err != nil {
		respondError(c, "failed_to_delete_all_products", err)
		return
	}
	respondNoContent(c)
}

// EditProduct handles the POST /v1/products/:serial/edit endpoint
// @Summary Open a confirmed product for editing
// @Tags products
// @Produce json
// @Param serial path int true "Serial number"
// @Success 200 {object} model.SessionResponse
// @Failure 404 {object} model.ErrorResponse "Not found"
// @Failure 409 {object} model.ErrorResponse "Session already active"
// @Router /v1/products/{serial}/edit [post]
func (h *ProductHandler) EditProduct(c *gin.Context) {
	serial, err := strconv.Atoi(c.Param("serial"))
	if err != nil {
		respondBadRequest(c, ErrInvalidID, newErrorDetail("serial", "must be an integer"))
		return
	}

	entry, err := h.history.At(serial)
	if err != nil {
		respondError(c, "failed_to_find_product", err)
		return
	}

	if err := h.session.BeginEdit(entry.Timestamp, entry.Details, entry.ImageRef); err != nil {
		respondError(c, "failed_to_begin_edit", err)
		return
	}
	respondOK(c, model.NewSessionResponse(h.session.Snapshot()))
}

// ListProductNames handles the GET /v1/products/names endpoint
// @Summary Known product names
// @Description Distinct product names from the history, newest first, for autocomplete
// @Tags products
// @Produce json
// @Param q query string false "Case-insensitive filter"
// @Success 200 {object} model.ProductNamesResponse
// @Router /v1/products/names [get]
func (h *ProductHandler) ListProductNames(c *gin.Context) {
	respondOK(c, model.ProductNamesResponse{Data: h.history.ProductNames(c.Query("q"))})
}

// ApplySuggestion handles the POST /v1/scan/session/suggestion endpoint
// @Summary Apply a known product name
// @Description Sets the product name (upper-cased) and fills Weight and MRP from the most recent product with that name
// @Tags scan
// @Accept json
// @Produce json
// @Param request body model.ApplySuggestionRequest true "Product name"
// @Success 200 {object} model.SessionResponse
// @Failure 400 {object} model.ErrorResponse "Invalid input"
// @Failure 409 {object} model.ErrorResponse "No record under review"
// @Router /v1/scan/session/suggestion [post]
func (h *ProductHandler) ApplySuggestion(c *gin.Context) {
	var req model.ApplySuggestionRequest
	if err := bindJSON(c, &req); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("productName", "is required"))
		return
	}

	s := h.history.Suggest(req.ProductName)
	changes := []struct {
		field domain.Field
		value string
	}{
		{domain.FieldProductName, s.ProductName},
		{domain.FieldWeight, s.Weight},
		{domain.FieldMRP, s.MRP},
	}
	for _, ch := range changes {
		if ch.value == "" {
			continue
		}
		if err := h.session.ChangeField(string(ch.field), ch.value); err != nil {
			respondError(c, "failed_to_apply_suggestion", err)
			return
		}
	}
	respondOK(c, model.NewSessionResponse(h.session.Snapshot()))
}

// GetImage handles the GET /v1/images/:ref endpoint
// @Summary Resolve a display reference
// @Tags products
// @Produce octet-stream
// @Param ref path string true "Display reference"
// @Success 200 {file} binary
// @Failure 404 {object} model.ErrorResponse "Unknown or revoked reference"
// @Router /v1/images/{ref} [get]
func (h *ProductHandler) GetImage(c *gin.Context) {
	ref, err := getPathParam(c, "ref")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	data, mimeType, ok := h.images.Resolve(ref)
	if !ok {
		respondNotFound(c, ErrResourceNotFound)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(StatusOK, mimeType, data)
}
