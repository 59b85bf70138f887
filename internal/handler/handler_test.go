package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/labellens-service/internal/blobref"
	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/coord"
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
	"github.com/ridwanfathin/labellens-service/internal/history"
	"github.com/ridwanfathin/labellens-service/internal/model"
	"github.com/ridwanfathin/labellens-service/internal/notify"
	"github.com/ridwanfathin/labellens-service/internal/repository"
	"github.com/ridwanfathin/labellens-service/internal/service"
	"github.com/ridwanfathin/labellens-service/internal/session"
	"github.com/ridwanfathin/labellens-service/internal/syncer"
)

type testApp struct {
	router  *gin.Engine
	store   *repository.MemoryStore
	monitor *connectivity.Monitor
	feed    *notify.Feed
	ctrl    *session.Controller
	engine  *syncer.Engine
	proj    *history.Projection
}

func newTestApp(t *testing.T, online bool) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	monitor := connectivity.NewMonitor(online)
	c := coord.New()
	clock := domain.NewKeyClock()
	refs := blobref.NewRegistry()
	feed := notify.NewFeed(50)
	logger := zerolog.Nop()

	ex := extraction.ExtractorFunc(func(context.Context, []byte, string) (domain.Extracted, error) {
		return domain.Extracted{
			ProductName:       "Masala Tea",
			BatchNo:           "MT-01",
			ManufacturingDate: "01.01.25",
			ExpiryDate:        "01.01.26",
			MRP:               "120",
			Weight:            "250g",
		}, nil
	})

	proj := history.NewProjection(store, refs, feed, logger)
	engine := syncer.NewEngine(syncer.Deps{
		Store: store, Extractor: ex, Monitor: monitor, Coordinator: c,
		Clock: clock, Sink: feed, History: proj, Logger: logger,
	}, syncer.Options{StatusDelay: time.Millisecond})
	ctrl := session.NewController(session.Deps{
		Store: store, Extractor: ex, Monitor: monitor, Coordinator: c,
		Clock: clock, Refs: refs, Sink: feed, History: proj, Logger: logger,
	})
	t.Cleanup(func() {
		_ = ctrl.Close(context.Background())
		engine.Wait()
		engine.Close()
	})

	scan := NewScanHandler(ctrl)
	queue := NewQueueHandler(service.NewQueueService(store, engine, c, feed, logger), engine, monitor)
	products := NewProductHandler(proj, ctrl, refs)
	notifications := NewNotificationHandler(feed)

	r := gin.New()
	v1 := r.Group("/v1")
	v1.POST("/scan/files", scan.SelectFiles)
	v1.POST("/scan/queue", scan.SelectQueued)
	v1.GET("/scan/session", scan.GetSession)
	v1.PATCH("/scan/session/fields", scan.ChangeField)
	v1.POST("/scan/session/confirm", scan.Confirm)
	v1.POST("/scan/session/skip", scan.Skip)
	v1.POST("/scan/session/cancel", scan.Cancel)
	v1.GET("/queue", queue.ListQueue)
	v1.GET("/queue/:id/image", queue.GetQueueImage)
	v1.PATCH("/queue/:id", queue.UpdateQueueItem)
	v1.DELETE("/queue/:id", queue.DeleteQueueItem)
	v1.POST("/sync", queue.Sync)
	v1.GET("/connectivity", queue.GetConnectivity)
	v1.PUT("/connectivity", queue.SetConnectivity)
	v1.POST("/scan/session/suggestion", products.ApplySuggestion)
	v1.GET("/products", products.ListProducts)
	v1.GET("/products/names", products.ListProductNames)
	v1.DELETE("/products", products.DeleteAllProducts)
	v1.DELETE("/products/:serial", products.DeleteProduct)
	v1.POST("/products/:serial/edit", products.EditProduct)
	v1.GET("/images/:ref", products.GetImage)
	v1.GET("/notifications", notifications.ListNotifications)

	return &testApp{router: r, store: store, monitor: monitor, feed: feed, ctrl: ctrl, engine: engine, proj: proj}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) upload(t *testing.T, fields map[string]string, files ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range files {
		part, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		require.NoError(t, png.Encode(part, image.NewGray(image.Rect(0, 0, 4, 4))))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/scan/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestScanFlow_Online(t *testing.T) {
	app := newTestApp(t, true)

	w := app.upload(t, map[string]string{"bagNo": "12"}, "tea.png")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	sel := decode[model.SelectFilesResponse](t, w)
	assert.True(t, sel.Started)
	assert.Equal(t, 1, sel.Total)

	app.ctrl.Wait()
	w = app.do(t, http.MethodGet, "/v1/scan/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[model.SessionResponse](t, w)
	assert.Equal(t, session.StateReviewing, snap.State)
	assert.Equal(t, "Masala Tea", snap.Record.ProductName)
	assert.Equal(t, "12", snap.Record.BagNo)
	assert.False(t, snap.CanConfirm)
	assert.True(t, strings.HasPrefix(snap.ImageURL, model.ImagePath))

	w = app.do(t, http.MethodGet, snap.ImageURL, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = app.do(t, http.MethodPost, "/v1/scan/session/confirm", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errResp := decode[model.ErrorResponse](t, w)
	require.Len(t, errResp.Details, 1)
	assert.Equal(t, "Quantity", errResp.Details[0].Field)

	w = app.do(t, http.MethodPatch, "/v1/scan/session/fields", model.ChangeFieldRequest{Field: "Quantity", Value: "3"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[model.SessionResponse](t, w).CanConfirm)

	w = app.do(t, http.MethodPost, "/v1/scan/session/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirm := decode[model.ConfirmResponse](t, w)
	assert.NotZero(t, confirm.Timestamp)
	assert.Equal(t, session.StateIdle, confirm.Session.State)

	w = app.do(t, http.MethodGet, "/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[model.ProductsListResponse](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, 1, list.Data[0].Serial)
	assert.Equal(t, "3", list.Data[0].Details.Quantity)
	assert.NotEmpty(t, list.Data[0].ImageURL)

	w = app.do(t, http.MethodGet, "/v1/notifications?after=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode[[]notify.Notification](t, w)
	require.NotEmpty(t, notes)
	assert.Equal(t, session.MsgProductAdded, notes[len(notes)-1].Message)
}

func TestScanFlow_OfflineQueuesThenSyncs(t *testing.T) {
	app := newTestApp(t, false)

	w := app.upload(t, map[string]string{"quantity": "2", "bagNo": "7"}, "a.png", "b.png")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	sel := decode[model.SelectFilesResponse](t, w)
	assert.False(t, sel.Started)
	assert.Len(t, sel.Queued, 2)

	w = app.do(t, http.MethodGet, "/v1/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	queue := decode[model.QueueListResponse](t, w)
	require.Equal(t, 2, queue.Total)
	assert.Equal(t, "7", queue.Data[0].Prefilled[domain.FieldBagNo])

	w = app.do(t, http.MethodPost, "/v1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[model.SyncResponse](t, w).Started, "offline: no pass")

	w = app.do(t, http.MethodPut, "/v1/connectivity", map[string]bool{"online": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[model.ConnectivityResponse](t, w).Online)

	w = app.do(t, http.MethodPost, "/v1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[model.SyncResponse](t, w)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 0, res.Pending)

	w = app.do(t, http.MethodGet, "/v1/products?sort=Quantity&direction=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[model.ProductsListResponse](t, w).Data, 2)
}

func TestQueueEndpoints(t *testing.T) {
	app := newTestApp(t, false)
	id, err := app.store.Enqueue(context.Background(), domain.QueuedImage{Filename: "a.png", MIMEType: "image/png", Image: []byte("png")})
	require.NoError(t, err)

	w := app.do(t, http.MethodGet, "/v1/queue/1/image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	w = app.do(t, http.MethodPatch, "/v1/queue/1", model.UpdateQueueFieldsRequest{Fields: map[string]string{"MRP": "50"}})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodPatch, "/v1/queue/1", model.UpdateQueueFieldsRequest{Fields: map[string]string{"Colour": "red"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = app.do(t, http.MethodGet, "/v1/queue/99/image", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodDelete, "/v1/queue/0", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = app.do(t, http.MethodDelete, "/v1/queue/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err = app.store.GetPending(context.Background(), id)
	assert.True(t, domain.IsNotFound(err))
}

func TestSessionConflicts(t *testing.T) {
	app := newTestApp(t, true)

	w := app.do(t, http.MethodPost, "/v1/scan/session/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPost, "/v1/scan/queue", model.SelectQueuedRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "empty queue")

	w = app.upload(t, nil, "a.png")
	require.Equal(t, http.StatusAccepted, w.Code)
	w = app.upload(t, nil, "b.png")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPost, "/v1/scan/session/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.StateIdle, decode[model.SessionResponse](t, w).State)
}

func TestProductEndpoints(t *testing.T) {
	app := newTestApp(t, true)
	for i, name := range []string{"Tea", "Rice"} {
		_, err := app.store.AddConfirmed(context.Background(), domain.ConfirmedProduct{
			Timestamp: int64(100 + i),
			Details:   domain.ProductDetails{ProductName: name, BagNo: "1", Quantity: "1"},
			Image:     []byte(name),
			MIMEType:  "image/jpeg",
		})
		require.NoError(t, err)
	}
	require.NoError(t, app.proj.Reload(context.Background()))

	w := app.do(t, http.MethodGet, "/v1/products?sort=Colour", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/v1/products?direction=up", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodDelete, "/v1/products/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPost, "/v1/products/2/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[model.SessionResponse](t, w)
	assert.Equal(t, session.ModeEdit, snap.Mode)
	assert.Equal(t, "Rice", snap.Record.ProductName)

	w = app.do(t, http.MethodPost, "/v1/products/1/edit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPost, "/v1/scan/session/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodDelete, "/v1/products/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/v1/products", nil)
	list := decode[model.ProductsListResponse](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Rice", list.Data[0].Details.ProductName)

	w = app.do(t, http.MethodDelete, "/v1/products", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/v1/images/not-a-ref", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductSuggestions(t *testing.T) {
	app := newTestApp(t, true)
	for i, d := range []domain.ProductDetails{
		{ProductName: "GREEN TEA", Weight: "100g", MRP: "45"},
		{ProductName: "BASMATI RICE", Weight: "1kg", MRP: domain.NotFound},
	} {
		_, err := app.store.AddConfirmed(context.Background(), domain.ConfirmedProduct{
			Timestamp: int64(100 + i), Details: d, Image: []byte("img"), MIMEType: "image/png",
		})
		require.NoError(t, err)
	}
	require.NoError(t, app.proj.Reload(context.Background()))

	w := app.do(t, http.MethodGet, "/v1/products/names?q=tea", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"GREEN TEA"}, decode[model.ProductNamesResponse](t, w).Data)

	w = app.do(t, http.MethodPost, "/v1/scan/session/suggestion", model.ApplySuggestionRequest{ProductName: "green tea"})
	assert.Equal(t, http.StatusConflict, w.Code, "nothing under review")

	w = app.upload(t, nil, "tea.png")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	app.ctrl.Wait()

	w = app.do(t, http.MethodPost, "/v1/scan/session/suggestion", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/v1/scan/session/suggestion", model.ApplySuggestionRequest{ProductName: "green tea"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[model.SessionResponse](t, w)
	assert.Equal(t, "GREEN TEA", snap.Record.ProductName)
	assert.Equal(t, "100g", snap.Record.Weight)
	assert.Equal(t, "45", snap.Record.MRP)

	w = app.do(t, http.MethodPost, "/v1/scan/session/suggestion", model.ApplySuggestionRequest{ProductName: "basmati rice"})
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[model.SessionResponse](t, w)
	assert.Equal(t, "BASMATI RICE", snap.Record.ProductName)
	assert.Equal(t, "1kg", snap.Record.Weight)
	assert.Equal(t, "45", snap.Record.MRP, "sentinel MRP is not carried over")
}

func TestNotifications_InvalidAfter(t *testing.T) {
	app := newTestApp(t, true)
	w := app.do(t, http.MethodGet, "/v1/notifications?after=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
