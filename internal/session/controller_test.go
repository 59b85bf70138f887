package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/labellens-service/internal/blobref"
	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/coord"
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
	"github.com/ridwanfathin/labellens-service/internal/notify"
	"github.com/ridwanfathin/labellens-service/internal/repository"
)

// pngOfWidth encodes a blank PNG; the width lets a fake extractor tell
// images apart
func pngOfWidth(t *testing.T, w int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, 2))))
	return buf.Bytes()
}

func widthOf(data []byte) int {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return -1
	}
	return cfg.Width
}

func label(name string) domain.Extracted {
	return domain.Extracted{
		ProductName:       name,
		BatchNo:           "BN-" + name,
		ManufacturingDate: "01.01.25",
		ExpiryDate:        "01.01.26",
		MRP:               "45",
		Weight:            "100g",
	}
}

type reloader struct{ calls atomic.Int32 }

func (r *reloader) Reload(context.Context) error {
	r.calls.Add(1)
	return nil
}

type harness struct {
	store   *repository.MemoryStore
	monitor *connectivity.Monitor
	coord   *coord.Coordinator
	refs    *blobref.Registry
	feed    *notify.Feed
	history *reloader
	idle    atomic.Int32
	ctrl    *Controller
}

func newHarness(t *testing.T, online bool, ex extraction.Extractor) *harness {
	t.Helper()
	h := &harness{
		store:   repository.NewMemoryStore(),
		monitor: connectivity.NewMonitor(online),
		coord:   coord.New(),
		refs:    blobref.NewRegistry(),
		feed:    notify.NewFeed(100),
		history: &reloader{},
	}
	h.ctrl = NewController(Deps{
		Store:       h.store,
		Extractor:   ex,
		Monitor:     h.monitor,
		Coordinator: h.coord,
		Clock:       domain.NewKeyClock(),
		Refs:        h.refs,
		Sink:        h.feed,
		History:     h.history,
		Logger:      zerolog.Nop(),
		OnIdle:      func() { h.idle.Add(1) },
	})
	return h
}

func byWidth(names map[int]string) extraction.Extractor {
	return extraction.ExtractorFunc(func(_ context.Context, img []byte, _ string) (domain.Extracted, error) {
		name, ok := names[widthOf(img)]
		if !ok {
			return domain.Extracted{}, &domain.ExtractionError{Op: "generate", Err: errors.New("unreadable label")}
		}
		return label(name), nil
	})
}

func operatorInput(bag, qty string) domain.PartialDetails {
	return domain.PartialDetails{domain.FieldBagNo: bag, domain.FieldQuantity: qty}
}

func TestSelectFiles_OfflineQueues(t *testing.T) {
	var calls atomic.Int32
	ex := extraction.ExtractorFunc(func(context.Context, []byte, string) (domain.Extracted, error) {
		calls.Add(1)
		return domain.Extracted{}, nil
	})
	h := newHarness(t, false, ex)

	res, err := h.ctrl.SelectFiles(context.Background(), []Upload{
		{Name: "a.png", Data: pngOfWidth(t, 3), Prefilled: operatorInput("4", "2")},
		{Name: "b.png", Data: pngOfWidth(t, 4)},
	})
	require.NoError(t, err)
	assert.False(t, res.Started)
	assert.Len(t, res.Queued, 2)

	pending, err := h.store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a.png", pending[0].Filename)
	assert.Equal(t, "image/png", pending[0].MIMEType)
	assert.Equal(t, "4", pending[0].Prefilled[domain.FieldBagNo])

	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
	assert.Zero(t, calls.Load())
	assert.Equal(t, []string{"You're offline. Queuing 2 image(s)."}, h.feed.Messages())
	assert.False(t, h.coord.SessionActive())
}

type fullQueue struct {
	*repository.MemoryStore
	capacity int
}

func (q *fullQueue) Enqueue(ctx context.Context, item domain.QueuedImage) (int64, error) {
	pending, err := q.MemoryStore.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) >= q.capacity {
		return 0, &domain.StorageError{Op: "enqueue", Err: errors.New("quota exceeded")}
	}
	return q.MemoryStore.Enqueue(ctx, item)
}

func TestSelectFiles_OfflineQueueFailureIsNotified(t *testing.T) {
	store := &fullQueue{MemoryStore: repository.NewMemoryStore(), capacity: 1}
	feed := notify.NewFeed(10)
	ctrl := NewController(Deps{
		Store:       store,
		Extractor:   byWidth(nil),
		Monitor:     connectivity.NewMonitor(false),
		Coordinator: coord.New(),
		Clock:       domain.NewKeyClock(),
		Refs:        blobref.NewRegistry(),
		Sink:        feed,
		Logger:      zerolog.Nop(),
	})

	res, err := ctrl.SelectFiles(context.Background(), []Upload{
		{Name: "a.png", Data: pngOfWidth(t, 3)},
		{Name: "b.png", Data: pngOfWidth(t, 4)},
	})
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Len(t, res.Queued, 1)
	assert.Equal(t, []string{
		"You're offline. Queuing 2 image(s).",
		`Failed to queue "b.png". 1 of 2 image(s) were queued.`,
	}, feed.Messages())
}

func TestBatch_ReviewConfirmAdvance(t *testing.T) {
	h := newHarness(t, true, byWidth(map[int]string{3: "Tea", 4: "Rice"}))

	res, err := h.ctrl.SelectFiles(context.Background(), []Upload{
		{Name: "tea.png", Data: pngOfWidth(t, 3), Prefilled: operatorInput("B1", "5")},
		{Name: "rice.png", Data: pngOfWidth(t, 4)},
	})
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.True(t, h.coord.SessionActive())
	assert.False(t, h.coord.TryBeginPass(), "no pass while a session is active")

	h.ctrl.Wait()
	snap := h.ctrl.Snapshot()
	require.Equal(t, StateReviewing, snap.State)
	assert.Equal(t, "tea.png", snap.Filename)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, "Tea", snap.Record.ProductName)
	assert.Equal(t, "B1", snap.Record.BagNo)
	assert.True(t, snap.CanConfirm)

	data, mimeType, ok := h.refs.Resolve(snap.ImageRef)
	require.True(t, ok)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, pngOfWidth(t, 3), data)

	ts1, err := h.ctrl.Confirm(context.Background())
	require.NoError(t, err)
	_, _, ok = h.refs.Resolve(snap.ImageRef)
	assert.False(t, ok, "reference revoked on advance")

	h.ctrl.Wait()
	snap = h.ctrl.Snapshot()
	require.Equal(t, StateReviewing, snap.State)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, "Rice", snap.Record.ProductName)
	assert.False(t, snap.CanConfirm, "bag number and quantity still missing")

	_, err = h.ctrl.Confirm(context.Background())
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))

	require.NoError(t, h.ctrl.ChangeField("Bag No", "B2"))
	require.NoError(t, h.ctrl.ChangeField("Quantity", "1"))
	ts2, err := h.ctrl.Confirm(context.Background())
	require.NoError(t, err)
	assert.Greater(t, ts2, ts1)

	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
	assert.False(t, h.coord.SessionActive())
	assert.EqualValues(t, 1, h.idle.Load())
	assert.EqualValues(t, 2, h.history.calls.Load())
	assert.Equal(t, 0, h.refs.Len())

	confirmed, err := h.store.ListConfirmed(context.Background())
	require.NoError(t, err)
	require.Len(t, confirmed, 2)
	assert.Equal(t, "B2", confirmed[1].Details.BagNo)
	assert.Equal(t, []string{MsgProductAdded, MsgProductAdded}, h.feed.Messages())
}

func TestAnalysis_FailureFallsBack(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		h := newHarness(t, true, byWidth(nil))
		_, err := h.ctrl.SelectFiles(context.Background(), []Upload{
			{Name: "x.png", Data: pngOfWidth(t, 3), Prefilled: domain.PartialDetails{domain.FieldProductName: "Salt"}},
		})
		require.NoError(t, err)
		h.ctrl.Wait()

		snap := h.ctrl.Snapshot()
		require.Equal(t, StateReviewing, snap.State)
		assert.Equal(t, MsgAnalyzeFailed, snap.Error)
		assert.Equal(t, "Salt", snap.Record.ProductName)
		assert.Equal(t, domain.NotFound, snap.Record.BatchNo)
		assert.Equal(t, "", snap.Record.Quantity)
		assert.Equal(t, []string{MsgAnalyzeFailed}, h.feed.Messages())
	})

	t.Run("batch names the file", func(t *testing.T) {
		h := newHarness(t, true, byWidth(nil))
		_, err := h.ctrl.SelectFiles(context.Background(), []Upload{
			{Name: "x.png", Data: pngOfWidth(t, 3)},
			{Name: "y.png", Data: pngOfWidth(t, 4)},
		})
		require.NoError(t, err)
		h.ctrl.Wait()

		assert.Equal(t, `Failed to analyze "x.png". Please correct the details or skip.`, h.ctrl.Snapshot().Error)
	})
}

func TestAnalysis_ReadFailureStops(t *testing.T) {
	var calls atomic.Int32
	ex := extraction.ExtractorFunc(func(context.Context, []byte, string) (domain.Extracted, error) {
		calls.Add(1)
		return label("x"), nil
	})
	h := newHarness(t, true, ex)

	_, err := h.ctrl.SelectFiles(context.Background(), []Upload{{Name: "notes.txt", Data: []byte("plain text")}})
	require.NoError(t, err)
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateAwaitingAnalysis, snap.State)
	assert.Equal(t, MsgReadFailed, snap.Error)
	assert.False(t, snap.Analyzing)
	assert.Nil(t, snap.Record)
	assert.Zero(t, calls.Load())

	assert.ErrorIs(t, h.ctrl.ChangeField("MRP", "1"), domain.ErrNoActiveRecord)

	// the user has to get out manually
	require.NoError(t, h.ctrl.Cancel(context.Background()))
	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
}

func TestAnalysis_StaleResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	ex := extraction.ExtractorFunc(func(_ context.Context, img []byte, _ string) (domain.Extracted, error) {
		if widthOf(img) == 3 {
			<-release
			return label("Slow"), nil
		}
		return label("Fast"), nil
	})
	h := newHarness(t, true, ex)

	_, err := h.ctrl.SelectFiles(context.Background(), []Upload{
		{Name: "slow.png", Data: pngOfWidth(t, 3)},
		{Name: "fast.png", Data: pngOfWidth(t, 4)},
	})
	require.NoError(t, err)

	// move on while the first analysis is still running
	require.NoError(t, h.ctrl.Skip(context.Background()))
	close(release)
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	require.Equal(t, StateReviewing, snap.State)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, "Fast", snap.Record.ProductName)
	assert.Equal(t, 1, h.refs.Len(), "stale result issues no reference")
}

func TestSelectFiles_BusyWhileActive(t *testing.T) {
	h := newHarness(t, true, byWidth(map[int]string{3: "Tea"}))
	_, err := h.ctrl.SelectFiles(context.Background(), []Upload{{Name: "a.png", Data: pngOfWidth(t, 3)}})
	require.NoError(t, err)
	h.ctrl.Wait()

	_, err = h.ctrl.SelectFiles(context.Background(), []Upload{{Name: "b.png", Data: pngOfWidth(t, 3)}})
	assert.ErrorIs(t, err, domain.ErrSessionBusy)
	assert.ErrorIs(t, h.ctrl.BeginEdit(1, domain.ProductDetails{}, ""), domain.ErrSessionBusy)

	_, err = h.ctrl.SelectFiles(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNothingToProcess)
}

func enqueue(t *testing.T, h *harness, name string, w int, prefilled domain.PartialDetails) int64 {
	t.Helper()
	id, err := h.store.Enqueue(context.Background(), domain.QueuedImage{
		Filename:  name,
		MIMEType:  "image/png",
		Image:     pngOfWidth(t, w),
		Prefilled: prefilled,
	})
	require.NoError(t, err)
	return id
}

func TestSelectQueued_ConfirmRemovesFromQueue(t *testing.T) {
	h := newHarness(t, true, byWidth(map[int]string{3: "Tea", 4: "Rice"}))
	first := enqueue(t, h, "tea.png", 3, operatorInput("9", "2"))
	second := enqueue(t, h, "rice.png", 4, nil)

	require.NoError(t, h.ctrl.SelectQueued(context.Background(), nil))
	h.ctrl.Wait()

	snap := h.ctrl.Snapshot()
	assert.True(t, snap.FromQueue)
	owner, ok := h.coord.Claimed(first)
	require.True(t, ok)
	assert.Equal(t, coord.OwnerSession, owner)

	_, err := h.ctrl.Confirm(context.Background())
	require.NoError(t, err)
	h.ctrl.Wait()

	_, err = h.store.GetPending(context.Background(), first)
	assert.True(t, domain.IsNotFound(err))

	// cancelling the last item removes it from the queue
	_, err = h.store.GetPending(context.Background(), second)
	require.NoError(t, err)
	require.NoError(t, h.ctrl.Cancel(context.Background()))

	pending, err := h.store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
	_, claimed := h.coord.Claimed(second)
	assert.False(t, claimed)
	assert.False(t, h.coord.SessionActive())
}

func TestSelectQueued_SkipLeavesQueue(t *testing.T) {
	h := newHarness(t, true, byWidth(map[int]string{3: "Tea", 4: "Rice"}))
	first := enqueue(t, h, "tea.png", 3, nil)
	enqueue(t, h, "rice.png", 4, nil)

	require.NoError(t, h.ctrl.SelectQueued(context.Background(), nil))
	h.ctrl.Wait()
	require.NoError(t, h.ctrl.Skip(context.Background()))
	h.ctrl.Wait()

	_, err := h.store.GetPending(context.Background(), first)
	require.NoError(t, err)
	_, claimed := h.coord.Claimed(first)
	assert.False(t, claimed, "skipped item released for the next pass")
}

func TestSelectQueued_LeavesOutClaimedItems(t *testing.T) {
	h := newHarness(t, true, byWidth(map[int]string{3: "Tea"}))
	busy := enqueue(t, h, "busy.png", 3, nil)
	require.NoError(t, h.coord.ClaimForPass(busy))

	err := h.ctrl.SelectQueued(context.Background(), []int64{busy, 999})
	assert.ErrorIs(t, err, domain.ErrNothingToProcess)
	assert.False(t, h.coord.SessionActive())
	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
}

func TestBeginEdit_ConfirmUpdates(t *testing.T) {
	h := newHarness(t, true, byWidth(nil))
	details := domain.ProductDetails{ProductName: "Tea", BagNo: "1", Quantity: "2", BatchNo: "X"}
	ts, err := h.store.AddConfirmed(context.Background(), domain.ConfirmedProduct{Timestamp: 500, Details: details})
	require.NoError(t, err)

	ref := h.refs.Issue([]byte("img"), "image/png")
	require.NoError(t, h.ctrl.BeginEdit(ts, details, ref))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, ModeEdit, snap.Mode)
	assert.Equal(t, StateReviewing, snap.State)
	assert.Equal(t, ts, snap.EditTimestamp)

	require.NoError(t, h.ctrl.ChangeField("Product Name", "Green Tea"))
	got, err := h.ctrl.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	confirmed, err := h.store.ListConfirmed(context.Background())
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "Green Tea", confirmed[0].Details.ProductName)

	assert.Equal(t, StateIdle, h.ctrl.Snapshot().State)
	_, _, ok := h.refs.Resolve(ref)
	assert.True(t, ok, "edit does not revoke a reference it did not issue")
	assert.Equal(t, []string{MsgProductUpdated}, h.feed.Messages())
}

func TestConfirm_StoreFailureKeepsRecord(t *testing.T) {
	h := newHarness(t, true, byWidth(nil))
	details := domain.ProductDetails{ProductName: "Tea", BagNo: "1", Quantity: "2"}
	require.NoError(t, h.ctrl.BeginEdit(42, details, ""))

	_, err := h.ctrl.Confirm(context.Background())
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, StateReviewing, h.ctrl.Snapshot().State)
	assert.Equal(t, []string{MsgSaveFailed}, h.feed.Messages())
}

func TestActions_RequireActiveRecord(t *testing.T) {
	h := newHarness(t, true, byWidth(nil))
	_, err := h.ctrl.Confirm(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveRecord)
	assert.ErrorIs(t, h.ctrl.Skip(context.Background()), domain.ErrNoActiveRecord)
	assert.ErrorIs(t, h.ctrl.Cancel(context.Background()), domain.ErrNoActiveRecord)
	assert.ErrorIs(t, h.ctrl.ChangeField("MRP", "1"), domain.ErrNoActiveRecord)

	var ve *domain.ValidationError
	assert.True(t, errors.As(h.ctrl.ChangeField("Colour", "red"), &ve))
}

func TestClose_QueuesUnprocessedFiles(t *testing.T) {
	h := newHarness(t, true, byWidth(map[int]string{3: "Tea", 4: "Rice", 5: "Salt"}))
	_, err := h.ctrl.SelectFiles(context.Background(), []Upload{
		{Name: "tea.png", Data: pngOfWidth(t, 3)},
		{Name: "rice.png", Data: pngOfWidth(t, 4), Prefilled: operatorInput("3", "1")},
		{Name: "salt.png", Data: pngOfWidth(t, 5)},
	})
	require.NoError(t, err)
	h.ctrl.Wait()
	require.NoError(t, h.ctrl.Skip(context.Background()))
	h.ctrl.Wait()

	require.NoError(t, h.ctrl.Close(context.Background()))

	pending, err := h.store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "rice.png", pending[0].Filename)
	assert.Equal(t, "3", pending[0].Prefilled[domain.FieldBagNo])
	assert.Equal(t, "salt.png", pending[1].Filename)
	assert.False(t, h.coord.SessionActive())
	assert.Equal(t, 0, h.refs.Len())
}
