package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ridwanfathin/labellens-service/internal/blobref"
	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/coord"
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
	"github.com/ridwanfathin/labellens-service/internal/imageutil"
	"github.com/ridwanfathin/labellens-service/internal/notify"
	"github.com/ridwanfathin/labellens-service/internal/repository"
)

// Messages shown to the user
const (
	MsgReadFailed        = "Could not read the selected file. It might be corrupted or in an unsupported format."
	MsgAnalyzeFailed     = "Failed to analyze the image. Please try another one."
	MsgProductAdded      = "Product added successfully!"
	MsgProductUpdated    = "Product updated successfully!"
	MsgSaveFailed        = "Failed to save changes."
	msgAnalyzeItemFailed = "Failed to analyze %q. Please correct the details or skip."
	msgQueuing           = "You're offline. Queuing %d image(s)."
	msgQueueFailed       = "Failed to queue %q. %d of %d image(s) were queued."
)

// State is where the controller is in the scan flow
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingAnalysis State = "awaiting-analysis"
	StateReviewing        State = "reviewing"
)

// Mode distinguishes adding new products from editing a stored one
type Mode string

const (
	ModeNew  Mode = "new"
	ModeEdit Mode = "edit"
)

// Upload is one file handed to SelectFiles
type Upload struct {
	Name      string
	Data      []byte
	Prefilled domain.PartialDetails
}

// SelectResult reports what SelectFiles did
type SelectResult struct {
	Queued  []int64 `json:"queued,omitempty"`
	Started bool    `json:"started"`
	Total   int     `json:"total"`
}

// Snapshot is a read-only view of the controller
type Snapshot struct {
	State         State                  `json:"state"`
	Mode          Mode                   `json:"mode"`
	Index         int                    `json:"index"`
	Total         int                    `json:"total"`
	Filename      string                 `json:"filename,omitempty"`
	Record        *domain.ProductDetails `json:"record,omitempty"`
	ImageRef      string                 `json:"imageRef,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Analyzing     bool                   `json:"analyzing"`
	FromQueue     bool                   `json:"fromQueue"`
	CanConfirm    bool                   `json:"canConfirm"`
	EditTimestamp int64                  `json:"editTimestamp,omitempty"`
}

// Reloader refreshes the history projection after a commit
type Reloader interface {
	Reload(ctx context.Context) error
}

// Deps are the collaborators of a Controller
type Deps struct {
	Store       repository.Store
	Extractor   extraction.Extractor
	Monitor     *connectivity.Monitor
	Coordinator *coord.Coordinator
	Clock       *domain.KeyClock
	Refs        *blobref.Registry
	Sink        notify.Sink
	History     Reloader
	Logger      zerolog.Logger
	// OnIdle runs every time the controller returns to idle
	OnIdle func()
}

type batchItem struct {
	name      string
	data      []byte
	mimeType  string
	prefilled domain.PartialDetails
	// queueID is non-zero when the item was loaded from the pending queue
	queueID int64
}

// Controller runs the single interactive scan flow. User actions are
// serialized; analysis runs in the background and its result is discarded if
// the user has moved on by the time it arrives.
type Controller struct {
	store     repository.Store
	extractor extraction.Extractor
	monitor   *connectivity.Monitor
	coord     *coord.Coordinator
	clock     *domain.KeyClock
	refs      *blobref.Registry
	sink      notify.Sink
	history   Reloader
	logger    zerolog.Logger
	onIdle    func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// opMu serializes user actions
	opMu sync.Mutex

	mu        sync.Mutex
	state     State
	mode      Mode
	batch     []batchItem
	index     int
	record    domain.ProductDetails
	imageRef  string
	ownsRef   bool
	errMsg    string
	analyzing bool
	editTS    int64
	// gen identifies the current item; an analysis result carrying an older
	// value is stale
	gen uint64
}

// NewController creates an idle controller
func NewController(deps Deps) *Controller {
	if deps.Sink == nil {
		deps.Sink = notify.Discard
	}
	if deps.OnIdle == nil {
		deps.OnIdle = func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:     deps.Store,
		extractor: deps.Extractor,
		monitor:   deps.Monitor,
		coord:     deps.Coordinator,
		clock:     deps.Clock,
		refs:      deps.Refs,
		sink:      deps.Sink,
		history:   deps.History,
		logger:    deps.Logger.With().Str("component", "session").Logger(),
		onIdle:    deps.OnIdle,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
		mode:      ModeNew,
	}
}

// SelectFiles starts a batch, or queues the files when offline
func (c *Controller) SelectFiles(ctx context.Context, uploads []Upload) (SelectResult, error) {
	if len(uploads) == 0 {
		return SelectResult{}, domain.ErrNothingToProcess
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.monitor.Online() {
		return c.enqueueUploads(ctx, uploads)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle || !c.coord.BeginSession() {
		return SelectResult{}, domain.ErrSessionBusy
	}

	batch := make([]batchItem, 0, len(uploads))
	for _, u := range uploads {
		batch = append(batch, batchItem{
			name:      u.Name,
			data:      u.Data,
			mimeType:  imageutil.DetectMIME(u.Data),
			prefilled: u.Prefilled.Clone(),
		})
	}
	c.startBatch(batch)

	c.logger.Info().Int("total", len(batch)).Msg("batch started")
	return SelectResult{Started: true, Total: len(batch)}, nil
}

func (c *Controller) enqueueUploads(ctx context.Context, uploads []Upload) (SelectResult, error) {
	c.sink.Notify(fmt.Sprintf(msgQueuing, len(uploads)), notify.Info)

	result := SelectResult{Total: len(uploads)}
	for _, u := range uploads {
		id, err := c.store.Enqueue(ctx, domain.QueuedImage{
			Filename:  u.Name,
			MIMEType:  imageutil.DetectMIME(u.Data),
			Image:     u.Data,
			Prefilled: u.Prefilled.Clone(),
		})
		if err != nil {
			c.logger.Error().Err(err).Str("filename", u.Name).Msg("failed to queue image")
			c.sink.Notify(fmt.Sprintf(msgQueueFailed, u.Name, len(result.Queued), len(uploads)), notify.Error)
			return result, err
		}
		result.Queued = append(result.Queued, id)
	}

	c.logger.Info().Int("count", len(result.Queued)).Msg("images queued while offline")
	return result, nil
}

// SelectQueued starts a batch from pending queue items. An empty id list
// loads the whole queue. Items a sync pass is processing are left out.
func (c *Controller) SelectQueued(ctx context.Context, ids []int64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.state != StateIdle || !c.coord.BeginSession() {
		c.mu.Unlock()
		return domain.ErrSessionBusy
	}
	c.mu.Unlock()

	batch, err := c.loadQueued(ctx, ids)
	if err != nil || len(batch) == 0 {
		for _, item := range batch {
			c.coord.Release(item.queueID)
		}
		c.coord.EndSession()
		if err == nil {
			err = domain.ErrNothingToProcess
		}
		return err
	}

	c.mu.Lock()
	c.startBatch(batch)
	c.mu.Unlock()

	c.logger.Info().Int("total", len(batch)).Msg("batch started from queue")
	return nil
}

func (c *Controller) loadQueued(ctx context.Context, ids []int64) ([]batchItem, error) {
	var items []domain.QueuedImage
	if len(ids) == 0 {
		pending, err := c.store.ListPending(ctx)
		if err != nil {
			return nil, err
		}
		items = pending
	} else {
		for _, id := range ids {
			item, err := c.store.GetPending(ctx, id)
			if domain.IsNotFound(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	batch := make([]batchItem, 0, len(items))
	for _, item := range items {
		if err := c.coord.ClaimForSession(item.ID); err != nil {
			c.logger.Debug().Int64("queue_id", item.ID).Msg("item busy, left out of batch")
			continue
		}
		batch = append(batch, batchItem{
			name:      item.DisplayName(),
			data:      item.Image,
			mimeType:  item.MIMEType,
			prefilled: item.Prefilled.Clone(),
			queueID:   item.ID,
		})
	}
	return batch, nil
}

// startBatch must be called with mu held
func (c *Controller) startBatch(batch []batchItem) {
	c.batch = batch
	c.index = 0
	c.mode = ModeNew
	c.startAnalysis()
}

// startAnalysis begins analysing batch[index]. It must be called with mu held.
func (c *Controller) startAnalysis() {
	c.dropRef()
	c.gen++
	c.state = StateAwaitingAnalysis
	c.record = domain.ProductDetails{}
	c.errMsg = ""
	c.analyzing = true

	gen := c.gen
	item := c.batch[c.index]
	multi := len(c.batch) > 1

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.analyze(gen, item, multi)
	}()
}

func (c *Controller) analyze(gen uint64, item batchItem, multi bool) {
	log := c.logger.With().Str("filename", item.name).Uint64("gen", gen).Logger()

	mimeType, err := imageutil.Inspect(item.name, item.data)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		log.Warn().Err(err).Msg("selected file could not be read")
		c.analyzing = false
		c.errMsg = MsgReadFailed
		c.sink.Notify(MsgReadFailed, notify.Error)
		return
	}

	extracted, err := c.extractor.Extract(c.ctx, item.data, mimeType)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		log.Debug().Msg("stale analysis result discarded")
		return
	}

	if err != nil {
		log.Warn().Err(err).Msg("analysis failed, showing fallback record")
		c.record = domain.FallbackDetails(item.prefilled)
		c.errMsg = MsgAnalyzeFailed
		if multi {
			c.errMsg = fmt.Sprintf(msgAnalyzeItemFailed, item.name)
		}
		c.sink.Notify(c.errMsg, notify.Error)
	} else {
		c.record = domain.MergePrefilled(extracted, item.prefilled)
	}

	c.imageRef = c.refs.Issue(item.data, mimeType)
	c.ownsRef = true
	c.analyzing = false
	c.state = StateReviewing
	log.Info().Str("state", string(c.state)).Int("index", c.index).Msg("record ready for review")
}

// ChangeField edits one field of the record under review
func (c *Controller) ChangeField(field, value string) error {
	f, err := domain.ParseField(field)
	if err != nil {
		return &domain.ValidationError{Fields: map[string]string{field: "is not a product field"}}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReviewing {
		return domain.ErrNoActiveRecord
	}
	return c.record.Set(f, value)
}

// Confirm commits the record under review. It returns the stored timestamp.
func (c *Controller) Confirm(ctx context.Context) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.state != StateReviewing {
		c.mu.Unlock()
		return 0, domain.ErrNoActiveRecord
	}
	if err := c.record.Validate(); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	mode, record, editTS := c.mode, c.record, c.editTS
	var item batchItem
	if mode == ModeNew {
		item = c.batch[c.index]
	}
	c.mu.Unlock()

	var (
		ts  int64
		err error
		msg string
	)
	switch mode {
	case ModeEdit:
		ts = editTS
		err = c.store.UpdateConfirmed(ctx, editTS, record)
		msg = MsgProductUpdated
	default:
		product := domain.ConfirmedProduct{
			Timestamp: c.clock.Next(),
			Details:   record,
			Image:     item.data,
			MIMEType:  item.mimeType,
		}
		if item.queueID != 0 {
			ts, err = c.store.PromotePending(ctx, item.queueID, product)
		} else {
			ts, err = c.store.AddConfirmed(ctx, product)
		}
		msg = MsgProductAdded
	}
	if err != nil {
		c.logger.Error().Err(err).Str("mode", string(mode)).Msg("failed to save record")
		c.sink.Notify(MsgSaveFailed, notify.Error)
		return 0, err
	}

	c.sink.Notify(msg, notify.Success)
	c.logger.Info().Str("mode", string(mode)).Int64("timestamp", ts).Msg("record committed")
	if c.history != nil {
		_ = c.history.Reload(ctx)
	}

	c.mu.Lock()
	if mode == ModeNew && c.hasNext() {
		c.advance()
		c.mu.Unlock()
		return ts, nil
	}
	c.reset()
	c.mu.Unlock()
	c.onIdle()
	return ts, nil
}

// Skip moves past the current item without writing anything. On the last
// item it behaves like Cancel.
func (c *Controller) Skip(ctx context.Context) error {
	return c.leave(ctx, "skip")
}

// Cancel advances past the current item, or ends the session when it is the
// last one. A queued item cancelled last is removed from the queue.
func (c *Controller) Cancel(ctx context.Context) error {
	return c.leave(ctx, "cancel")
}

func (c *Controller) leave(ctx context.Context, action string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return domain.ErrNoActiveRecord
	}
	if c.mode == ModeNew && c.hasNext() {
		c.advance()
		c.logger.Info().Str("action", action).Int("index", c.index).Msg("moved to next item")
		c.mu.Unlock()
		return nil
	}

	var queueID int64
	if c.mode == ModeNew {
		queueID = c.batch[c.index].queueID
	}
	// stop any analysis still in flight from landing
	c.gen++
	c.mu.Unlock()

	var err error
	if queueID != 0 {
		if err = c.store.RemovePending(ctx, queueID); err != nil {
			c.logger.Error().Err(err).Int64("queue_id", queueID).Msg("failed to remove queued item")
		}
	}

	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	c.onIdle()

	c.logger.Info().Str("action", action).Msg("session ended")
	return err
}

// BeginEdit opens a stored product for editing. imageRef is owned by the
// caller and is not revoked when the edit ends.
func (c *Controller) BeginEdit(timestamp int64, details domain.ProductDetails, imageRef string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle || !c.coord.BeginSession() {
		return domain.ErrSessionBusy
	}

	c.gen++
	c.state = StateReviewing
	c.mode = ModeEdit
	c.batch = nil
	c.index = 0
	c.record = details
	c.imageRef = imageRef
	c.ownsRef = false
	c.errMsg = ""
	c.editTS = timestamp

	c.logger.Info().Int64("timestamp", timestamp).Msg("edit started")
	return nil
}

// Snapshot returns the current view
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:     c.state,
		Mode:      c.mode,
		Index:     c.index,
		Total:     len(c.batch),
		ImageRef:  c.imageRef,
		Error:     c.errMsg,
		Analyzing: c.analyzing,
	}
	if c.mode == ModeEdit {
		s.Total = 1
		s.EditTimestamp = c.editTS
	}
	if c.mode == ModeNew && c.index < len(c.batch) {
		item := c.batch[c.index]
		s.Filename = item.name
		s.FromQueue = item.queueID != 0
	}
	if c.state == StateReviewing {
		record := c.record
		s.Record = &record
		s.CanConfirm = record.Confirmable()
	}
	return s
}

// Close ends the controller. Files selected in this session that were never
// committed are put on the pending queue so they are not lost.
func (c *Controller) Close(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	var leftover []batchItem
	if c.mode == ModeNew {
		for i := c.index; i < len(c.batch); i++ {
			if c.batch[i].queueID == 0 {
				leftover = append(leftover, c.batch[i])
			}
		}
	}
	active := c.state != StateIdle
	c.gen++
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	var errs []error
	for _, item := range leftover {
		_, err := c.store.Enqueue(ctx, domain.QueuedImage{
			Filename:  item.name,
			MIMEType:  item.mimeType,
			Image:     item.data,
			Prefilled: item.prefilled,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	if active {
		c.mu.Lock()
		c.reset()
		c.mu.Unlock()
	}
	if len(leftover) > 0 {
		c.logger.Info().Int("count", len(leftover)).Msg("unprocessed files queued on close")
	}
	return errors.Join(errs...)
}

// Wait blocks until in-flight analysis finishes
func (c *Controller) Wait() {
	c.wg.Wait()
}

// hasNext must be called with mu held
func (c *Controller) hasNext() bool {
	return c.index+1 < len(c.batch)
}

// advance releases the current item and analyses the next. Call with mu held.
func (c *Controller) advance() {
	if id := c.batch[c.index].queueID; id != 0 {
		c.coord.Release(id)
	}
	c.index++
	c.startAnalysis()
}

// reset returns to idle and releases everything the session held. Call with
// mu held.
func (c *Controller) reset() {
	c.dropRef()
	for _, item := range c.batch {
		if item.queueID != 0 {
			c.coord.Release(item.queueID)
		}
	}
	c.gen++
	c.state = StateIdle
	c.mode = ModeNew
	c.batch = nil
	c.index = 0
	c.record = domain.ProductDetails{}
	c.errMsg = ""
	c.analyzing = false
	c.editTS = 0
	c.coord.EndSession()
}

func (c *Controller) dropRef() {
	if c.ownsRef && c.imageRef != "" {
		c.refs.Revoke(c.imageRef)
	}
	c.imageRef = ""
	c.ownsRef = false
}
