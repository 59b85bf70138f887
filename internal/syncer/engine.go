package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridwanfathin/labellens-service/internal/connectivity"
	"github.com/ridwanfathin/labellens-service/internal/coord"
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/extraction"
	"github.com/ridwanfathin/labellens-service/internal/notify"
	"github.com/ridwanfathin/labellens-service/internal/repository"
)

// Messages shown to the user
const (
	MsgSyncComplete = "Offline sync complete."
	MsgQueueFailed  = "Could not load the offline queue."
	MsgBackOnline   = "You're back online!"
	MsgWentOffline  = "You've gone offline. Images can be queued."
)

// DefaultStatusDelay is how long a synced item stays visible
const DefaultStatusDelay = 2 * time.Second

// Reloader refreshes the history projection after a pass
type Reloader interface {
	Reload(ctx context.Context) error
}

// Deps are the collaborators of an Engine
type Deps struct {
	Store       repository.Store
	Extractor   extraction.Extractor
	Monitor     *connectivity.Monitor
	Coordinator *coord.Coordinator
	Clock       *domain.KeyClock
	Sink        notify.Sink
	History     Reloader
	Logger      zerolog.Logger
}

// Options tune an Engine
type Options struct {
	StatusDelay time.Duration
}

// PassResult summarises one Trigger call
type PassResult struct {
	Started     bool `json:"started"`
	Attempted   int  `json:"attempted"`
	Synced      int  `json:"synced"`
	Failed      int  `json:"failed"`
	Interrupted bool `json:"interrupted"`
}

// Engine drains the pending queue through the extractor. Passes are strictly
// sequential and never overlap; a trigger that arrives while a pass runs, a
// session is active, or the device is offline is dropped.
type Engine struct {
	store     repository.Store
	extractor extraction.Extractor
	monitor   *connectivity.Monitor
	coord     *coord.Coordinator
	clock     *domain.KeyClock
	sink      notify.Sink
	history   Reloader
	logger    zerolog.Logger
	delay     time.Duration

	mu       sync.Mutex
	statuses map[int64]domain.Status
	timers   map[int64]*time.Timer
	baseCtx  context.Context

	wg sync.WaitGroup
}

// NewEngine creates an engine
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.StatusDelay <= 0 {
		opts.StatusDelay = DefaultStatusDelay
	}
	if deps.Sink == nil {
		deps.Sink = notify.Discard
	}
	return &Engine{
		store:     deps.Store,
		extractor: deps.Extractor,
		monitor:   deps.Monitor,
		coord:     deps.Coordinator,
		clock:     deps.Clock,
		sink:      deps.Sink,
		history:   deps.History,
		logger:    deps.Logger.With().Str("component", "syncer").Logger(),
		delay:     opts.StatusDelay,
		statuses:  make(map[int64]domain.Status),
		timers:    make(map[int64]*time.Timer),
		baseCtx:   context.Background(),
	}
}

// Trigger runs one drain pass over the items pending right now. Items
// enqueued during the pass wait for the next one.
func (e *Engine) Trigger(ctx context.Context) (PassResult, error) {
	var result PassResult

	if !e.monitor.Online() {
		e.logger.Debug().Msg("offline, pass skipped")
		return result, nil
	}
	if !e.coord.TryBeginPass() {
		e.logger.Debug().Msg("pass running or session active, trigger dropped")
		return result, nil
	}
	defer e.coord.EndPass()
	result.Started = true

	items, err := e.store.ListPending(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to list pending items")
		e.sink.Notify(MsgQueueFailed, notify.Error)
		return result, err
	}
	if len(items) == 0 {
		return result, nil
	}

	e.sink.Notify(fmt.Sprintf("Syncing %d offline item(s)...", len(items)), notify.Info)
	e.logger.Info().Int("items", len(items)).Msg("sync pass started")

	for _, item := range items {
		if ctx.Err() != nil {
			result.Interrupted = true
			e.logger.Info().Msg("context done, pass stops before next item")
			break
		}
		if err := e.coord.ClaimForPass(item.ID); err != nil {
			if errors.Is(err, coord.ErrSessionActive) {
				result.Interrupted = true
				e.logger.Info().Msg("session started, pass stops before next item")
				break
			}
			// the session holds it; leave it alone this pass
			continue
		}

		result.Attempted++
		switch e.process(ctx, item) {
		case outcomeSynced:
			result.Synced++
		case outcomeFailed:
			result.Failed++
		case outcomeAborted:
			result.Interrupted = true
		}
		e.coord.Release(item.ID)
		if result.Interrupted {
			break
		}
	}

	if !result.Interrupted {
		e.sink.Notify(MsgSyncComplete, notify.Success)
	}
	e.logger.Info().
		Int("attempted", result.Attempted).
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Bool("interrupted", result.Interrupted).
		Msg("sync pass finished")

	if e.history != nil && ctx.Err() == nil {
		// the projection reports its own load failures
		_ = e.history.Reload(ctx)
	}

	return result, nil
}

type outcome int

const (
	outcomeSynced outcome = iota
	outcomeFailed
	// the context ended while the item was in flight; it stays pending
	// without a failure notice
	outcomeAborted
)

// process extracts and commits one item
func (e *Engine) process(ctx context.Context, item domain.QueuedImage) outcome {
	log := e.logger.With().Int64("queue_id", item.ID).Logger()
	e.setStatus(item.ID, domain.StatusProcessing)

	extracted, err := e.extractor.Extract(ctx, item.Image, item.MIMEType)
	if err != nil {
		if ctx.Err() != nil {
			log.Info().Err(err).Msg("extraction cancelled, item kept pending")
			e.clearStatus(item.ID)
			return outcomeAborted
		}
		log.Warn().Err(err).Msg("extraction failed, item kept for a later pass")
		e.fail(item)
		return outcomeFailed
	}

	product := domain.ConfirmedProduct{
		Timestamp: e.clock.Next(),
		Details:   domain.MergePrefilled(extracted, item.Prefilled),
		Image:     item.Image,
		MIMEType:  item.MIMEType,
	}
	if _, err := e.store.PromotePending(ctx, item.ID, product); err != nil {
		if ctx.Err() != nil {
			log.Info().Err(err).Msg("commit cancelled, item kept pending")
			e.clearStatus(item.ID)
			return outcomeAborted
		}
		log.Error().Err(err).Msg("failed to commit synced item")
		e.fail(item)
		return outcomeFailed
	}

	e.setStatus(item.ID, domain.StatusSynced)
	e.scheduleClear(item.ID)
	log.Info().Int64("timestamp", product.Timestamp).Msg("item synced")
	return outcomeSynced
}

func (e *Engine) fail(item domain.QueuedImage) {
	e.setStatus(item.ID, domain.StatusFailed)
	e.sink.Notify(fmt.Sprintf("Failed to process %s.", item.DisplayName()), notify.Error)
}

func (e *Engine) setStatus(id int64, status domain.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
	e.statuses[id] = status
}

func (e *Engine) clearStatus(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
	delete(e.statuses, id)
}

func (e *Engine) scheduleClear(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var t *time.Timer
	t = time.AfterFunc(e.delay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		// a newer status may have replaced ours
		if e.timers[id] == t {
			delete(e.timers, id)
			delete(e.statuses, id)
		}
	})
	e.timers[id] = t
}

// Statuses returns a snapshot of transient per-item statuses
func (e *Engine) Statuses() map[int64]domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[int64]domain.Status, len(e.statuses))
	for id, s := range e.statuses {
		out[id] = s
	}
	return out
}

// Kick runs a pass in the background
func (e *Engine) Kick() {
	e.mu.Lock()
	ctx := e.baseCtx
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Trigger(ctx); err != nil {
			e.logger.Error().Err(err).Msg("background sync pass failed")
		}
	}()
}

// Run wires the engine to connectivity transitions and runs a start-up pass
// if already online. It blocks until ctx is done, then waits for passes in
// flight.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()

	unsubscribe := e.monitor.Subscribe(func(online bool) {
		if online {
			e.sink.Notify(MsgBackOnline, notify.Info)
			e.Kick()
			return
		}
		e.sink.Notify(MsgWentOffline, notify.Info)
	})
	defer unsubscribe()

	if e.monitor.Online() {
		e.Kick()
	}

	<-ctx.Done()
	e.Wait()
	return nil
}

// Wait blocks until background passes finish
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close stops pending status timers
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
}
