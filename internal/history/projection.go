package history

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ridwanfathin/labellens-service/internal/blobref"
	"github.com/ridwanfathin/labellens-service/internal/domain"
	"github.com/ridwanfathin/labellens-service/internal/notify"
)

// Messages shown to the user
const (
	MsgLoadFailed       = "Could not load product history."
	MsgDeleted          = "Product deleted."
	MsgDeleteFailed     = "Failed to delete product."
	MsgDeletedAll       = "All products have been deleted."
	MsgDeleteAllFailed  = "Failed to delete all products."
	collectionSerialNum = "product serial"
)

// Source is the part of the store the projection reads and mutates
type Source interface {
	ListConfirmed(ctx context.Context) ([]domain.ConfirmedProduct, error)
	RemoveConfirmed(ctx context.Context, timestamp int64) error
	RemoveAllConfirmed(ctx context.Context) error
}

// Entry is one displayable confirmed product. Serial is its 1-based position
// in ascending timestamp order and does not depend on how a list is sorted
// or filtered for display.
type Entry struct {
	Serial    int                   `json:"serial"`
	Timestamp int64                 `json:"timestamp"`
	Details   domain.ProductDetails `json:"details"`
	ImageRef  string                `json:"imageRef"`
	MIMEType  string                `json:"mimeType"`
}

// Projection is the in-memory, display-ready view of the confirmed history
type Projection struct {
	source Source
	refs   *blobref.Registry
	sink   notify.Sink
	logger zerolog.Logger

	mu sync.Mutex
	// entries is kept ascending by timestamp
	entries []Entry
	// version changes whenever entries is replaced
	version uint64
	// loadSeq orders overlapping reloads; a slower, older load never wins
	loadSeq    uint64
	appliedSeq uint64
}

// NewProjection creates an empty projection. Call Reload to populate it.
func NewProjection(source Source, refs *blobref.Registry, sink notify.Sink, logger zerolog.Logger) *Projection {
	return &Projection{
		source: source,
		refs:   refs,
		sink:   sink,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Reload re-reads the confirmed collection. Display references from the
// previous load are revoked before the new list is published. On failure the
// previous list stays in place and the user is notified once.
func (p *Projection) Reload(ctx context.Context) error {
	p.mu.Lock()
	p.loadSeq++
	seq := p.loadSeq
	p.mu.Unlock()

	products, err := p.source.ListConfirmed(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to load history")
		p.sink.Notify(MsgLoadFailed, notify.Error)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.appliedSeq {
		return nil
	}

	for _, e := range p.entries {
		p.refs.Revoke(e.ImageRef)
	}

	entries := make([]Entry, 0, len(products))
	for i, prod := range products {
		entries = append(entries, Entry{
			Serial:    i + 1,
			Timestamp: prod.Timestamp,
			Details:   prod.Details,
			ImageRef:  p.refs.Issue(prod.Image, prod.MIMEType),
			MIMEType:  prod.MIMEType,
		})
	}

	p.entries = entries
	p.version++
	p.appliedSeq = seq

	p.logger.Debug().Int("count", len(entries)).Msg("history reloaded")
	return nil
}

// All returns every entry in ascending serial order
func (p *Projection) All() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Entry(nil), p.entries...)
}

// List returns entries filtered and sorted for display
func (p *Projection) List(q Query) []Entry {
	return q.Apply(p.All())
}

// At resolves a serial number to its entry
func (p *Projection) At(serial int) (Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if serial < 1 || serial > len(p.entries) {
		return Entry{}, &domain.NotFoundError{Collection: collectionSerialNum, Key: int64(serial)}
	}
	return p.entries[serial-1], nil
}

// Delete removes the entry with the given serial. The entry disappears from
// the list immediately; if the store rejects the delete the previous list is
// restored.
func (p *Projection) Delete(ctx context.Context, serial int) error {
	p.mu.Lock()
	if serial < 1 || serial > len(p.entries) {
		p.mu.Unlock()
		return &domain.NotFoundError{Collection: collectionSerialNum, Key: int64(serial)}
	}

	previous := p.entries
	target := previous[serial-1]
	p.entries = without(previous, target.Timestamp)
	p.version++
	version := p.version
	p.mu.Unlock()

	err := p.source.RemoveConfirmed(ctx, target.Timestamp)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		if p.version == version {
			p.entries = previous
			p.version++
		} else {
			// a reload replaced the list and issued the row a fresh reference
			p.refs.Revoke(target.ImageRef)
		}
		p.logger.Error().Err(err).Int64("timestamp", target.Timestamp).Msg("failed to delete product")
		p.sink.Notify(MsgDeleteFailed, notify.Error)
		return err
	}

	if p.version != version {
		// a reload landed meanwhile and may still carry the deleted row
		if e, ok := find(p.entries, target.Timestamp); ok {
			p.refs.Revoke(e.ImageRef)
		}
		p.entries = without(p.entries, target.Timestamp)
		p.version++
	}
	p.refs.Revoke(target.ImageRef)
	p.sink.Notify(MsgDeleted, notify.Success)
	return nil
}

// DeleteAll clears the history with the same optimistic rollback as Delete
func (p *Projection) DeleteAll(ctx context.Context) error {
	p.mu.Lock()
	previous := p.entries
	p.entries = nil
	p.version++
	version := p.version
	p.mu.Unlock()

	err := p.source.RemoveAllConfirmed(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		if p.version == version {
			p.entries = previous
			p.version++
		} else {
			for _, e := range previous {
				p.refs.Revoke(e.ImageRef)
			}
		}
		p.logger.Error().Err(err).Msg("failed to delete all products")
		p.sink.Notify(MsgDeleteAllFailed, notify.Error)
		return err
	}

	for _, e := range previous {
		p.refs.Revoke(e.ImageRef)
	}
	if p.version != version {
		for _, e := range p.entries {
			p.refs.Revoke(e.ImageRef)
		}
		p.entries = nil
		p.version++
	}
	p.sink.Notify(MsgDeletedAll, notify.Success)
	return nil
}

// Close revokes every display reference the projection holds
func (p *Projection) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		p.refs.Revoke(e.ImageRef)
	}
	p.entries = nil
	p.version++
}

func find(entries []Entry, ts int64) (Entry, bool) {
	for _, e := range entries {
		if e.Timestamp == ts {
			return e, true
		}
	}
	return Entry{}, false
}

// without returns a renumbered copy of entries minus the one keyed ts
func without(entries []Entry, ts int64) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp == ts {
			continue
		}
		e.Serial = len(out) + 1
		out = append(out, e)
	}
	return out
}
