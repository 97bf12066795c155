package core

import (
	"context"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"rentalcore/pkg/domain"
	"rentalcore/pkg/eventbus"
)

// DefaultRetention is the number of most-recent properties preserved when the
// store rejects a write over quota and the service evicts to make room.
const DefaultRetention = 30

// byIDCacheSize bounds the per-property lookup cache.
const byIDCacheSize = 256

// Service is the application-facing facade over the persistent store, the
// rules engine behind it, and the event bus. All property, status, bookmark,
// note, and staged-edit operations go through it; every successful write
// invalidates the derived caches before the corresponding events are
// published.
type Service struct {
	store  domain.PersistentStore
	bus    *eventbus.Bus
	images *ImageVault

	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time

	retention int

	cacheMu   sync.Mutex
	listCache []Property
	listValid bool
	byID      *lru.Cache[string, Property]

	idMu   sync.Mutex
	lastID int64
}

// ServiceOption customizes a Service at construction time.
type ServiceOption func(*Service)

// WithLogger installs a structured logger. Defaults to a no-op logger.
func WithLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics installs a metrics recorder. Defaults to a no-op recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer installs a tracer. Defaults to a no-op tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithRetention sets how many of the most recent properties survive a
// quota-driven eviction. Values below one are ignored.
func WithRetention(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.retention = n
		}
	}
}

// WithImageVault attaches an image vault so property deletion cascades to
// stored images.
func WithImageVault(v *ImageVault) ServiceOption {
	return func(s *Service) { s.images = v }
}

// NewService wires a service over the given store and bus. A nil bus gets a
// fresh in-process one.
func NewService(store domain.PersistentStore, bus *eventbus.Bus, opts ...ServiceOption) *Service {
	if bus == nil {
		bus = eventbus.New()
	}
	byID, _ := lru.New[string, Property](byIDCacheSize)
	s := &Service{
		store:     store,
		bus:       bus,
		logger:    noopLogger{},
		metrics:   noopMetrics{},
		tracer:    noopTracer{},
		nowFn:     time.Now,
		retention: DefaultRetention,
		byID:      byID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus exposes the event bus for subscribers.
func (s *Service) Bus() *eventbus.Bus { return s.bus }

// Images exposes the attached image vault, or nil when none is configured.
func (s *Service) Images() *ImageVault { return s.images }

// observe wraps an operation with tracing, timing, and a structured log line
// on failure.
func (s *Service) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", op)
	}
	return err
}

// invalidate drops the derived caches. Callers must invoke it after every
// successful write and before publishing the corresponding events, so
// subscribers that immediately re-read observe fresh state.
func (s *Service) invalidate() {
	s.cacheMu.Lock()
	s.listCache = nil
	s.listValid = false
	s.cacheMu.Unlock()
	s.byID.Purge()
}

// publish invalidates caches once, then delivers the events in order.
func (s *Service) publish(events ...eventbus.Event) {
	s.invalidate()
	now := s.nowFn()
	for _, ev := range events {
		if ev.At.IsZero() {
			ev.At = now
		}
		s.bus.Publish(ev)
	}
}

// newPropertyID issues a millisecond-timestamp id, bumped monotonically so
// two creations in the same millisecond never collide.
func (s *Service) newPropertyID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	ms := s.nowFn().UnixMilli()
	if ms <= s.lastID {
		ms = s.lastID + 1
	}
	s.lastID = ms
	return strconv.FormatInt(ms, 10)
}

// runWrite executes a transaction, and on a quota rejection evicts the oldest
// properties down to the retention count and retries exactly once. A second
// rejection is surfaced to the caller unchanged.
func (s *Service) runWrite(ctx context.Context, fn func(domain.Transaction) error) (Result, error) {
	res, err := s.store.RunInTransaction(ctx, fn)
	if err == nil || !domain.IsQuotaExceeded(err) {
		return res, err
	}
	s.logger.Warn("storage quota exceeded, evicting oldest properties", "keep", s.retention)
	return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := s.evictOldest(tx); err != nil {
			return err
		}
		return fn(tx)
	})
}

// evictOldest deletes properties beyond the retention count, oldest first.
// Deletion cascades at the transaction level, so marks, bookmarks, and notes
// keyed to evicted properties go with them.
func (s *Service) evictOldest(tx domain.Transaction) error {
	props := tx.Snapshot().ListProperties()
	if len(props) <= s.retention {
		return nil
	}
	sortPropertiesOldestFirst(props)
	excess := props[:len(props)-s.retention]
	for _, p := range excess {
		if err := tx.DeleteProperty(p.ID); err != nil {
			return err
		}
	}
	s.logger.Info("evicted properties to reclaim storage", "count", len(excess))
	return nil
}
