package service

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/billingrelay/internal/clock"
	"github.com/smallbiznis/billingrelay/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/billingrelay/internal/observability/metrics"
	"go.uber.org/zap"
)

type Options struct {
	QueueSize int
	Workers   int
	// Timeout bounds delivery of one alert across all sinks.
	Timeout time.Duration
}

// AsyncEmitter fans alerts out to sinks from a bounded queue. A full queue
// drops the alert.
type AsyncEmitter struct {
	log        *zap.Logger
	clock      clock.Clock
	sinks      []domain.Sink
	obsMetrics *obsmetrics.Metrics
	opts       Options

	queue   chan domain.PaymentAlert
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	entropy *ulid.MonotonicEntropy
	idMu    sync.Mutex
}

func NewAsyncEmitter(log *zap.Logger, clk clock.Clock, m *obsmetrics.Metrics, opts Options, sinks ...domain.Sink) *AsyncEmitter {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &AsyncEmitter{
		log:        log.Named("notification.emitter"),
		clock:      clk,
		sinks:      sinks,
		obsMetrics: m,
		opts:       opts,
		queue:      make(chan domain.PaymentAlert, opts.QueueSize),
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// Start launches the worker pool.
func (e *AsyncEmitter) Start() {
	for i := 0; i < e.opts.Workers; i++ {
		e.wg.Add(1)
		go e.work()
	}
}

// Stop closes the queue and waits for workers to drain it or for ctx.
func (e *AsyncEmitter) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *AsyncEmitter) EmitPaymentAlert(ctx context.Context, orgID, title, message string, priority domain.Priority, data map[string]any) {
	alert := domain.PaymentAlert{
		ID:        e.newID(),
		OrgID:     orgID,
		Title:     title,
		Message:   message,
		Priority:  priority,
		Data:      data,
		CreatedAt: e.clock.Now(),
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.drop(ctx, alert, "emitter_stopped")
		return
	}

	select {
	case e.queue <- alert:
		e.obsMetrics.RecordNotification(ctx, "queued")
	default:
		e.drop(ctx, alert, "queue_full")
	}
}

func (e *AsyncEmitter) drop(ctx context.Context, alert domain.PaymentAlert, reason string) {
	e.log.Warn("payment alert dropped",
		zap.String("alert_id", alert.ID),
		zap.String("org_id", alert.OrgID),
		zap.String("reason", reason),
	)
	e.obsMetrics.RecordNotification(ctx, "dropped")
}

func (e *AsyncEmitter) work() {
	defer e.wg.Done()
	for alert := range e.queue {
		e.deliver(alert)
	}
}

func (e *AsyncEmitter) deliver(alert domain.PaymentAlert) {
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.Timeout)
	defer cancel()

	for _, sink := range e.sinks {
		if err := sink.Deliver(ctx, alert); err != nil {
			e.log.Warn("payment alert delivery failed",
				zap.String("alert_id", alert.ID),
				zap.String("org_id", alert.OrgID),
				zap.String("sink", sink.Name()),
				zap.Error(err),
			)
			e.obsMetrics.RecordNotification(ctx, "failed")
			continue
		}
		e.obsMetrics.RecordNotification(ctx, "delivered")
	}
}

func (e *AsyncEmitter) newID() string {
	e.idMu.Lock()
	defer e.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(e.clock.Now()), e.entropy).String()
}

var _ domain.Emitter = (*AsyncEmitter)(nil)
