package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Konfistador/ExplorationAppBackend/internal/config"
	"github.com/Konfistador/ExplorationAppBackend/internal/domain/progression"
)

const sendTimeout = 5 * time.Second

// Sender delivers one notification to the outside world.
type Sender interface {
	Send(ctx context.Context, n progression.Notification) error
}

type job struct {
	ctx context.Context
	n   progression.Notification
}

// Dispatcher queues notifications and delivers them on worker goroutines.
// Notify never blocks: when the queue is full the notification is dropped.
// Identical notifications seen recently are dropped as duplicates.
type Dispatcher struct {
	sender  Sender
	workers int
	queue   chan job
	seen    *lru.Cache

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	results *prometheus.CounterVec
}

var _ progression.Notifier = &Dispatcher{}

// NewDispatcher builds a dispatcher from cfg. reg may be nil.
func NewDispatcher(sender Sender, cfg config.NotifyConfig, reg prometheus.Registerer) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is nil")
	}
	if cfg.Workers <= 0 || cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("workers and queue size must be positive, got %d and %d", cfg.Workers, cfg.QueueSize)
	}

	d := &Dispatcher{
		sender:  sender,
		workers: cfg.Workers,
		queue:   make(chan job, cfg.QueueSize),
		results: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "exploration",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications by delivery result.",
		}, []string{"result"}),
	}
	if cfg.DedupeSize > 0 {
		seen, err := lru.New(cfg.DedupeSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create dedupe cache: %w", err)
		}
		d.seen = seen
	}
	return d, nil
}

// Start launches the workers. They exit once Close has drained the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	slog.Info("Notification dispatcher started",
		slog.String("type", "notify"),
		slog.Int("workers", d.workers),
		slog.Int("queue_size", cap(d.queue)))
}

// Notify queues n without blocking. A notification only counts as seen
// once it is queued, so one that was dropped or refused can be sent again.
func (d *Dispatcher) Notify(ctx context.Context, n progression.Notification) {
	key := dedupeKey(n)

	// Exclusive so the dedupe check and the enqueue happen as one step.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.results.WithLabelValues("closed").Inc()
		return
	}
	if d.seen != nil && d.seen.Contains(key) {
		d.results.WithLabelValues("duplicate").Inc()
		return
	}

	select {
	case d.queue <- job{ctx: ctx, n: n}:
		if d.seen != nil {
			d.seen.Add(key, struct{}{})
		}
	default:
		d.results.WithLabelValues("dropped").Inc()
		slog.Warn("Notification queue full, dropping",
			slog.String("type", "notify"),
			slog.String("kind", string(n.Kind)),
			slog.Int64("account_id", n.AccountID))
	}
}

// Close stops accepting notifications and waits until the queued ones are
// delivered or ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, j.n); err != nil {
		d.results.WithLabelValues("failed").Inc()
		slog.Error("Notification delivery failed",
			slog.String("type", "notify"),
			slog.String("kind", string(j.n.Kind)),
			slog.Int64("account_id", j.n.AccountID),
			slog.Any("error", err))
		return
	}
	d.results.WithLabelValues("sent").Inc()
}

func dedupeKey(n progression.Notification) string {
	return fmt.Sprintf("%s:%d:%d", n.Kind, n.AccountID, n.RefID)
}
