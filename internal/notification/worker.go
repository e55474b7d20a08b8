package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/config"
	"github.com/jellyjess/nail-salon/internal/metrics"
	"github.com/jellyjess/nail-salon/internal/model"
)

const sendTimeout = 30 * time.Second

// BookingStore is the slice of the booking repository the worker needs.
type BookingStore interface {
	ListNeedingEmail(ctx context.Context) ([]model.Booking, error)
	MarkEmailSent(ctx context.Context, id uint64) error
}

type ServiceLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.Service, error)
}

type SlotLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.BookingSlot, error)
}

type retryState struct {
	attempts int
	next     time.Time
	gaveUp   bool
}

// Worker emails confirmed bookings. It sweeps once on Start, then every
// Interval and whenever Wake is called. A single goroutine runs the sweeps
// so two never overlap.
type Worker struct {
	bookings BookingStore
	services ServiceLookup
	slots    SlotLookup
	mailer   Mailer
	composer *Composer
	cfg      config.WorkerConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger

	wake chan struct{}
	now  func() time.Time

	// failures and unmarked are only touched by the sweep goroutine.
	failures map[uint64]*retryState
	unmarked map[uint64]struct{} // sent, but MarkEmailSent failed

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func NewWorker(
	bookings BookingStore,
	services ServiceLookup,
	slots SlotLookup,
	mailer Mailer,
	composer *Composer,
	cfg config.WorkerConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		bookings: bookings,
		services: services,
		slots:    slots,
		mailer:   mailer,
		composer: composer,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		now:      time.Now,
		failures: make(map[uint64]*retryState),
		unmarked: make(map[uint64]struct{}),
	}
}

// Start launches the sweep loop. Calling it twice is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	if w.cfg.Interval <= 0 {
		w.mu.Unlock()
		return errors.New("email worker interval must be positive")
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info("Email worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("max_attempts", w.cfg.MaxAttempts))
	return nil
}

// Stop cancels the loop and waits for the current sweep to finish or ctx
// to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("Email worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Email worker stop timed out")
		return ctx.Err()
	}
}

// Wake asks for a sweep as soon as the current one, if any, is done.
// Wakes arriving during a sweep collapse into one.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	w.RunOnce(ctx)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-w.wake:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps pending confirmations and returns how many were sent.
// One booking failing never stops the rest of the batch.
func (w *Worker) RunOnce(ctx context.Context) int {
	pending, err := w.bookings.ListNeedingEmail(ctx)
	if err != nil {
		w.logger.Error("list bookings needing email", zap.Error(err))
		return 0
	}
	if w.metrics != nil {
		w.metrics.EmailQueueDepth.Set(float64(len(pending)))
	}

	w.prune(pending)

	sent := 0
	now := w.now()
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		b := &pending[i]
		if _, ok := w.unmarked[b.ID]; ok {
			w.mark(ctx, b.ID)
			continue
		}
		if st := w.failures[b.ID]; st != nil && (st.gaveUp || now.Before(st.next)) {
			continue
		}
		if w.process(ctx, b) {
			sent++
		}
	}
	if sent > 0 {
		w.logger.Info("confirmation emails sent", zap.Int("sent", sent), zap.Int("pending", len(pending)))
	}
	return sent
}

func (w *Worker) process(ctx context.Context, b *model.Booking) bool {
	log := w.logger.With(zap.Uint64("booking_id", b.ID))

	svc, err := w.services.GetByID(ctx, b.ServiceID)
	if err != nil {
		log.Warn("skip confirmation: service unavailable", zap.Uint64("service_id", b.ServiceID), zap.Error(err))
		return false
	}
	slot, err := w.slots.GetByID(ctx, b.SlotID)
	if err != nil {
		log.Warn("skip confirmation: slot unavailable", zap.Uint64("slot_id", b.SlotID), zap.Error(err))
		return false
	}
	msg, err := w.composer.Confirmation(*b, *svc, *slot)
	if err != nil {
		log.Error("render confirmation email", zap.Error(err))
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	err = w.mailer.Send(sendCtx, msg)
	cancel()
	if err != nil {
		w.recordFailure(b.ID, err)
		return false
	}
	delete(w.failures, b.ID)
	if w.metrics != nil {
		w.metrics.EmailsSent.Inc()
	}

	w.mark(ctx, b.ID)
	log.Debug("confirmation email sent", zap.String("to", b.CustomerEmail))
	return true
}

// mark records a delivered email. On failure the booking stays in unmarked
// so later sweeps retry the update without sending again.
func (w *Worker) mark(ctx context.Context, id uint64) {
	if err := w.bookings.MarkEmailSent(ctx, id); err != nil {
		w.unmarked[id] = struct{}{}
		w.logger.Error("mark email sent", zap.Uint64("booking_id", id), zap.Error(err))
		return
	}
	delete(w.unmarked, id)
}

// prune forgets retry state for bookings that left the pending list, such
// as cancelled ones or ones another replica already emailed.
func (w *Worker) prune(pending []model.Booking) {
	if len(w.failures) == 0 && len(w.unmarked) == 0 {
		return
	}
	live := make(map[uint64]struct{}, len(pending))
	for i := range pending {
		live[pending[i].ID] = struct{}{}
	}
	for id := range w.failures {
		if _, ok := live[id]; !ok {
			delete(w.failures, id)
		}
	}
	for id := range w.unmarked {
		if _, ok := live[id]; !ok {
			delete(w.unmarked, id)
		}
	}
}

func (w *Worker) recordFailure(id uint64, err error) {
	if w.metrics != nil {
		w.metrics.EmailFailures.Inc()
	}
	st := w.failures[id]
	if st == nil {
		st = &retryState{}
		w.failures[id] = st
	}
	st.attempts++
	st.next = w.now().Add(w.backoff(st.attempts))

	log := w.logger.With(zap.Uint64("booking_id", id), zap.Int("attempts", st.attempts), zap.Error(err))
	if w.cfg.MaxAttempts > 0 && st.attempts >= w.cfg.MaxAttempts {
		st.gaveUp = true
		log.Error("giving up on confirmation email")
		return
	}
	log.Warn("confirmation email failed", zap.Time("retry_after", st.next))
}

// backoff doubles the base delay per failed attempt up to the cap.
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.RetryBackoff
	if d <= 0 {
		return 0
	}
	for i := 1; i < attempts; i++ {
		d *= 2
		if w.cfg.RetryBackoffMax > 0 && d >= w.cfg.RetryBackoffMax {
			return w.cfg.RetryBackoffMax
		}
	}
	return d
}
