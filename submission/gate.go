package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"nightlife_order/cart"
	"nightlife_order/model"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeQueued      Outcome = "queued"
	OutcomeError       Outcome = "error"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingContext     = errors.New("venue, event and table are required")
	ErrInvalidPaymentType = errors.New("payment type must be cash or card")
	// ErrRejected marks a server answer that retrying will not change.
	ErrRejected = errors.New("order rejected")
)

type Submitter interface {
	Submit(ctx context.Context, input model.CreateOrderInput) (*model.Order, error)
}

type Connectivity interface {
	Online() bool
}

// Session is the ordering context a cart belongs to.
type Session struct {
	VenueId      uint
	EventId      uint
	EventTableId uint
	CustomerId   *uint
}

type Result struct {
	Outcome    Outcome
	Order      *model.Order
	RetryAfter time.Duration
	Err        error
}

type Options struct {
	Cooldown         time.Duration
	Timeout          time.Duration
	Retries          int
	Backoff          time.Duration
	ConfirmationTime time.Duration
	Now              func() time.Time
	NewKey           func() string
	Logger           *log.Entry
}

// Gate decides what happens to a submitted cart: rejected by the cooldown,
// queued while offline, or written through the Submitter.
type Gate struct {
	submitter Submitter
	conn      Connectivity
	queue     *Queue
	opts      Options
	log       *log.Entry

	mu           sync.Mutex
	lastSuccess  time.Time
	confirmUntil time.Time

	flushMu sync.Mutex
}

func NewGate(submitter Submitter, conn Connectivity, queue *Queue, opts Options) *Gate {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.ConfirmationTime <= 0 {
		opts.ConfirmationTime = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewKey == nil {
		opts.NewKey = func() string { return uuid.NewString() }
	}
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	return &Gate{
		submitter: submitter,
		conn:      conn,
		queue:     queue,
		opts:      opts,
		log:       opts.Logger.WithField("component", "submission"),
	}
}

func (g *Gate) Submit(ctx context.Context, session Session, c *cart.Store, paymentType model.PaymentType, note string) Result {
	if err := validate(session, c, paymentType); err != nil {
		return Result{Outcome: OutcomeError, Err: err}
	}
	if wait := g.RetryAfter(); wait > 0 {
		return Result{Outcome: OutcomeRateLimited, RetryAfter: wait}
	}

	payload := g.buildPayload(session, c.Items(), paymentType, note)

	if !g.conn.Online() {
		if err := g.queue.Push(payload); err != nil {
			return Result{Outcome: OutcomeError, Err: err}
		}
		g.clearCart(c)
		g.markSuccess()
		g.log.WithField("key", payload.IdempotencyKey).Info("offline, order queued")
		return Result{Outcome: OutcomeQueued}
	}

	order, err := g.send(ctx, payload)
	if err != nil {
		g.log.WithError(err).WithField("key", payload.IdempotencyKey).Warn("order submit failed")
		return Result{Outcome: OutcomeError, Err: err}
	}
	g.clearCart(c)
	g.markSuccess()
	g.log.WithField("order", order.PublicCode).Info("order placed")
	return Result{Outcome: OutcomeSuccess, Order: order}
}

// RetryAfter is how long until the cooldown allows another submission.
func (g *Gate) RetryAfter() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastSuccess.IsZero() {
		return 0
	}
	if wait := g.opts.Cooldown - g.opts.Now().Sub(g.lastSuccess); wait > 0 {
		return wait
	}
	return 0
}

// ConfirmationVisible reports whether the order-placed confirmation is still shown.
func (g *Gate) ConfirmationVisible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opts.Now().Before(g.confirmUntil)
}

func (g *Gate) Pending() int {
	return g.queue.Len()
}

// FlushPending sends queued orders oldest first, one at a time. An entry
// leaves the queue only once the server accepted it, or rejected it for good.
func (g *Gate) FlushPending(ctx context.Context) (int, error) {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	sent := 0
	for {
		payload, ok := g.queue.Front()
		if !ok {
			return sent, nil
		}
		if !g.conn.Online() {
			return sent, nil
		}
		_, err := g.send(ctx, payload)
		if errors.Is(err, ErrRejected) {
			g.log.WithError(err).WithField("key", payload.IdempotencyKey).Error("queued order rejected, dropping")
		} else if err != nil {
			return sent, fmt.Errorf("flush pending orders: %w", err)
		} else {
			sent++
		}
		if err := g.queue.PopFront(); err != nil {
			return sent, err
		}
	}
}

// WatchConnectivity flushes the queue whenever the device comes back online.
func (g *Gate) WatchConnectivity(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	wasOnline := g.conn.Online()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			online := g.conn.Online()
			if online && (!wasOnline || g.queue.Len() > 0) {
				if n, err := g.FlushPending(ctx); err != nil {
					g.log.WithError(err).WithField("sent", n).Warn("flush interrupted")
				} else if n > 0 {
					g.log.WithField("sent", n).Info("pending orders flushed")
				}
			}
			wasOnline = online
		}
	}
}

// send writes one order, retrying transient failures with the same
// idempotency key so a retried write cannot create a second order.
func (g *Gate) send(ctx context.Context, payload model.CreateOrderInput) (*model.Order, error) {
	var lastErr error
	for attempt := 0; attempt <= g.opts.Retries; attempt++ {
		if attempt > 0 && g.opts.Backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.opts.Backoff * time.Duration(attempt)):
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
		order, err := g.submitter.Submit(callCtx, payload)
		cancel()
		if err == nil {
			return order, nil
		}
		lastErr = err
		if errors.Is(err, ErrRejected) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (g *Gate) buildPayload(session Session, items []cart.Item, paymentType model.PaymentType, note string) model.CreateOrderInput {
	lines := make([]model.CreateOrderItemInput, 0, len(items))
	for _, it := range items {
		lines = append(lines, model.CreateOrderItemInput{
			MenuItemId: it.MenuItemId,
			Quantity:   it.Quantity,
			UnitPrice:  it.Price,
		})
	}
	return model.CreateOrderInput{
		IdempotencyKey: g.opts.NewKey(),
		VenueId:        session.VenueId,
		EventId:        session.EventId,
		EventTableId:   session.EventTableId,
		PaymentType:    paymentType,
		CustomerId:     session.CustomerId,
		Note:           note,
		Items:          lines,
	}
}

func (g *Gate) markSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.opts.Now()
	g.lastSuccess = now
	g.confirmUntil = now.Add(g.opts.ConfirmationTime)
}

func (g *Gate) clearCart(c *cart.Store) {
	if err := c.Clear(); err != nil {
		g.log.WithError(err).Warn("clear cart after submit")
	}
}

func validate(session Session, c *cart.Store, paymentType model.PaymentType) error {
	if session.VenueId == 0 || session.EventId == 0 || session.EventTableId == 0 {
		return ErrMissingContext
	}
	if c == nil || c.IsEmpty() {
		return ErrEmptyCart
	}
	if paymentType != model.PaymentCash && paymentType != model.PaymentCard {
		return ErrInvalidPaymentType
	}
	return nil
}
