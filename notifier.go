package users

import (
	"context"
	"sync"
	"time"
)

// NotificationKind identifies the transactional email being sent.
type NotificationKind string

const (
	// NotificationVerificationRequested is sent after self-registration.
	NotificationVerificationRequested NotificationKind = "account.verification.requested"
	// NotificationVerified welcomes the account once the email is confirmed.
	NotificationVerified NotificationKind = "account.verified"
	// NotificationPromoted congratulates the account on the professional upgrade.
	NotificationPromoted NotificationKind = "account.promoted"
)

// Notification is an immutable snapshot of everything a sender needs. The
// account record is copied into plain fields so the dispatch goroutine never
// races with later mutations of the model.
type Notification struct {
	Kind            NotificationKind
	AccountID       string
	Email           string
	Name            string
	VerificationURL string
	OccurredAt      time.Time
}

// Notifier delivers a transactional notification. Implementations should
// treat delivery as best effort, the caller never retries.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// AsyncNotifier dispatches notifications on a goroutine so that request
// handling never blocks on SMTP. Deliveries are at most once, a failed send
// is logged and dropped.
type AsyncNotifier struct {
	next    Notifier
	logger  Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// AsyncNotifierOption customizes the async wrapper.
type AsyncNotifierOption func(*AsyncNotifier)

// WithAsyncNotifierLogger overrides the logger used for delivery failures.
func WithAsyncNotifierLogger(logger Logger) AsyncNotifierOption {
	return func(a *AsyncNotifier) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAsyncNotifierTimeout bounds how long a single delivery may take.
func WithAsyncNotifierTimeout(d time.Duration) AsyncNotifierOption {
	return func(a *AsyncNotifier) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAsyncNotifier wraps next so that Notify returns immediately.
func NewAsyncNotifier(next Notifier, opts ...AsyncNotifierOption) *AsyncNotifier {
	a := &AsyncNotifier{
		next:    normalizeNotifier(next),
		logger:  defLogger{},
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Notify enqueues the delivery and returns nil. The request context is not
// propagated, the delivery outlives the request that triggered it.
func (a *AsyncNotifier) Notify(_ context.Context, n Notification) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.Notify(ctx, n); err != nil {
			a.logger.Error("notification delivery failed kind=%s account=%s: %v", n.Kind, n.AccountID, err)
		}
	}()
	return nil
}

// Wait blocks until all in-flight deliveries finish. Call it on shutdown.
func (a *AsyncNotifier) Wait() {
	a.wg.Wait()
}
